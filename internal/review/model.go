package review

import "time"

// Review is the terminal customer feedback for a completed, paid order.
// One per order, ever.
type Review struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	ProviderID string    `json:"provider_id"`
	Stars      int       `json:"stars"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
