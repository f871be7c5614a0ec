package notify

import "time"

// Item is one mailbox row. The (recipient, order, template) triple is the
// store-level dedupe key, so replaying a delivered plan is harmless.
type Item struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	OrderID   string    `json:"order_id,omitempty"`
	Template  string    `json:"template"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
