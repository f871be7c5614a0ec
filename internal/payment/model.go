package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the simulated transfer record. At most one exists per order,
// enforced by the store's unique key on order_id.
type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	ProviderID    string          `json:"provider_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	MethodSimulated = "simulated"

	StatusCompleted = "completed"
)
