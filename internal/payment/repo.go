package payment

import (
	"context"
	"time"
)

type Repository interface {
	// CommitPayment inserts the payment and flips its order to paid in one
	// atomic step. It returns false when the order is no longer completed
	// and unpaid, or a payment for it already exists.
	CommitPayment(ctx context.Context, p *Payment, orderUpdatedAt time.Time) (bool, error)
	PaymentByOrder(ctx context.Context, orderID string) (*Payment, error)
}
