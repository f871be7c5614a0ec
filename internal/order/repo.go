package order

import (
	"context"

	"github.com/shopspring/decimal"
)

// AvailableFilter narrows the visible (pending) order queue. Zero values
// mean "no constraint".
type AvailableFilter struct {
	Location Location
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Keyword  string
}

// Repository is the order slice of the entity store. UpdateOrderIfStatus is
// the compare-and-set primitive every order write commits through, admin
// edits included: the write applies only if the row still carries the
// expected status and payment status, which serializes racing writers per
// order id.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrderIfStatus(ctx context.Context, o *Order, prev Status, prevPay PaymentStatus) (bool, error)
	ListAvailable(ctx context.Context, f AvailableFilter) ([]Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	DeleteOrder(ctx context.Context, id string) error
	SumPaidByProvider(ctx context.Context, providerID string) (decimal.Decimal, error)
}

// Sink receives the notification plan of a committed transition.
type Sink interface {
	Deliver(ctx context.Context, notes []Note)
}
