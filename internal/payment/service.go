package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fixhub-io/fixhub/internal/order"
)

// Service is the payment projection: it creates at most one Payment per
// order and drives the order's pay action through the state machine.
type Service struct {
	orders   order.Repository
	payments Repository
	sink     order.Sink
	now      func() time.Time
}

func NewService(orders order.Repository, payments Repository, sink order.Sink) *Service {
	return &Service{orders: orders, payments: payments, sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Pay settles a completed order for its owning customer. The payment row
// and the order's paid flag commit together; the pay notifications go out
// only after that commit.
func (s *Service) Pay(ctx context.Context, actor order.Actor, orderID string) (*Payment, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, notes, err := order.Apply(*o, order.Request{Actor: actor, Action: order.ActionPay, Now: s.now()})
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		ProviderID:    o.ProviderID,
		Amount:        o.Price,
		Method:        MethodSimulated,
		Status:        StatusCompleted,
		TransactionID: uuid.New().String(),
		CreatedAt:     next.UpdatedAt,
	}
	ok, err := s.payments.CommitPayment(ctx, p, next.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order already paid", order.ErrPreconditionFailed)
	}
	s.sink.Deliver(ctx, notes)
	return p, nil
}

// GetForOrder returns the payment visible to a party of the order.
func (s *Service) GetForOrder(ctx context.Context, actor order.Actor, orderID string) (*Payment, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != order.RoleAdmin && actor.ID != o.CustomerID && actor.ID != o.ProviderID {
		return nil, order.ErrUnauthorized
	}
	return s.payments.PaymentByOrder(ctx, orderID)
}

// Earnings sums the prices of the provider's paid orders.
func (s *Service) Earnings(ctx context.Context, actor order.Actor) (decimal.Decimal, error) {
	if actor.Role != order.RoleProvider {
		return decimal.Zero, order.ErrUnauthorized
	}
	return s.orders.SumPaidByProvider(ctx, actor.ID)
}
