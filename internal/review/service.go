package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fixhub-io/fixhub/internal/order"
)

const maxContentLen = 1000

// Service is the review projection: one review per order, gated on the
// order being completed and paid.
type Service struct {
	orders  order.Repository
	reviews Repository
	sink    order.Sink
	now     func() time.Time
}

func NewService(orders order.Repository, reviews Repository, sink order.Sink) *Service {
	return &Service{orders: orders, reviews: reviews, sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Submit(ctx context.Context, actor order.Actor, orderID string, stars int, content string) (*Review, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: stars must be between 1 and 5", order.ErrValidation)
	}
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("%w: content too long (max %d characters)", order.ErrValidation, maxContentLen)
	}

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// The review action does not change order state; Apply only checks the
	// owner/completed/paid gate and yields the notification plan.
	_, notes, err := order.Apply(*o, order.Request{Actor: actor, Action: order.ActionReview, Now: s.now()})
	if err != nil {
		return nil, err
	}

	r := &Review{
		ID:         uuid.New().String(),
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		ProviderID: o.ProviderID,
		Stars:      stars,
		Content:    content,
		CreatedAt:  s.now(),
	}
	ok, err := s.reviews.CreateReview(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: review already exists for this order", order.ErrPreconditionFailed)
	}
	s.sink.Deliver(ctx, notes)
	return r, nil
}

// GetForOrder returns the order's review to either party or an admin.
func (s *Service) GetForOrder(ctx context.Context, actor order.Actor, orderID string) (*Review, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != order.RoleAdmin && actor.ID != o.CustomerID && actor.ID != o.ProviderID {
		return nil, order.ErrUnauthorized
	}
	return s.reviews.ReviewByOrder(ctx, orderID)
}

// ListForProvider returns a provider's reviews, newest first.
func (s *Service) ListForProvider(ctx context.Context, providerID string) ([]Review, error) {
	return s.reviews.ListReviewsByProvider(ctx, providerID)
}
