package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository
	sink Sink
	now  func() time.Time
}

func NewService(repo Repository, sink Sink) *Service {
	return &Service{repo: repo, sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type SubmitInput struct {
	Title       string
	Description string
	ServiceType ServiceType
	Price       decimal.Decimal
	Location    Location
	Address     string
	WindowStart time.Time
	WindowEnd   time.Time
}

// Submit creates a new order in pending_review for the calling customer.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitInput) (*Order, error) {
	if actor.Role != RoleCustomer {
		return nil, ErrUnauthorized
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if !ValidServiceType(in.ServiceType) {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrValidation, in.ServiceType)
	}
	if !ValidLocation(in.Location) {
		return nil, fmt.Errorf("%w: unknown location %q", ErrValidation, in.Location)
	}
	if !in.WindowStart.IsZero() && !in.WindowEnd.IsZero() && in.WindowEnd.Before(in.WindowStart) {
		return nil, fmt.Errorf("%w: service window ends before it starts", ErrValidation)
	}

	now := s.now()
	o := &Order{
		ID:            uuid.New().String(),
		CustomerID:    actor.ID,
		Title:         in.Title,
		Description:   in.Description,
		ServiceType:   in.ServiceType,
		Price:         in.Price,
		Location:      in.Location,
		Address:       in.Address,
		WindowStart:   in.WindowStart,
		WindowEnd:     in.WindowEnd,
		Status:        StatusPendingReview,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.sink.Deliver(ctx, PlanCreate(*o))
	return o, nil
}

// Transition loads the order, applies one matrix edge and commits it with a
// compare-and-set on the previous state. The notification plan is delivered
// only after the write lands.
func (s *Service) Transition(ctx context.Context, actor Actor, orderID string, action Action, reason string) (*Order, error) {
	if action == ActionPay || action == ActionReview {
		// These edges must commit together with their payment or review row;
		// the owning service applies them itself.
		return nil, fmt.Errorf("%w: action %q requires its own endpoint", ErrValidation, action)
	}
	cur, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, notes, err := Apply(*cur, Request{Actor: actor, Action: action, Reason: reason, Now: s.now()})
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateOrderIfStatus(ctx, &next, cur.Status, cur.PaymentStatus)
	if err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	if !ok {
		// Lost a race: the row moved underneath us.
		if action == ActionAccept {
			return nil, ErrAlreadyAccepted
		}
		return nil, fmt.Errorf("%w: order state changed concurrently", ErrInvalidTransition)
	}
	s.sink.Deliver(ctx, notes)
	return &next, nil
}

func (s *Service) Approve(ctx context.Context, actor Actor, orderID string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionApprove, "")
	return err
}

func (s *Service) Reject(ctx context.Context, actor Actor, orderID, reason string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionReject, reason)
	return err
}

func (s *Service) Accept(ctx context.Context, actor Actor, orderID string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionAccept, "")
	return err
}

func (s *Service) Start(ctx context.Context, actor Actor, orderID string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionStart, "")
	return err
}

func (s *Service) Complete(ctx context.Context, actor Actor, orderID string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionComplete, "")
	return err
}

func (s *Service) Cancel(ctx context.Context, actor Actor, orderID string) error {
	_, err := s.Transition(ctx, actor, orderID, ActionCancel, "")
	return err
}

// ListAvailable returns the open queue providers compete on.
func (s *Service) ListAvailable(ctx context.Context, f AvailableFilter) ([]Order, error) {
	if f.Location != "" && !ValidLocation(f.Location) {
		// Unknown locations are permitted filter values; they match nothing.
		return []Order{}, nil
	}
	return s.repo.ListAvailable(ctx, f)
}

// Get returns the order if the actor is a party to it or an admin.
func (s *Service) Get(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleAdmin && actor.ID != o.CustomerID && actor.ID != o.ProviderID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// ListMine returns every order the actor participates in, newest first.
func (s *Service) ListMine(ctx context.Context, actor Actor) ([]Order, error) {
	return s.repo.ListOrdersByUser(ctx, actor.ID)
}

func (s *Service) ListAll(ctx context.Context, actor Actor) ([]Order, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrUnauthorized
	}
	return s.repo.ListAllOrders(ctx)
}

// UpdateInput carries the descriptive fields an admin may edit. Nil means
// "leave unchanged".
type UpdateInput struct {
	Title       *string
	Description *string
	ServiceType *ServiceType
	Price       *decimal.Decimal
	Location    *Location
	Address     *string
	WindowStart *time.Time
	WindowEnd   *time.Time
}

// AdminUpdate edits descriptive fields outside the state machine. Terminal
// orders are immutable, and the price is frozen once the order is paid so
// the payment record and earnings stay consistent.
func (s *Service) AdminUpdate(ctx context.Context, actor Actor, orderID string, in UpdateInput) (*Order, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrUnauthorized
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s order is no longer editable", ErrInvalidTransition, o.Status)
	}
	prevStatus, prevPay := o.Status, o.PaymentStatus
	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		o.Title = *in.Title
	}
	if in.Description != nil {
		o.Description = *in.Description
	}
	if in.ServiceType != nil {
		if !ValidServiceType(*in.ServiceType) {
			return nil, fmt.Errorf("%w: unknown service type %q", ErrValidation, *in.ServiceType)
		}
		o.ServiceType = *in.ServiceType
	}
	if in.Price != nil {
		if o.PaymentStatus == PaymentPaid {
			return nil, fmt.Errorf("%w: price cannot change after payment", ErrPreconditionFailed)
		}
		if !in.Price.IsPositive() {
			return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
		}
		o.Price = *in.Price
	}
	if in.Location != nil {
		if !ValidLocation(*in.Location) {
			return nil, fmt.Errorf("%w: unknown location %q", ErrValidation, *in.Location)
		}
		o.Location = *in.Location
	}
	if in.Address != nil {
		o.Address = *in.Address
	}
	if in.WindowStart != nil {
		o.WindowStart = *in.WindowStart
	}
	if in.WindowEnd != nil {
		o.WindowEnd = *in.WindowEnd
	}
	if !o.WindowStart.IsZero() && !o.WindowEnd.IsZero() && o.WindowEnd.Before(o.WindowStart) {
		return nil, fmt.Errorf("%w: service window ends before it starts", ErrValidation)
	}
	o.UpdatedAt = s.now()
	// The edit commits through the same compare-and-set as transitions so a
	// transition landing between the read and the write is never clobbered.
	ok, err := s.repo.UpdateOrderIfStatus(ctx, o, prevStatus, prevPay)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order state changed concurrently", ErrInvalidTransition)
	}
	return o, nil
}

// AdminDelete removes the order and its dependents (review, payment,
// mailbox items) via the store's cascade.
func (s *Service) AdminDelete(ctx context.Context, actor Actor, orderID string) error {
	if actor.Role != RoleAdmin {
		return ErrUnauthorized
	}
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return err
	}
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
