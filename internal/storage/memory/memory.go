// Package memory is an in-process entity store used by tests and local
// development. It honors the same invariants as the Postgres store: the
// status compare-and-set, the per-order uniqueness of reviews and payments,
// and the mailbox dedupe key.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fixhub-io/fixhub/internal/admin"
	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/payment"
	"github.com/fixhub-io/fixhub/internal/review"
	"github.com/fixhub-io/fixhub/internal/user"
)

type Storage struct {
	mu           sync.Mutex
	users        map[string]*user.User
	usersByEmail map[string]string
	orders       map[string]*order.Order
	orderSeq     []string
	reviews      map[string]*review.Review   // keyed by order id
	payments     map[string]*payment.Payment // keyed by order id
	txids        map[string]bool
	notes        []*notify.Item
	noteKeys     map[string]bool
}

func New() *Storage {
	return &Storage{
		users:        make(map[string]*user.User),
		usersByEmail: make(map[string]string),
		orders:       make(map[string]*order.Order),
		reviews:      make(map[string]*review.Review),
		payments:     make(map[string]*payment.Payment),
		txids:        make(map[string]bool),
		noteKeys:     make(map[string]bool),
	}
}

// ---- order.Repository ----

func (s *Storage) CreateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	s.orderSeq = append(s.orderSeq, o.ID)
	return nil
}

func (s *Storage) GetOrder(_ context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Storage) UpdateOrderIfStatus(_ context.Context, o *order.Order, prev order.Status, prevPay order.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return false, order.ErrNotFound
	}
	if cur.Status != prev || cur.PaymentStatus != prevPay {
		return false, nil
	}
	cp := *o
	s.orders[o.ID] = &cp
	return true, nil
}

func (s *Storage) ListAvailable(_ context.Context, f order.AvailableFilter) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, id := range s.orderSeq {
		o, ok := s.orders[id]
		if !ok || o.Status != order.StatusPending {
			continue
		}
		if f.Location != "" && o.Location != f.Location {
			continue
		}
		if f.MinPrice != nil && o.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && o.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.Keyword != "" {
			kw := strings.ToLower(f.Keyword)
			if !strings.Contains(strings.ToLower(o.Title), kw) &&
				!strings.Contains(strings.ToLower(o.Description), kw) {
				continue
			}
		}
		out = append(out, *o)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Storage) ListOrdersByUser(_ context.Context, userID string) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, id := range s.orderSeq {
		o, ok := s.orders[id]
		if !ok {
			continue
		}
		if o.CustomerID == userID || o.ProviderID == userID {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Storage) ListAllOrders(_ context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, id := range s.orderSeq {
		if o, ok := s.orders[id]; ok {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Storage) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(s.orders, id)
	delete(s.reviews, id)
	delete(s.payments, id)
	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.OrderID == id {
			delete(s.noteKeys, noteKey(n))
			continue
		}
		kept = append(kept, n)
	}
	s.notes = kept
	return nil
}

func (s *Storage) SumPaidByProvider(_ context.Context, providerID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, o := range s.orders {
		if o.ProviderID == providerID && o.PaymentStatus == order.PaymentPaid {
			sum = sum.Add(o.Price)
		}
	}
	return sum, nil
}

// ---- payment.Repository ----

func (s *Storage) CommitPayment(_ context.Context, p *payment.Payment, orderUpdatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[p.OrderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.Status != order.StatusCompleted || o.PaymentStatus != order.PaymentUnpaid {
		return false, nil
	}
	if _, exists := s.payments[p.OrderID]; exists {
		return false, nil
	}
	if s.txids[p.TransactionID] {
		return false, nil
	}
	o.PaymentStatus = order.PaymentPaid
	o.UpdatedAt = orderUpdatedAt
	cp := *p
	s.payments[p.OrderID] = &cp
	s.txids[p.TransactionID] = true
	return true, nil
}

func (s *Storage) PaymentByOrder(_ context.Context, orderID string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- review.Repository ----

func (s *Storage) CreateReview(_ context.Context, r *review.Review) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reviews[r.OrderID]; exists {
		return false, nil
	}
	cp := *r
	s.reviews[r.OrderID] = &cp
	return true, nil
}

func (s *Storage) ReviewByOrder(_ context.Context, orderID string) (*review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Storage) ListReviewsByProvider(_ context.Context, providerID string) ([]review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []review.Review
	for _, r := range s.reviews {
		if r.ProviderID == providerID {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---- notify.Repository ----

func noteKey(n *notify.Item) string {
	return n.Recipient + "|" + n.OrderID + "|" + n.Template
}

func (s *Storage) Append(_ context.Context, item *notify.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := noteKey(item)
	if s.noteKeys[k] {
		return nil
	}
	s.noteKeys[k] = true
	cp := *item
	s.notes = append(s.notes, &cp)
	return nil
}

func (s *Storage) ListByRecipient(_ context.Context, recipient string) ([]notify.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Item
	for i := len(s.notes) - 1; i >= 0; i-- {
		if s.notes[i].Recipient == recipient {
			out = append(out, *s.notes[i])
		}
	}
	return out, nil
}

func (s *Storage) MarkRead(_ context.Context, recipient, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id && n.Recipient == recipient {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

// ---- user.Store / notify.Directory ----

func (s *Storage) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usersByEmail[u.Email]; taken {
		return user.ErrEmailTaken
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *Storage) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Storage) FindByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Storage) SetRole(_ context.Context, email, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return user.ErrNotFound
	}
	s.users[id].Role = role
	return nil
}

func (s *Storage) EmailByID(ctx context.Context, userID string) (string, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *Storage) Stats(_ context.Context) (*admin.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &admin.Stats{
		Users:         len(s.users),
		Orders:        len(s.orders),
		Reviews:       len(s.reviews),
		Payments:      len(s.payments),
		Notifications: len(s.notes),
	}, nil
}

func sortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
