package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fixhub-io/fixhub/internal/order"
)

// Broadcaster pushes a transition event to live subscribers of an order.
type Broadcaster interface {
	Broadcast(orderID string, event any)
}

// Mailer enqueues a best-effort email for a mailbox write.
type Mailer interface {
	EnqueueOrderEvent(template, orderID, email, message string) error
}

// Directory resolves a user id to an email address.
type Directory interface {
	EmailByID(ctx context.Context, userID string) (string, error)
}

// Sink drains a committed transition's notification plan into the mailbox
// store, then fans out to the websocket hub and the email queue. Mailbox
// writes are the durable part; the rest is best effort.
type Sink struct {
	repo  Repository
	hub   Broadcaster
	mail  Mailer
	users Directory
	now   func() time.Time
}

func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Sink) WithHub(hub Broadcaster) *Sink {
	s.hub = hub
	return s
}

func (s *Sink) WithMailer(mail Mailer, users Directory) *Sink {
	s.mail = mail
	s.users = users
	return s
}

func (s *Sink) Deliver(ctx context.Context, notes []order.Note) {
	for _, n := range notes {
		item := &Item{
			ID:        uuid.New().String(),
			Recipient: n.Recipient,
			OrderID:   n.OrderID,
			Template:  n.Template,
			Message:   n.Message,
			CreatedAt: s.now(),
		}
		if err := s.repo.Append(ctx, item); err != nil {
			log.Printf("notify: mailbox append failed for user=%s order=%s: %v", n.Recipient, n.OrderID, err)
			continue
		}
		if s.hub != nil {
			s.hub.Broadcast(n.OrderID, map[string]string{
				"order_id": n.OrderID,
				"template": n.Template,
				"message":  n.Message,
			})
		}
		if s.mail != nil && s.users != nil {
			email, err := s.users.EmailByID(ctx, n.Recipient)
			if err != nil || email == "" {
				continue
			}
			if err := s.mail.EnqueueOrderEvent(n.Template, n.OrderID, email, n.Message); err != nil {
				log.Printf("notify: email enqueue failed for order=%s: %v", n.OrderID, err)
			}
		}
	}
}
