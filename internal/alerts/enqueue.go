package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

var subjects = map[string]string{
	"order_submitted":          "Your order was submitted for review",
	"order_approved":           "Your order is live",
	"order_rejected":           "Your order was not approved",
	"order_accepted":           "A provider accepted your order",
	"order_accepted_provider":  "You accepted an order",
	"order_started":            "Work on your order has started",
	"order_started_provider":   "You started an order",
	"order_completed":          "Your order is complete",
	"order_completed_provider": "You marked an order complete",
	"order_cancelled":          "Your order was cancelled",
	"order_cancelled_provider": "An order you accepted was cancelled",
	"payment_made":             "Payment confirmed",
	"payment_received":         "You have been paid",
	"review_submitted":         "Thanks for your review",
	"review_received":          "You received a new review",
}

func subjectFor(template string) string {
	if s, ok := subjects[template]; ok {
		return s
	}
	return "Order update"
}

// EnqueueOrderEvent schedules a lifecycle email for an order participant.
func EnqueueOrderEvent(template, orderID, email, message string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: subjectFor(template),
		Body:    fmt.Sprintf("%s\n\nOrder: %s", message, orderID),
	}
	payload := OrderEventPayload{OrderID: orderID, Template: template, Email: email, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskOrderEvent, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// Queue adapts the package-level enqueue to the notification sink.
type Queue struct{}

func (Queue) EnqueueOrderEvent(template, orderID, email, message string) error {
	return EnqueueOrderEvent(template, orderID, email, message)
}
