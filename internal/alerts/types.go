// Package alerts is the email edge: order lifecycle events are enqueued
// on Redis via asynq and delivered out-of-band, so a slow or down SMTP
// server never blocks an order transition.
package alerts

import "time"

const TaskOrderEvent = "email:order_event"

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type OrderEventPayload struct {
	OrderID  string        `json:"order_id"`
	Template string        `json:"template"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
