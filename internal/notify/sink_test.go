package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/storage/memory"
	"github.com/fixhub-io/fixhub/internal/user"
)

type recordingHub struct {
	events []string
}

func (h *recordingHub) Broadcast(orderID string, _ any) {
	h.events = append(h.events, orderID)
}

type recordingMailer struct {
	sent []string
	fail bool
}

func (m *recordingMailer) EnqueueOrderEvent(template, orderID, email, message string) error {
	if m.fail {
		return errors.New("redis down")
	}
	m.sent = append(m.sent, template+"->"+email)
	return nil
}

func plan() []order.Note {
	return []order.Note{
		{Recipient: "cust-1", Template: "order_accepted", Message: "A provider accepted your order.", OrderID: "o-1"},
		{Recipient: "prov-1", Template: "order_accepted_provider", Message: "You accepted an order.", OrderID: "o-1"},
	}
}

func TestDeliverWritesMailbox(t *testing.T) {
	store := memory.New()
	sink := notify.NewSink(store)
	ctx := context.Background()

	sink.Deliver(ctx, plan())

	items, err := store.ListByRecipient(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "order_accepted", items[0].Template)
	assert.Equal(t, "o-1", items[0].OrderID)
	assert.False(t, items[0].Read)
}

func TestDeliverIsIdempotent(t *testing.T) {
	store := memory.New()
	sink := notify.NewSink(store)
	ctx := context.Background()

	sink.Deliver(ctx, plan())
	sink.Deliver(ctx, plan())

	items, err := store.ListByRecipient(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "replaying a plan must not duplicate mailbox rows")
}

func TestDeliverFansOut(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateUser(context.Background(), &user.User{ID: "cust-1", Email: "cust@example.com"}))

	hub := &recordingHub{}
	mailer := &recordingMailer{}
	sink := notify.NewSink(store).WithHub(hub).WithMailer(mailer, store)

	sink.Deliver(context.Background(), plan())

	assert.Equal(t, []string{"o-1", "o-1"}, hub.events)
	// prov-1 has no account, so only the customer's email goes out.
	assert.Equal(t, []string{"order_accepted->cust@example.com"}, mailer.sent)
}

func TestDeliverSurvivesMailerFailure(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateUser(context.Background(), &user.User{ID: "cust-1", Email: "cust@example.com"}))

	sink := notify.NewSink(store).WithMailer(&recordingMailer{fail: true}, store)
	sink.Deliver(context.Background(), plan())

	items, err := store.ListByRecipient(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "mailbox write is durable even when email enqueue fails")
}

func TestMarkRead(t *testing.T) {
	store := memory.New()
	sink := notify.NewSink(store)
	ctx := context.Background()

	sink.Deliver(ctx, plan())
	items, err := store.ListByRecipient(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Another user cannot mark someone else's item.
	ok, err := store.MarkRead(ctx, "prov-1", items[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.MarkRead(ctx, "cust-1", items[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	items, err = store.ListByRecipient(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, items[0].Read)
}
