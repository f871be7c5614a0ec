package payment_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/payment"
	"github.com/fixhub-io/fixhub/internal/storage/memory"
)

var (
	customer = order.Actor{ID: "cust-1", Role: order.RoleCustomer}
	provider = order.Actor{ID: "prov-1", Role: order.RoleProvider}
	admin    = order.Actor{ID: "adm-1", Role: order.RoleAdmin}
)

type fixture struct {
	orders   *order.Service
	payments *payment.Service
	store    *memory.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	sink := notify.NewSink(store)
	return &fixture{
		orders:   order.NewService(store, sink),
		payments: payment.NewService(store, store, sink),
		store:    store,
	}
}

// completedOrder walks a fresh order to completed for the given price.
func (f *fixture) completedOrder(t *testing.T, price int64) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Submit(ctx, customer, order.SubmitInput{
		Title:       "Install shelves",
		ServiceType: order.ServiceCleaningRepair,
		Price:       decimal.NewFromInt(price),
		Location:    order.LocationMid,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Approve(ctx, admin, o.ID))
	require.NoError(t, f.orders.Accept(ctx, provider, o.ID))
	require.NoError(t, f.orders.Start(ctx, provider, o.ID))
	require.NoError(t, f.orders.Complete(ctx, provider, o.ID))
	return o
}

func TestPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, 80)

	p, err := f.payments.Pay(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(p.Amount), "amount is the order price")
	assert.Equal(t, payment.MethodSimulated, p.Method)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.NotEmpty(t, p.TransactionID)

	got, err := f.orders.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, order.StatusCompleted, got.Status)

	// Both parties get the payment notes.
	items, err := f.store.ListByRecipient(ctx, provider.ID)
	require.NoError(t, err)
	var received bool
	for _, it := range items {
		if it.Template == "payment_received" {
			received = true
		}
	}
	assert.True(t, received)
}

func TestPayBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.orders.Submit(ctx, customer, order.SubmitInput{
		Title:       "Install shelves",
		ServiceType: order.ServiceCleaningRepair,
		Price:       decimal.NewFromInt(80),
		Location:    order.LocationMid,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Approve(ctx, admin, o.ID))
	require.NoError(t, f.orders.Accept(ctx, provider, o.ID))
	require.NoError(t, f.orders.Start(ctx, provider, o.ID))

	_, err = f.payments.Pay(ctx, customer, o.ID)
	assert.ErrorIs(t, err, order.ErrPreconditionFailed)
}

func TestPayTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, 80)

	_, err := f.payments.Pay(ctx, customer, o.ID)
	require.NoError(t, err)

	_, err = f.payments.Pay(ctx, customer, o.ID)
	assert.ErrorIs(t, err, order.ErrPreconditionFailed)
}

func TestPayOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, 80)

	_, err := f.payments.Pay(ctx, provider, o.ID)
	assert.ErrorIs(t, err, order.ErrUnauthorized)

	stranger := order.Actor{ID: "cust-2", Role: order.RoleCustomer}
	_, err = f.payments.Pay(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, order.ErrUnauthorized)
}

func TestGetForOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.completedOrder(t, 80)

	_, err := f.payments.GetForOrder(ctx, customer, o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound, "no payment yet")

	p, err := f.payments.Pay(ctx, customer, o.ID)
	require.NoError(t, err)

	got, err := f.payments.GetForOrder(ctx, provider, o.ID)
	require.NoError(t, err)
	assert.Equal(t, p.TransactionID, got.TransactionID)

	stranger := order.Actor{ID: "cust-2", Role: order.RoleCustomer}
	_, err = f.payments.GetForOrder(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, order.ErrUnauthorized)
}

func TestEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two paid orders at 70 and 50, one completed-but-unpaid at 30.
	o1 := f.completedOrder(t, 70)
	o2 := f.completedOrder(t, 50)
	f.completedOrder(t, 30)

	_, err := f.payments.Pay(ctx, customer, o1.ID)
	require.NoError(t, err)
	_, err = f.payments.Pay(ctx, customer, o2.ID)
	require.NoError(t, err)

	total, err := f.payments.Earnings(ctx, provider)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(120).Equal(total), "unpaid orders do not count, got %s", total)

	_, err = f.payments.Earnings(ctx, customer)
	assert.ErrorIs(t, err, order.ErrUnauthorized)

	// A provider with no paid work earns zero.
	idle := order.Actor{ID: "prov-9", Role: order.RoleProvider}
	total, err = f.payments.Earnings(ctx, idle)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
