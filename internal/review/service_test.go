package review_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/payment"
	"github.com/fixhub-io/fixhub/internal/review"
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
	reviews  *review.Service
	store    *memory.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	sink := notify.NewSink(store)
	return &fixture{
		orders:   order.NewService(store, sink),
		payments: payment.NewService(store, store, sink),
		reviews:  review.NewService(store, store, sink),
		store:    store,
	}
}

// paidOrder walks a fresh order through to completed and paid.
func (f *fixture) paidOrder(t *testing.T) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Submit(ctx, customer, order.SubmitInput{
		Title:       "Website redesign",
		ServiceType: order.ServiceDesignConsulting,
		Price:       decimal.NewFromInt(300),
		Location:    order.LocationWest,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Approve(ctx, admin, o.ID))
	require.NoError(t, f.orders.Accept(ctx, provider, o.ID))
	require.NoError(t, f.orders.Start(ctx, provider, o.ID))
	require.NoError(t, f.orders.Complete(ctx, provider, o.ID))
	_, err = f.payments.Pay(ctx, customer, o.ID)
	require.NoError(t, err)
	return o
}

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t)

	r, err := f.reviews.Submit(ctx, customer, o.ID, 5, "Great work, fast and tidy.")
	require.NoError(t, err)
	assert.Equal(t, o.ID, r.OrderID)
	assert.Equal(t, provider.ID, r.ProviderID)
	assert.Equal(t, 5, r.Stars)

	// The order stays completed; the review row is the reviewed signal.
	got, err := f.orders.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)

	items, err := f.store.ListByRecipient(ctx, provider.ID)
	require.NoError(t, err)
	var received bool
	for _, it := range items {
		if it.Template == "review_received" {
			received = true
		}
	}
	assert.True(t, received)
}

func TestSubmitReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t)

	for _, stars := range []int{0, -1, 6} {
		_, err := f.reviews.Submit(ctx, customer, o.ID, stars, "x")
		assert.ErrorIs(t, err, order.ErrValidation, "stars=%d", stars)
	}

	_, err := f.reviews.Submit(ctx, customer, o.ID, 4, strings.Repeat("a", 1001))
	assert.ErrorIs(t, err, order.ErrValidation)
}

func TestReviewRequiresPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.orders.Submit(ctx, customer, order.SubmitInput{
		Title:       "Website redesign",
		ServiceType: order.ServiceDesignConsulting,
		Price:       decimal.NewFromInt(300),
		Location:    order.LocationWest,
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Approve(ctx, admin, o.ID))
	require.NoError(t, f.orders.Accept(ctx, provider, o.ID))
	require.NoError(t, f.orders.Start(ctx, provider, o.ID))
	require.NoError(t, f.orders.Complete(ctx, provider, o.ID))

	_, err = f.reviews.Submit(ctx, customer, o.ID, 5, "")
	assert.ErrorIs(t, err, order.ErrPreconditionFailed)
}

func TestReviewOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t)

	_, err := f.reviews.Submit(ctx, customer, o.ID, 4, "good")
	require.NoError(t, err)

	_, err = f.reviews.Submit(ctx, customer, o.ID, 2, "changed my mind")
	assert.ErrorIs(t, err, order.ErrPreconditionFailed)
}

func TestReviewOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t)

	_, err := f.reviews.Submit(ctx, provider, o.ID, 5, "reviewing myself")
	assert.ErrorIs(t, err, order.ErrUnauthorized)
}

func TestGetForOrderAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t)

	_, err := f.reviews.GetForOrder(ctx, customer, o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)

	r, err := f.reviews.Submit(ctx, customer, o.ID, 4, "good")
	require.NoError(t, err)

	got, err := f.reviews.GetForOrder(ctx, provider, o.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	stranger := order.Actor{ID: "cust-2", Role: order.RoleCustomer}
	_, err = f.reviews.GetForOrder(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, order.ErrUnauthorized)

	list, err := f.reviews.ListForProvider(ctx, provider.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Stars)
}
