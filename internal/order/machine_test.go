package order

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOrder(status Status) Order {
	return Order{
		ID:            "o-1",
		CustomerID:    "cust-1",
		Title:         "Fix kitchen sink",
		ServiceType:   ServiceCleaningRepair,
		Price:         decimal.NewFromInt(50),
		Location:      LocationNorth,
		Status:        status,
		PaymentStatus: PaymentUnpaid,
	}
}

func TestApplyApprove(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	admin := Actor{ID: "adm-1", Role: RoleAdmin}

	next, notes, err := Apply(baseOrder(StatusPendingReview), Request{Actor: admin, Action: ActionApprove, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, next.Status)
	assert.Equal(t, now, next.UpdatedAt)
	require.Len(t, notes, 1)
	assert.Equal(t, "cust-1", notes[0].Recipient)
	assert.Equal(t, "order_approved", notes[0].Template)

	_, _, err = Apply(baseOrder(StatusPending), Request{Actor: admin, Action: ActionApprove, Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Apply(baseOrder(StatusPendingReview), Request{Actor: Actor{ID: "p-1", Role: RoleProvider}, Action: ActionApprove, Now: now})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestApplyReject(t *testing.T) {
	now := time.Now().UTC()
	admin := Actor{ID: "adm-1", Role: RoleAdmin}

	_, _, err := Apply(baseOrder(StatusPendingReview), Request{Actor: admin, Action: ActionReject, Now: now})
	assert.ErrorIs(t, err, ErrValidation, "reject without a reason must fail")

	next, notes, err := Apply(baseOrder(StatusPendingReview), Request{Actor: admin, Action: ActionReject, Reason: "out of service area", Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, next.Status)
	require.Len(t, notes, 1)
	assert.Equal(t, "order_rejected", notes[0].Template)
	assert.Contains(t, notes[0].Message, "out of service area")

	_, _, err = Apply(baseOrder(StatusAccepted), Request{Actor: admin, Action: ActionReject, Reason: "late", Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyAccept(t *testing.T) {
	now := time.Now().UTC()
	provider := Actor{ID: "prov-1", Role: RoleProvider}

	next, notes, err := Apply(baseOrder(StatusPending), Request{Actor: provider, Action: ActionAccept, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, next.Status)
	assert.Equal(t, "prov-1", next.ProviderID)
	require.Len(t, notes, 2)
	assert.Equal(t, "order_accepted", notes[0].Template)
	assert.Equal(t, "order_accepted_provider", notes[1].Template)
	assert.Equal(t, "prov-1", notes[1].Recipient)

	// A second provider hitting the already-claimed order gets the
	// dedicated conflict error.
	_, _, err = Apply(next, Request{Actor: Actor{ID: "prov-2", Role: RoleProvider}, Action: ActionAccept, Now: now})
	assert.ErrorIs(t, err, ErrAlreadyAccepted)

	// Customers cannot accept.
	_, _, err = Apply(baseOrder(StatusPending), Request{Actor: Actor{ID: "cust-1", Role: RoleCustomer}, Action: ActionAccept, Now: now})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Unapproved orders are not in the queue yet.
	_, _, err = Apply(baseOrder(StatusPendingReview), Request{Actor: provider, Action: ActionAccept, Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrAlreadyAccepted)
}

func TestApplyStartAndComplete(t *testing.T) {
	now := time.Now().UTC()
	assigned := Actor{ID: "prov-1", Role: RoleProvider}
	other := Actor{ID: "prov-2", Role: RoleProvider}

	o := baseOrder(StatusAccepted)
	o.ProviderID = "prov-1"

	_, _, err := Apply(o, Request{Actor: other, Action: ActionStart, Now: now})
	assert.ErrorIs(t, err, ErrUnauthorized, "only the assigned provider may start")

	started, notes, err := Apply(o, Request{Actor: assigned, Action: ActionStart, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	require.Len(t, notes, 2)

	_, _, err = Apply(started, Request{Actor: assigned, Action: ActionStart, Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, notes, err := Apply(started, Request{Actor: assigned, Action: ActionComplete, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.Len(t, notes, 2)
	assert.Equal(t, "order_completed", notes[0].Template)

	_, _, err = Apply(o, Request{Actor: assigned, Action: ActionComplete, Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition, "complete requires in_progress")

	noProvider := baseOrder(StatusAccepted)
	_, _, err = Apply(noProvider, Request{Actor: assigned, Action: ActionStart, Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyCancel(t *testing.T) {
	now := time.Now().UTC()
	owner := Actor{ID: "cust-1", Role: RoleCustomer}

	for _, status := range []Status{StatusPendingReview, StatusPending, StatusAccepted} {
		next, _, err := Apply(baseOrder(status), Request{Actor: owner, Action: ActionCancel, Now: now})
		require.NoError(t, err, "cancel from %s", status)
		assert.Equal(t, StatusCancelled, next.Status)
	}

	for _, status := range []Status{StatusInProgress, StatusCompleted, StatusCancelled} {
		_, _, err := Apply(baseOrder(status), Request{Actor: owner, Action: ActionCancel, Now: now})
		assert.ErrorIs(t, err, ErrInvalidTransition, "cancel from %s", status)
	}

	_, _, err := Apply(baseOrder(StatusPending), Request{Actor: Actor{ID: "cust-2", Role: RoleCustomer}, Action: ActionCancel, Now: now})
	assert.ErrorIs(t, err, ErrUnauthorized, "only the owner may cancel")

	// Cancel before a provider claims the order notifies the customer only.
	_, notes, err := Apply(baseOrder(StatusPending), Request{Actor: owner, Action: ActionCancel, Now: now})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "cust-1", notes[0].Recipient)

	// After a claim, the provider hears about it too.
	claimed := baseOrder(StatusAccepted)
	claimed.ProviderID = "prov-1"
	_, notes, err = Apply(claimed, Request{Actor: owner, Action: ActionCancel, Now: now})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "order_cancelled_provider", notes[1].Template)
	assert.Equal(t, "prov-1", notes[1].Recipient)
}

func TestApplyPay(t *testing.T) {
	now := time.Now().UTC()
	owner := Actor{ID: "cust-1", Role: RoleCustomer}

	o := baseOrder(StatusCompleted)
	o.ProviderID = "prov-1"

	paid, notes, err := Apply(o, Request{Actor: owner, Action: ActionPay, Now: now})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, paid.Status, "pay does not change status")
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	require.Len(t, notes, 2)
	assert.Equal(t, "payment_made", notes[0].Template)
	assert.Equal(t, "payment_received", notes[1].Template)

	_, _, err = Apply(paid, Request{Actor: owner, Action: ActionPay, Now: now})
	assert.ErrorIs(t, err, ErrPreconditionFailed, "double pay")

	_, _, err = Apply(baseOrder(StatusInProgress), Request{Actor: owner, Action: ActionPay, Now: now})
	assert.ErrorIs(t, err, ErrPreconditionFailed, "pay before completion")

	_, _, err = Apply(o, Request{Actor: Actor{ID: "prov-1", Role: RoleProvider}, Action: ActionPay, Now: now})
	assert.ErrorIs(t, err, ErrUnauthorized, "only the owner pays")
}

func TestApplyReview(t *testing.T) {
	now := time.Now().UTC()
	owner := Actor{ID: "cust-1", Role: RoleCustomer}

	o := baseOrder(StatusCompleted)
	o.ProviderID = "prov-1"

	_, _, err := Apply(o, Request{Actor: owner, Action: ActionReview, Now: now})
	assert.ErrorIs(t, err, ErrPreconditionFailed, "review requires payment first")

	o.PaymentStatus = PaymentPaid
	next, notes, err := Apply(o, Request{Actor: owner, Action: ActionReview, Now: now})
	require.NoError(t, err)
	assert.Equal(t, o.Status, next.Status)
	require.Len(t, notes, 2)
	assert.Equal(t, "review_submitted", notes[0].Template)
	assert.Equal(t, "review_received", notes[1].Template)
}

func TestApplyUnknownAction(t *testing.T) {
	_, _, err := Apply(baseOrder(StatusPending), Request{Actor: Actor{ID: "x", Role: RoleAdmin}, Action: Action("freeze"), Now: time.Now()})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, NormalizeStatus("reviewed"))
	assert.Equal(t, StatusPending, NormalizeStatus("pending"))
}

func TestApplyIsPure(t *testing.T) {
	o := baseOrder(StatusPending)
	_, _, err := Apply(o, Request{Actor: Actor{ID: "prov-1", Role: RoleProvider}, Action: ActionAccept, Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status, "input order must not be mutated")
	assert.Empty(t, o.ProviderID)
}

func TestErrAlreadyAcceptedIsInvalidTransition(t *testing.T) {
	assert.True(t, errors.Is(ErrAlreadyAccepted, ErrInvalidTransition))
}
