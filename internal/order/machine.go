package order

import (
	"fmt"
	"time"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionAccept   Action = "accept"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionPay      Action = "pay"
	ActionReview   Action = "review"
)

// Note is a single mailbox write planned by a transition.
type Note struct {
	Recipient string
	Template  string
	Message   string
	OrderID   string
}

// Request carries one attempted transition. Reason is required for reject
// and ignored elsewhere.
type Request struct {
	Actor  Actor
	Action Action
	Reason string
	Now    time.Time
}

// Apply validates req against the transition matrix and returns the updated
// order together with its notification plan. Apply never touches storage;
// the caller commits the returned order and only then delivers the plan.
//
//	pending_review --approve--> pending
//	pending_review --reject---> cancelled
//	pending --------accept----> accepted (provider_id set)
//	accepted -------start-----> in_progress
//	in_progress ----complete--> completed
//	{pending_review,pending,accepted} --cancel--> cancelled
//	completed ------pay-------> payment_status := paid
//	completed+paid -review----> (no status change)
func Apply(o Order, req Request) (Order, []Note, error) {
	switch req.Action {
	case ActionApprove:
		if req.Actor.Role != RoleAdmin {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusPendingReview {
			return o, nil, fmt.Errorf("%w: cannot approve %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusPending
		o.UpdatedAt = req.Now
		return o, notesApproved(o), nil

	case ActionReject:
		if req.Actor.Role != RoleAdmin {
			return o, nil, ErrUnauthorized
		}
		if req.Reason == "" {
			return o, nil, fmt.Errorf("%w: reject reason is required", ErrValidation)
		}
		if o.Status != StatusPendingReview {
			return o, nil, fmt.Errorf("%w: cannot reject %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusCancelled
		o.UpdatedAt = req.Now
		return o, notesRejected(o, req.Reason), nil

	case ActionAccept:
		if req.Actor.Role != RoleProvider {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusPending {
			if o.ProviderID != "" {
				return o, nil, ErrAlreadyAccepted
			}
			return o, nil, fmt.Errorf("%w: cannot accept %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusAccepted
		o.ProviderID = req.Actor.ID
		o.UpdatedAt = req.Now
		return o, notesAccepted(o), nil

	case ActionStart:
		if o.ProviderID == "" {
			return o, nil, fmt.Errorf("%w: order has no assigned provider", ErrInvalidTransition)
		}
		if req.Actor.ID != o.ProviderID {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusAccepted {
			return o, nil, fmt.Errorf("%w: cannot start %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusInProgress
		o.UpdatedAt = req.Now
		return o, notesStarted(o), nil

	case ActionComplete:
		if o.ProviderID == "" {
			return o, nil, fmt.Errorf("%w: order has no assigned provider", ErrInvalidTransition)
		}
		if req.Actor.ID != o.ProviderID {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusInProgress {
			return o, nil, fmt.Errorf("%w: cannot complete %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusCompleted
		o.UpdatedAt = req.Now
		return o, notesCompleted(o), nil

	case ActionCancel:
		if req.Actor.ID != o.CustomerID {
			return o, nil, ErrUnauthorized
		}
		switch o.Status {
		case StatusPendingReview, StatusPending, StatusAccepted:
		default:
			return o, nil, fmt.Errorf("%w: cannot cancel %s order", ErrInvalidTransition, o.Status)
		}
		o.Status = StatusCancelled
		o.UpdatedAt = req.Now
		return o, notesCancelled(o), nil

	case ActionPay:
		if req.Actor.ID != o.CustomerID {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusCompleted {
			return o, nil, fmt.Errorf("%w: only completed orders can be paid", ErrPreconditionFailed)
		}
		if o.PaymentStatus != PaymentUnpaid {
			return o, nil, fmt.Errorf("%w: order already paid", ErrPreconditionFailed)
		}
		o.PaymentStatus = PaymentPaid
		o.UpdatedAt = req.Now
		return o, notesPaid(o), nil

	case ActionReview:
		if req.Actor.ID != o.CustomerID {
			return o, nil, ErrUnauthorized
		}
		if o.Status != StatusCompleted {
			return o, nil, fmt.Errorf("%w: only completed orders can be reviewed", ErrPreconditionFailed)
		}
		if o.PaymentStatus != PaymentPaid {
			return o, nil, fmt.Errorf("%w: order must be paid before review", ErrPreconditionFailed)
		}
		return o, notesReviewed(o), nil
	}

	return o, nil, fmt.Errorf("%w: unknown action %q", ErrValidation, req.Action)
}

// PlanCreate is the notification plan for a freshly submitted order, which
// is not a matrix transition but fans out like one.
func PlanCreate(o Order) []Note {
	return []Note{{
		Recipient: o.CustomerID,
		Template:  "order_submitted",
		Message:   fmt.Sprintf("Your order %q was submitted and is awaiting review.", o.Title),
		OrderID:   o.ID,
	}}
}

func notesApproved(o Order) []Note {
	return []Note{{
		Recipient: o.CustomerID,
		Template:  "order_approved",
		Message:   fmt.Sprintf("Your order %q was approved and is now visible to providers.", o.Title),
		OrderID:   o.ID,
	}}
}

func notesRejected(o Order, reason string) []Note {
	return []Note{{
		Recipient: o.CustomerID,
		Template:  "order_rejected",
		Message:   fmt.Sprintf("Your order %q was rejected, reason: %s", o.Title, reason),
		OrderID:   o.ID,
	}}
}

func notesAccepted(o Order) []Note {
	return []Note{
		{
			Recipient: o.CustomerID,
			Template:  "order_accepted",
			Message:   fmt.Sprintf("A provider accepted your order %q.", o.Title),
			OrderID:   o.ID,
		},
		{
			Recipient: o.ProviderID,
			Template:  "order_accepted_provider",
			Message:   fmt.Sprintf("You accepted order %q.", o.Title),
			OrderID:   o.ID,
		},
	}
}

func notesStarted(o Order) []Note {
	return []Note{
		{
			Recipient: o.CustomerID,
			Template:  "order_started",
			Message:   fmt.Sprintf("Order %q is now in progress.", o.Title),
			OrderID:   o.ID,
		},
		{
			Recipient: o.ProviderID,
			Template:  "order_started_provider",
			Message:   fmt.Sprintf("You set order %q in progress.", o.Title),
			OrderID:   o.ID,
		},
	}
}

func notesCompleted(o Order) []Note {
	return []Note{
		{
			Recipient: o.CustomerID,
			Template:  "order_completed",
			Message:   fmt.Sprintf("Order %q is completed. You can now pay and leave a review.", o.Title),
			OrderID:   o.ID,
		},
		{
			Recipient: o.ProviderID,
			Template:  "order_completed_provider",
			Message:   fmt.Sprintf("You marked order %q completed.", o.Title),
			OrderID:   o.ID,
		},
	}
}

func notesCancelled(o Order) []Note {
	notes := []Note{{
		Recipient: o.CustomerID,
		Template:  "order_cancelled",
		Message:   fmt.Sprintf("You cancelled order %q.", o.Title),
		OrderID:   o.ID,
	}}
	if o.ProviderID != "" {
		notes = append(notes, Note{
			Recipient: o.ProviderID,
			Template:  "order_cancelled_provider",
			Message:   fmt.Sprintf("The customer cancelled order %q.", o.Title),
			OrderID:   o.ID,
		})
	}
	return notes
}

func notesPaid(o Order) []Note {
	notes := []Note{{
		Recipient: o.CustomerID,
		Template:  "payment_made",
		Message:   fmt.Sprintf("Payment for order %q was successful.", o.Title),
		OrderID:   o.ID,
	}}
	if o.ProviderID != "" {
		notes = append(notes, Note{
			Recipient: o.ProviderID,
			Template:  "payment_received",
			Message:   fmt.Sprintf("Payment received for order %q.", o.Title),
			OrderID:   o.ID,
		})
	}
	return notes
}

func notesReviewed(o Order) []Note {
	return []Note{
		{
			Recipient: o.CustomerID,
			Template:  "review_submitted",
			Message:   fmt.Sprintf("Your review for order %q was submitted.", o.Title),
			OrderID:   o.ID,
		},
		{
			Recipient: o.ProviderID,
			Template:  "review_received",
			Message:   fmt.Sprintf("The customer reviewed your order %q.", o.Title),
			OrderID:   o.ID,
		},
	}
}
