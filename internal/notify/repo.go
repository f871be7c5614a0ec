package notify

import "context"

type Repository interface {
	// Append writes the item unless an item with the same
	// (recipient, order, template) key already exists.
	Append(ctx context.Context, item *Item) error
	ListByRecipient(ctx context.Context, recipient string) ([]Item, error)
	// MarkRead flips the read flag; false means no such item for this
	// recipient.
	MarkRead(ctx context.Context, recipient, id string) (bool, error)
}
