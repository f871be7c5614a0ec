package review

import "context"

type Repository interface {
	// CreateReview inserts the review; false means a review for this order
	// already exists.
	CreateReview(ctx context.Context, r *Review) (bool, error)
	ReviewByOrder(ctx context.Context, orderID string) (*Review, error)
	ListReviewsByProvider(ctx context.Context, providerID string) ([]Review, error)
}
