package shopper

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/session"
)

var ErrRatingRange = errors.New("shopper: rating must be between 1 and 5")

type RatingsAPI interface {
	SubmitRating(ctx context.Context, productID string, r backend.RatingRequest) error
	ProductRatings(ctx context.Context, productID string) (backend.RatingSummary, error)
}

// Rate submits a 1..5 star rating and returns the product's fresh aggregate.
// A failed aggregate read after a successful submit is not an error; the
// zero summary is returned.
func Rate(ctx context.Context, api RatingsAPI, productID string, stars int, comment string) (backend.RatingSummary, error) {
	if !session.From(ctx).Authenticated() {
		return backend.RatingSummary{}, ErrLoginRequired
	}
	if strings.TrimSpace(productID) == "" {
		return backend.RatingSummary{}, ErrNoProduct
	}
	if stars < 1 || stars > 5 {
		return backend.RatingSummary{}, ErrRatingRange
	}
	req := backend.RatingRequest{Rating: stars, Comment: strings.TrimSpace(comment)}
	if err := api.SubmitRating(ctx, productID, req); err != nil {
		return backend.RatingSummary{}, err
	}
	sum, err := api.ProductRatings(ctx, productID)
	if err != nil {
		return backend.RatingSummary{}, nil
	}
	return sum, nil
}
