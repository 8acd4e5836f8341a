package circulation

import (
	"context"
	"fmt"
	"strings"

	"libraryms/pkg/models"
	"libraryms/pkg/store"
)

const (
	minRating = 1
	maxRating = 5
)

// AddReview stores a review and refreshes the item's average rating.
func (s *Service) AddReview(ctx context.Context, sess Session, itemID uint, rating int, comment string) (*models.Review, error) {
	if rating < minRating || rating > maxRating {
		return nil, fmt.Errorf("rating %d outside %d..%d: %w", rating, minRating, maxRating, store.ErrInvalidArgument)
	}
	var review *models.Review
	err := s.inTx(ctx, func(t *txn) error {
		item, err := t.Items.GetForUpdate(itemID)
		if err != nil {
			return err
		}
		review = &models.Review{
			ItemID:    item.ID,
			UserID:    sess.UserID(),
			Rating:    rating,
			Comment:   strings.TrimSpace(comment),
			CreatedAt: t.now,
		}
		if err := t.Reviews.Add(review); err != nil {
			return err
		}
		avg, err := t.Reviews.AverageForItem(item.ID)
		if err != nil {
			return err
		}
		item.AverageRating = avg
		return t.Items.Update(item)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}
