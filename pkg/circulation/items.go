package circulation

import (
	"context"
	"fmt"

	"libraryms/pkg/models"
	"libraryms/pkg/store"
)

// AddItem creates a catalog entry with every copy available.
func (s *Service) AddItem(ctx context.Context, sess Session, item models.Item) (*models.Item, error) {
	if !sess.IsAdmin() {
		return nil, fmt.Errorf("add item: %w", ErrForbidden)
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.ID = 0
	item.AvailableCopies = item.TotalCopies
	item.AverageRating = 0
	item.Reviews = nil
	err := s.inTx(ctx, func(t *txn) error {
		return t.Items.Add(&item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies a catalog edit. Available copies follow from the new
// total and the loans still out. Lowering the total below the loans out is
// refused and nothing is written. A successful edit always drains the
// reservation queue.
func (s *Service) UpdateItem(ctx context.Context, sess Session, item models.Item) (*models.Item, []models.Loan, error) {
	if !sess.IsAdmin() {
		return nil, nil, fmt.Errorf("update item: %w", ErrForbidden)
	}
	if err := validateItem(item); err != nil {
		return nil, nil, err
	}

	var (
		updated   *models.Item
		fulfilled []models.Loan
	)
	err := s.inTx(ctx, func(t *txn) error {
		current, err := t.Items.GetForUpdate(item.ID)
		if err != nil {
			return err
		}
		onLoan, err := t.Loans.CountActiveByItem(item.ID)
		if err != nil {
			return err
		}
		if item.TotalCopies < onLoan {
			return fmt.Errorf("update item %d: total copies %d below %d copies on loan: %w",
				item.ID, item.TotalCopies, onLoan, ErrRuleViolation)
		}

		item.AvailableCopies = item.TotalCopies - onLoan
		item.AverageRating = current.AverageRating
		item.CreatedAt = current.CreatedAt
		item.Reviews = nil
		if err := t.Items.Update(&item); err != nil {
			return err
		}
		fulfilled, err = t.drain(&item)
		if err != nil {
			return err
		}
		updated = &item
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, fulfilled, nil
}

// DeleteItem removes an item that has no copy on loan, together with its
// queue and reviews. Loans and fines referring to it are kept as history.
func (s *Service) DeleteItem(ctx context.Context, sess Session, itemID uint) error {
	if !sess.IsAdmin() {
		return fmt.Errorf("delete item: %w", ErrForbidden)
	}
	return s.inTx(ctx, func(t *txn) error {
		if _, err := t.Items.GetForUpdate(itemID); err != nil {
			return err
		}
		onLoan, err := t.Loans.CountActiveByItem(itemID)
		if err != nil {
			return err
		}
		if onLoan > 0 {
			return fmt.Errorf("delete item %d with %d copies on loan: %w", itemID, onLoan, ErrRuleViolation)
		}
		if _, err := t.Reservations.DeleteByItem(itemID); err != nil {
			return err
		}
		if _, err := t.Reviews.DeleteByItem(itemID); err != nil {
			return err
		}
		return t.Items.Delete(itemID)
	})
}

func validateItem(item models.Item) error {
	if !item.Kind.Valid() {
		return fmt.Errorf("item kind %q: %w", item.Kind, store.ErrInvalidArgument)
	}
	if item.Title == "" {
		return fmt.Errorf("item title is empty: %w", store.ErrInvalidArgument)
	}
	if item.TotalCopies < 0 {
		return fmt.Errorf("total copies %d: %w", item.TotalCopies, store.ErrInvalidArgument)
	}
	if item.AvailableCopies < 0 {
		return fmt.Errorf("available copies %d: %w", item.AvailableCopies, store.ErrInvalidArgument)
	}
	return nil
}
