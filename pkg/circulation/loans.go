package circulation

import (
	"context"
	"errors"
	"fmt"

	"libraryms/pkg/models"
	"libraryms/pkg/notify"
	"libraryms/pkg/store"
)

type OutcomeKind string

const (
	OutcomeLoaned        OutcomeKind = "LOANED"
	OutcomeQueued        OutcomeKind = "QUEUED"
	OutcomeAlreadyLoaned OutcomeKind = "ALREADY_LOANED"
	OutcomeAlreadyQueued OutcomeKind = "ALREADY_QUEUED"
)

// Outcome tells the caller what a checkout or reserve call did. Only one of
// Loan and Reservation is set; both are nil for OutcomeAlreadyLoaned.
type Outcome struct {
	Kind          OutcomeKind         `json:"outcome"`
	Loan          *models.Loan        `json:"loan,omitempty"`
	Reservation   *models.Reservation `json:"reservation,omitempty"`
	QueuePosition int                 `json:"queuePosition,omitempty"`
}

// ReturnResult is the returned loan plus the loans created for queued
// users from the freed copy.
type ReturnResult struct {
	Loan      models.Loan   `json:"loan"`
	Fulfilled []models.Loan `json:"fulfilled"`
}

// CheckoutOrReserve lends a copy of the item to the session user, or queues
// a reservation when no copy is free. A user who already holds the item
// gets OutcomeAlreadyLoaned and nothing changes.
func (s *Service) CheckoutOrReserve(ctx context.Context, sess Session, itemID uint) (Outcome, error) {
	var out Outcome
	err := s.inTx(ctx, func(t *txn) error {
		user, item, err := t.userAndItem(sess.UserID(), itemID)
		if err != nil {
			return err
		}
		out, err = t.checkoutOrReserve(user, item)
		return err
	})
	return out, err
}

// Reserve queues the session user for the item regardless of availability.
// Repeating the call does not add a second entry.
func (s *Service) Reserve(ctx context.Context, sess Session, itemID uint) (Outcome, error) {
	var out Outcome
	err := s.inTx(ctx, func(t *txn) error {
		user, item, err := t.userAndItem(sess.UserID(), itemID)
		if err != nil {
			return err
		}
		onLoan, err := t.Loans.HasActive(user.ID, item.ID)
		if err != nil {
			return err
		}
		if onLoan {
			out = Outcome{Kind: OutcomeAlreadyLoaned}
			return nil
		}
		out, err = t.reserve(user, item)
		return err
	})
	return out, err
}

func (s *Service) CancelReservation(ctx context.Context, sess Session, reservationID uint) error {
	return s.inTx(ctx, func(t *txn) error {
		r, err := t.Reservations.GetByID(reservationID)
		if err != nil {
			return err
		}
		if !sess.canActFor(r.UserID) {
			return fmt.Errorf("cancel reservation %d: %w", reservationID, ErrForbidden)
		}
		if err := t.Reservations.Delete(r.ID); err != nil {
			return err
		}
		t.emit(notify.Event{Type: notify.ReservationCancelled, UserID: r.UserID, ItemID: r.ItemID, ReservationID: r.ID})
		return nil
	})
}

// ReturnLoan closes an active loan, frees its copy and hands it to the
// head of the item's reservation queue.
func (s *Service) ReturnLoan(ctx context.Context, sess Session, loanID uint) (ReturnResult, error) {
	var res ReturnResult
	err := s.inTx(ctx, func(t *txn) error {
		loan, err := t.Loans.GetForUpdate(loanID)
		if err != nil {
			return err
		}
		if !sess.canActFor(loan.UserID) {
			return fmt.Errorf("return loan %d: %w", loanID, ErrForbidden)
		}
		if !loan.IsActive() {
			return fmt.Errorf("return loan %d with status %s: %w", loanID, loan.Status, ErrInvalidState)
		}
		item, err := t.Items.GetForUpdate(loan.ItemID)
		if err != nil {
			return err
		}
		if item.AvailableCopies >= item.TotalCopies {
			return fmt.Errorf("return loan %d: item %d has no copy out: %w", loanID, item.ID, ErrInvalidState)
		}

		returned := t.now
		loan.Status = models.LoanReturned
		loan.ReturnDate = &returned
		if err := t.Loans.Update(loan); err != nil {
			return err
		}
		item.AvailableCopies++
		if err := t.Items.Update(item); err != nil {
			return err
		}
		t.emit(notify.Event{Type: notify.LoanReturned, UserID: loan.UserID, ItemID: item.ID, LoanID: loan.ID})

		fulfilled, err := t.drain(item)
		if err != nil {
			return err
		}
		res = ReturnResult{Loan: *loan, Fulfilled: fulfilled}
		return nil
	})
	return res, err
}

// DrainReservations converts queued reservations for the item into loans
// while copies are free.
func (s *Service) DrainReservations(ctx context.Context, itemID uint) ([]models.Loan, error) {
	var fulfilled []models.Loan
	err := s.inTx(ctx, func(t *txn) error {
		item, err := t.Items.GetForUpdate(itemID)
		if err != nil {
			return err
		}
		fulfilled, err = t.drain(item)
		return err
	})
	return fulfilled, err
}

func (t *txn) userAndItem(userID, itemID uint) (*models.User, *models.Item, error) {
	user, err := t.Users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	item, err := t.Items.GetForUpdate(itemID)
	if err != nil {
		return nil, nil, err
	}
	return user, item, nil
}

func (t *txn) checkoutOrReserve(user *models.User, item *models.Item) (Outcome, error) {
	onLoan, err := t.Loans.HasActive(user.ID, item.ID)
	if err != nil {
		return Outcome{}, err
	}
	if onLoan {
		return Outcome{Kind: OutcomeAlreadyLoaned}, nil
	}
	if item.AvailableCopies > 0 {
		loan, err := t.lend(user, item)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeLoaned, Loan: loan}, nil
	}
	return t.reserve(user, item)
}

func (t *txn) lend(user *models.User, item *models.Item) (*models.Loan, error) {
	if item.AvailableCopies <= 0 {
		return nil, fmt.Errorf("lend item %d: available copies would drop below zero: %w", item.ID, store.ErrInvalidArgument)
	}
	item.AvailableCopies--
	if err := t.Items.Update(item); err != nil {
		return nil, err
	}
	loan := &models.Loan{
		UserID:   user.ID,
		ItemID:   item.ID,
		LoanDate: t.now,
		DueDate:  t.now.AddDate(0, 0, t.policy.LoanPeriodDays),
		Status:   models.LoanActive,
	}
	if err := t.Loans.Add(loan); err != nil {
		return nil, err
	}
	t.emit(notify.Event{Type: notify.LoanCreated, UserID: user.ID, ItemID: item.ID, LoanID: loan.ID})
	return loan, nil
}

func (t *txn) reserve(user *models.User, item *models.Item) (Outcome, error) {
	existing, err := t.Reservations.ByUserAndItem(user.ID, item.ID)
	switch {
	case err == nil:
		pos, err := t.queuePosition(existing)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeAlreadyQueued, Reservation: existing, QueuePosition: pos}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, err
	}

	r := &models.Reservation{UserID: user.ID, ItemID: item.ID, RequestDate: t.now}
	if err := t.Reservations.Add(r); err != nil {
		return Outcome{}, err
	}
	pos, err := t.queuePosition(r)
	if err != nil {
		return Outcome{}, err
	}
	t.emit(notify.Event{Type: notify.ReservationQueued, UserID: user.ID, ItemID: item.ID, ReservationID: r.ID})
	return Outcome{Kind: OutcomeQueued, Reservation: r, QueuePosition: pos}, nil
}

// queuePosition is 1-based.
func (t *txn) queuePosition(r *models.Reservation) (int, error) {
	queue, err := t.Reservations.ByItem(r.ItemID)
	if err != nil {
		return 0, err
	}
	for i, q := range queue {
		if q.ID == r.ID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("reservation %d missing from queue: %w", r.ID, store.ErrNotFound)
}

// drain hands free copies of item to queued users in request order. Each
// consumed reservation is deleted, including one whose user meanwhile got
// the item through another path.
func (t *txn) drain(item *models.Item) ([]models.Loan, error) {
	queue, err := t.Reservations.ByItem(item.ID)
	if err != nil {
		return nil, err
	}
	fulfilled := []models.Loan{}
	for _, r := range queue {
		if item.AvailableCopies <= 0 {
			break
		}
		user, err := t.Users.GetByID(r.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if user != nil {
			// the reservation still exists, so checkoutOrReserve can only
			// lend here, never queue again
			out, err := t.checkoutOrReserve(user, item)
			if err != nil {
				return nil, err
			}
			if out.Kind == OutcomeLoaned {
				fulfilled = append(fulfilled, *out.Loan)
				t.emit(notify.Event{Type: notify.ReservationFulfilled, UserID: user.ID, ItemID: item.ID, LoanID: out.Loan.ID, ReservationID: r.ID})
			}
		}
		if err := t.Reservations.Delete(r.ID); err != nil {
			return nil, err
		}
	}
	return fulfilled, nil
}
