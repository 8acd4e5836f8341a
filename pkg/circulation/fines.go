package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryms/pkg/models"
	"libraryms/pkg/notify"
	"libraryms/pkg/store"

	"github.com/shopspring/decimal"
)

// FineReport counts what one scan did.
type FineReport struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"` // overdue by less than one full period
}

// GenerateOrUpdateFines charges every overdue loan one rate per full fine
// period past its due date. The amount is recomputed from scratch, so
// running the scan twice charges nothing extra.
func (s *Service) GenerateOrUpdateFines(ctx context.Context) (FineReport, error) {
	var report FineReport
	err := s.inTx(ctx, func(t *txn) error {
		report = FineReport{}
		loans, err := t.Loans.Overdue(t.now)
		if err != nil {
			return err
		}
		for _, loan := range loans {
			if !loan.IsOverdue(t.now) {
				continue
			}
			report.Scanned++
			periods := t.overduePeriods(loan)
			if periods <= 0 {
				report.Skipped++
				continue
			}
			created, err := t.assessFine(loan, t.policy.FineRate.Mul(decimal.NewFromInt(int64(periods))))
			if err != nil {
				return err
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
		}
		return nil
	})
	return report, err
}

func (t *txn) overduePeriods(loan models.Loan) int {
	if t.policy.FinePeriodDays <= 0 {
		return 0
	}
	days := int(t.now.Sub(loan.DueDate) / (24 * time.Hour))
	return days / t.policy.FinePeriodDays
}

// assessFine sets the pair's open fine to what earlier loans left unpaid
// plus charge for loan. Repeated scans of the same loan only replace the
// charge part.
func (t *txn) assessFine(loan models.Loan, charge decimal.Decimal) (bool, error) {
	fine, err := t.Fines.OpenByUserAndItem(loan.UserID, loan.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		fine = &models.Fine{
			UserID:     loan.UserID,
			ItemID:     loan.ItemID,
			LoanID:     loan.ID,
			Amount:     charge,
			BaseAmount: decimal.Zero,
			DateIssued: t.now,
			Status:     models.FineUnpaid,
		}
		if err := t.Fines.Add(fine); err != nil {
			return false, err
		}
		t.emit(notify.Event{Type: notify.FineAssessed, UserID: fine.UserID, ItemID: fine.ItemID, LoanID: loan.ID, FineID: fine.ID, Amount: charge.String()})
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if fine.LoanID != loan.ID {
		fine.BaseAmount = fine.Amount
		fine.LoanID = loan.ID
	}
	amount := fine.BaseAmount.Add(charge)
	changed := !fine.Amount.Equal(amount)
	fine.Amount = amount
	fine.DateIssued = t.now
	if err := t.Fines.Update(fine); err != nil {
		return false, err
	}
	if changed {
		t.emit(notify.Event{Type: notify.FineAssessed, UserID: fine.UserID, ItemID: fine.ItemID, LoanID: loan.ID, FineID: fine.ID, Amount: amount.String()})
	}
	return false, nil
}

// RequestFinePayment starts paying an unpaid fine of the session user. The
// fine stays PENDING until an admin approves or rejects the request.
func (s *Service) RequestFinePayment(ctx context.Context, sess Session, fineID uint) (*models.FinePayRequest, error) {
	var request *models.FinePayRequest
	err := s.inTx(ctx, func(t *txn) error {
		fine, err := t.Fines.GetByID(fineID)
		if err != nil {
			return err
		}
		if fine.UserID != sess.UserID() {
			return fmt.Errorf("pay fine %d: %w", fineID, ErrForbidden)
		}
		if fine.Status != models.FineUnpaid {
			return fmt.Errorf("pay fine %d with status %s: %w", fineID, fine.Status, ErrInvalidState)
		}
		fine.Status = models.FinePending
		if err := t.Fines.Update(fine); err != nil {
			return err
		}
		request = &models.FinePayRequest{FineID: fine.ID, UserID: fine.UserID, RequestDate: t.now}
		return t.FinePayRequests.Add(request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ApproveFinePayment marks the fine paid. It fails with ErrActiveLoan while
// the user still holds the item the fine is for.
func (s *Service) ApproveFinePayment(ctx context.Context, sess Session, requestID uint) (*models.Fine, error) {
	var paid *models.Fine
	err := s.inTx(ctx, func(t *txn) error {
		request, fine, err := t.pendingRequest(sess, requestID)
		if err != nil {
			return err
		}
		onLoan, err := t.Loans.HasActive(fine.UserID, fine.ItemID)
		if err != nil {
			return err
		}
		if onLoan {
			return fmt.Errorf("approve payment %d: %w", requestID, ErrActiveLoan)
		}

		paidAt := t.now
		fine.Status = models.FinePaid
		fine.DatePaid = &paidAt
		if err := t.Fines.Update(fine); err != nil {
			return err
		}
		if err := t.FinePayRequests.Delete(request.ID); err != nil {
			return err
		}
		t.emit(notify.Event{Type: notify.FinePaid, UserID: fine.UserID, ItemID: fine.ItemID, FineID: fine.ID, Amount: fine.Amount.String()})
		paid = fine
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// RejectFinePayment puts the fine back to UNPAID and drops the request.
func (s *Service) RejectFinePayment(ctx context.Context, sess Session, requestID uint) (*models.Fine, error) {
	var rejected *models.Fine
	err := s.inTx(ctx, func(t *txn) error {
		request, fine, err := t.pendingRequest(sess, requestID)
		if err != nil {
			return err
		}
		fine.Status = models.FineUnpaid
		if err := t.Fines.Update(fine); err != nil {
			return err
		}
		if err := t.FinePayRequests.Delete(request.ID); err != nil {
			return err
		}
		t.emit(notify.Event{Type: notify.FinePaymentRejected, UserID: fine.UserID, ItemID: fine.ItemID, FineID: fine.ID})
		rejected = fine
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (t *txn) pendingRequest(sess Session, requestID uint) (*models.FinePayRequest, *models.Fine, error) {
	if !sess.IsAdmin() {
		return nil, nil, fmt.Errorf("decide payment %d: %w", requestID, ErrForbidden)
	}
	request, err := t.FinePayRequests.GetByID(requestID)
	if err != nil {
		return nil, nil, err
	}
	fine, err := t.Fines.GetByID(request.FineID)
	if err != nil {
		return nil, nil, err
	}
	if fine.Status != models.FinePending {
		return nil, nil, fmt.Errorf("decide payment %d for fine with status %s: %w", requestID, fine.Status, ErrInvalidState)
	}
	return request, fine, nil
}
