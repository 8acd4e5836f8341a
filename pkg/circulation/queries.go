package circulation

import (
	"context"
	"fmt"

	"libraryms/pkg/models"
)

func (s *Service) SearchItems(ctx context.Context, query string, kind models.ItemKind, onlyAvailable bool) ([]models.Item, error) {
	return s.read(ctx).Items.Search(query, kind, onlyAvailable)
}

func (s *Service) GetItem(ctx context.Context, itemID uint) (*models.Item, error) {
	return s.read(ctx).Items.GetWithReviews(itemID)
}

func (s *Service) ItemQueue(ctx context.Context, itemID uint) ([]models.Reservation, error) {
	st := s.read(ctx)
	if _, err := st.Items.GetByID(itemID); err != nil {
		return nil, err
	}
	return st.Reservations.ByItem(itemID)
}

func (s *Service) UserLoans(ctx context.Context, sess Session, activeOnly bool) ([]models.Loan, error) {
	if activeOnly {
		return s.read(ctx).Loans.ActiveByUser(sess.UserID())
	}
	return s.read(ctx).Loans.ByUser(sess.UserID())
}

func (s *Service) UserReservations(ctx context.Context, sess Session) ([]models.Reservation, error) {
	return s.read(ctx).Reservations.ByUser(sess.UserID())
}

func (s *Service) UserFines(ctx context.Context, sess Session) ([]models.Fine, error) {
	return s.read(ctx).Fines.ByUser(sess.UserID())
}

func (s *Service) PendingPayRequests(ctx context.Context, sess Session) ([]models.FinePayRequest, error) {
	if !sess.IsAdmin() {
		return nil, fmt.Errorf("list pay requests: %w", ErrForbidden)
	}
	return s.read(ctx).FinePayRequests.GetAll()
}
