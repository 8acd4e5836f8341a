package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"libraryms/pkg/models"

	"gorm.io/gorm"
)

type ItemStore struct {
	repository[models.Item]
}

// GetWithReviews loads an item together with its reviews, newest first.
func (s *ItemStore) GetWithReviews(id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.Preload("Reviews", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC, id DESC")
	}).First(&item, id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get item %d", id))
	}
	return &item, nil
}

// Search matches title or ISBN case-insensitively. An empty kind matches all kinds.
func (s *ItemStore) Search(query string, kind models.ItemKind, onlyAvailable bool) ([]models.Item, error) {
	q := s.db.Model(&models.Item{})
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(isbn) LIKE ?", like, like)
	}
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if onlyAvailable {
		q = q.Where("available_copies > 0")
	}
	var items []models.Item
	if err := q.Order("title, id").Find(&items).Error; err != nil {
		return nil, translate(err, "search items")
	}
	return items, nil
}

type UserStore struct {
	repository[models.User]
}

func (s *UserStore) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("get user %q", username))
	}
	return &user, nil
}

type LoanStore struct {
	repository[models.Loan]
}

func (s *LoanStore) ByUser(userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	if err := s.db.Where("user_id = ?", userID).Order("loan_date DESC, id DESC").Find(&loans).Error; err != nil {
		return nil, translate(err, "list loans by user")
	}
	return loans, nil
}

func (s *LoanStore) ActiveByUser(userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := s.db.Where("user_id = ? AND status = ?", userID, models.LoanActive).
		Order("due_date, id").Find(&loans).Error
	if err != nil {
		return nil, translate(err, "list active loans by user")
	}
	return loans, nil
}

func (s *LoanStore) HasActive(userID, itemID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Loan{}).
		Where("user_id = ? AND item_id = ? AND status = ?", userID, itemID, models.LoanActive).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "count active loans")
	}
	return count > 0, nil
}

func (s *LoanStore) CountActiveByItem(itemID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Loan{}).
		Where("item_id = ? AND status = ?", itemID, models.LoanActive).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "count active loans by item")
	}
	return int(count), nil
}

// Overdue lists active loans whose due date lies before now.
func (s *LoanStore) Overdue(now time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := s.db.Where("status = ? AND due_date < ?", models.LoanActive, now).
		Order("due_date, id").Find(&loans).Error
	if err != nil {
		return nil, translate(err, "list overdue loans")
	}
	return loans, nil
}

type ReservationStore struct {
	repository[models.Reservation]
}

// ByItem returns the item's queue in FIFO order. Equal request dates keep
// creation order.
func (s *ReservationStore) ByItem(itemID uint) ([]models.Reservation, error) {
	var queue []models.Reservation
	err := s.db.Where("item_id = ?", itemID).Order("request_date, id").Find(&queue).Error
	if err != nil {
		return nil, translate(err, "list reservations by item")
	}
	return queue, nil
}

func (s *ReservationStore) ByUser(userID uint) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.Where("user_id = ?", userID).Order("request_date, id").Find(&reservations).Error
	if err != nil {
		return nil, translate(err, "list reservations by user")
	}
	return reservations, nil
}

func (s *ReservationStore) ByUserAndItem(userID, itemID uint) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.Where("user_id = ? AND item_id = ?", userID, itemID).First(&r).Error; err != nil {
		return nil, translate(err, "get reservation")
	}
	return &r, nil
}

func (s *ReservationStore) DeleteByItem(itemID uint) (int64, error) {
	res := s.db.Where("item_id = ?", itemID).Delete(&models.Reservation{})
	return res.RowsAffected, translate(res.Error, "delete reservations by item")
}

type FineStore struct {
	repository[models.Fine]
}

func (s *FineStore) ByUser(userID uint) ([]models.Fine, error) {
	var fines []models.Fine
	if err := s.db.Where("user_id = ?", userID).Order("date_issued DESC, id DESC").Find(&fines).Error; err != nil {
		return nil, translate(err, "list fines by user")
	}
	return fines, nil
}

func (s *FineStore) ByUserAndItem(userID, itemID uint) ([]models.Fine, error) {
	var fines []models.Fine
	err := s.db.Where("user_id = ? AND item_id = ?", userID, itemID).Order("id").Find(&fines).Error
	if err != nil {
		return nil, translate(err, "list fines by user and item")
	}
	return fines, nil
}

// OpenByUserAndItem returns the pair's fine that is not yet paid.
func (s *FineStore) OpenByUserAndItem(userID, itemID uint) (*models.Fine, error) {
	var fine models.Fine
	err := s.db.Where("user_id = ? AND item_id = ? AND status <> ?", userID, itemID, models.FinePaid).
		First(&fine).Error
	if err != nil {
		return nil, translate(err, "get open fine")
	}
	return &fine, nil
}

type FinePayRequestStore struct {
	repository[models.FinePayRequest]
}

func (s *FinePayRequestStore) ByUser(userID uint) ([]models.FinePayRequest, error) {
	var requests []models.FinePayRequest
	if err := s.db.Where("user_id = ?", userID).Order("request_date, id").Find(&requests).Error; err != nil {
		return nil, translate(err, "list pay requests by user")
	}
	return requests, nil
}

func (s *FinePayRequestStore) ByFine(fineID uint) (*models.FinePayRequest, error) {
	var request models.FinePayRequest
	if err := s.db.Where("fine_id = ?", fineID).First(&request).Error; err != nil {
		return nil, translate(err, "get pay request by fine")
	}
	return &request, nil
}

type ReviewStore struct {
	repository[models.Review]
}

func (s *ReviewStore) ByItem(itemID uint) ([]models.Review, error) {
	var reviews []models.Review
	if err := s.db.Where("item_id = ?", itemID).Order("created_at DESC, id DESC").Find(&reviews).Error; err != nil {
		return nil, translate(err, "list reviews by item")
	}
	return reviews, nil
}

// AverageForItem is 0 for an item without reviews.
func (s *ReviewStore) AverageForItem(itemID uint) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.Model(&models.Review{}).Select("AVG(rating)").Where("item_id = ?", itemID).Row().Scan(&avg)
	if err != nil {
		return 0, translate(err, "average rating")
	}
	return avg.Float64, nil
}

func (s *ReviewStore) DeleteByItem(itemID uint) (int64, error) {
	res := s.db.Where("item_id = ?", itemID).Delete(&models.Review{})
	return res.RowsAffected, translate(res.Error, "delete reviews by item")
}
