package store

import (
	"errors"
	"fmt"

	"libraryms/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// repository is the CRUD shape shared by every store. Writes go straight to
// the database handle it was built with, so callers control transactions by
// choosing that handle.
type repository[T any] struct {
	db   *gorm.DB
	name string
}

func (r repository[T]) GetAll() ([]T, error) {
	var all []T
	if err := r.db.Order("id").Find(&all).Error; err != nil {
		return nil, translate(err, "list "+r.name)
	}
	return all, nil
}

func (r repository[T]) GetByID(id uint) (*T, error) {
	var entity T
	if err := r.db.First(&entity, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("get %s %d", r.name, id))
	}
	return &entity, nil
}

// GetForUpdate loads the row and locks it until the transaction ends.
// sqlite has no row locks; its single writer serialises instead.
func (r repository[T]) GetForUpdate(id uint) (*T, error) {
	var entity T
	err := r.db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).First(&entity, id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("lock %s %d", r.name, id))
	}
	return &entity, nil
}

func (r repository[T]) Add(entity *T) error {
	if entity == nil {
		return fmt.Errorf("add %s: nil entity: %w", r.name, ErrInvalidArgument)
	}
	return translate(r.db.Omit(clause.Associations).Create(entity).Error, "add "+r.name)
}

// Update writes every column of entity, keyed by its primary key. The row
// must already exist.
func (r repository[T]) Update(entity *T) error {
	if entity == nil {
		return fmt.Errorf("update %s: nil entity: %w", r.name, ErrInvalidArgument)
	}
	res := r.db.Model(entity).Select("*").Omit(clause.Associations).Updates(entity)
	if errors.Is(res.Error, gorm.ErrMissingWhereClause) {
		return fmt.Errorf("update %s: missing id: %w", r.name, ErrInvalidArgument)
	}
	if res.Error != nil {
		return translate(res.Error, "update "+r.name)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s: %w", r.name, ErrNotFound)
	}
	return nil
}

func (r repository[T]) Delete(id uint) error {
	res := r.db.Delete(new(T), id)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("delete %s %d", r.name, id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s %d: %w", r.name, id, ErrNotFound)
	}
	return nil
}

// Stores groups every store over one database handle.
type Stores struct {
	Items           *ItemStore
	Users           *UserStore
	Loans           *LoanStore
	Reservations    *ReservationStore
	Fines           *FineStore
	FinePayRequests *FinePayRequestStore
	Reviews         *ReviewStore
}

func New(db *gorm.DB) *Stores {
	return &Stores{
		Items:           &ItemStore{repository[models.Item]{db: db, name: "item"}},
		Users:           &UserStore{repository[models.User]{db: db, name: "user"}},
		Loans:           &LoanStore{repository[models.Loan]{db: db, name: "loan"}},
		Reservations:    &ReservationStore{repository[models.Reservation]{db: db, name: "reservation"}},
		Fines:           &FineStore{repository[models.Fine]{db: db, name: "fine"}},
		FinePayRequests: &FinePayRequestStore{repository[models.FinePayRequest]{db: db, name: "fine pay request"}},
		Reviews:         &ReviewStore{repository[models.Review]{db: db, name: "review"}},
	}
}
