package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

type FineStatus string

const (
	FineUnpaid  FineStatus = "UNPAID"
	FinePending FineStatus = "PENDING"
	FinePaid    FineStatus = "PAID"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:80;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:120;not null" json:"-"` // plaintext, compared as-is on login
	FullName  string    `gorm:"size:160" json:"fullName"`
	Email     string    `gorm:"size:160" json:"email"`
	Role      Role      `gorm:"size:20;not null;default:'MEMBER'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Loan rows are never deleted; a returned loan stays as history.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_loans_active_pair,where:status = 'ACTIVE'" json:"userId"`
	ItemID     uint       `gorm:"not null;index;uniqueIndex:idx_loans_active_pair,where:status = 'ACTIVE'" json:"itemId"`
	LoanDate   time.Time  `gorm:"not null" json:"loanDate"`
	DueDate    time.Time  `gorm:"not null" json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     LoanStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (l Loan) IsActive() bool {
	return l.Status == LoanActive
}

func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.DueDate)
}

// Reservation is a queued request for an item that had no free copy.
type Reservation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_reservations_pair" json:"userId"`
	ItemID      uint      `gorm:"not null;uniqueIndex:idx_reservations_pair;index" json:"itemId"`
	RequestDate time.Time `gorm:"not null;index" json:"requestDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Fine is the open debt of a user for an item. One fine spans every loan of
// the pair until it is paid.
type Fine struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_fines_open_pair,where:status <> 'PAID'" json:"userId"`
	ItemID     uint            `gorm:"not null;uniqueIndex:idx_fines_open_pair,where:status <> 'PAID'" json:"itemId"`
	LoanID     uint            `gorm:"index" json:"loanId"` // loan last assessed
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BaseAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"-"` // carried from earlier loans
	DateIssued time.Time       `gorm:"not null" json:"dateIssued"`
	DatePaid   *time.Time      `json:"datePaid,omitempty"`
	Status     FineStatus      `gorm:"size:20;not null;index" json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type FinePayRequest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FineID      uint      `gorm:"not null;uniqueIndex" json:"fineId"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	RequestDate time.Time `gorm:"not null" json:"requestDate"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;index" json:"itemId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"size:2000" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{}, &Item{}, &Loan{}, &Reservation{}, &Fine{}, &FinePayRequest{}, &Review{},
	}
}
