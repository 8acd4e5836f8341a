package circulation

import (
	"context"
	"log"
	"time"

	"libraryms/pkg/config"
	"libraryms/pkg/notify"
	"libraryms/pkg/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Policy holds the lending constants.
type Policy struct {
	LoanPeriodDays int
	FinePeriodDays int
	FineRate       decimal.Decimal // charged per full fine period
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays: 14,
		FinePeriodDays: 30,
		FineRate:       decimal.NewFromInt(1),
	}
}

func PolicyFromConfig(cfg config.Config) Policy {
	return Policy{
		LoanPeriodDays: cfg.LoanPeriodDays,
		FinePeriodDays: cfg.FinePeriodDays,
		FineRate:       cfg.FineRate,
	}
}

// Service runs the loan, reservation, fine and review rules against the
// store. Every mutating call is one database transaction.
type Service struct {
	db       *gorm.DB
	policy   Policy
	now      func() time.Time
	notifier notify.Notifier
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		policy:   DefaultPolicy(),
		now:      time.Now,
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the handle for health checks.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// txn is the state of one transaction: the stores bound to it, the instant
// the operation happens at, and the notifications to send after commit.
type txn struct {
	*store.Stores
	policy Policy
	now    time.Time
	events []notify.Event
}

func (t *txn) emit(e notify.Event) {
	e.OccurredAt = t.now
	t.events = append(t.events, e)
}

func (s *Service) inTx(ctx context.Context, fn func(t *txn) error) error {
	t := &txn{policy: s.policy, now: s.now().UTC()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.Stores = store.New(tx)
		return fn(t)
	})
	if err != nil {
		return err
	}
	for _, e := range t.events {
		if err := s.notifier.Notify(ctx, e); err != nil {
			log.Printf("Failed to send %s notification: %v", e.Type, err)
		}
	}
	return nil
}

// read returns stores bound to ctx, outside any transaction.
func (s *Service) read(ctx context.Context) *store.Stores {
	return store.New(s.db.WithContext(ctx))
}
