package circulation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// lockLog records the tables read with FOR UPDATE.
type lockLog struct {
	mu     sync.Mutex
	tables []string
}

func (l *lockLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.tables
	l.tables = nil
	return out
}

func watchLocks(t *testing.T, db *gorm.DB) *lockLog {
	t.Helper()
	log := &lockLog{}
	err := db.Callback().Query().Before("gorm:query").Register("test:watch_locks", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses["FOR"]; ok {
			log.mu.Lock()
			log.tables = append(log.tables, d.Statement.Table)
			log.mu.Unlock()
		}
	})
	require.NoError(t, err)
	return log
}

func TestWritesLockTheItemRow(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	locks := watchLocks(t, f.db)
	ctx := context.Background()

	loan := f.checkout(t, f.alice, book.ID).Loan
	assert.Equal(t, []string{"items"}, locks.take(), "checkout")

	f.checkout(t, f.bob, book.ID)
	assert.Contains(t, locks.take(), "items", "reserve through checkout")

	_, err := f.svc.ReturnLoan(ctx, f.alice, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"loans", "items"}, locks.take(), "return")

	edit := *f.item(t, book.ID)
	edit.TotalCopies = 2
	_, _, err = f.svc.UpdateItem(ctx, f.admin, edit)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, locks.take(), "update")

	_, err = f.svc.AddReview(ctx, f.carol, book.ID, 4, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, locks.take(), "review")

	_, err = f.svc.GetItem(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, locks.take(), "plain reads take no lock")
}
