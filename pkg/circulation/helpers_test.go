package circulation

import (
	"context"
	"testing"
	"time"

	"libraryms/pkg/database"
	"libraryms/pkg/models"
	"libraryms/pkg/notify"
	"libraryms/pkg/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

const day = 24 * time.Hour

type fixture struct {
	svc    *Service
	db     *gorm.DB
	clock  *testClock
	events *notify.Recorder
	admin  Session
	alice  Session
	bob    Session
	carol  Session
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	clock := &testClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	events := &notify.Recorder{}
	f := &fixture{
		svc:    NewService(db, WithClock(clock.Now), WithNotifier(events)),
		db:     db,
		clock:  clock,
		events: events,
	}
	f.admin = f.addUser(t, "admin", models.RoleAdmin)
	f.alice = f.addUser(t, "alice", models.RoleMember)
	f.bob = f.addUser(t, "bob", models.RoleMember)
	f.carol = f.addUser(t, "carol", models.RoleMember)
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role models.Role) Session {
	t.Helper()
	user := models.User{Username: username, Password: username + "-pw", Role: role}
	require.NoError(t, store.New(f.db).Users.Add(&user))
	return NewSession(user)
}

func (f *fixture) addBook(t *testing.T, title string, copies int) *models.Item {
	t.Helper()
	item := models.Item{Title: title, TotalCopies: copies}
	item.SetDetails(models.BookDetails{Author: "Anon", Shelf: "A1"})
	created, err := f.svc.AddItem(context.Background(), f.admin, item)
	require.NoError(t, err)
	return created
}

func (f *fixture) item(t *testing.T, id uint) *models.Item {
	t.Helper()
	item, err := store.New(f.db).Items.GetByID(id)
	require.NoError(t, err)
	return item
}

func (f *fixture) checkout(t *testing.T, sess Session, itemID uint) Outcome {
	t.Helper()
	out, err := f.svc.CheckoutOrReserve(context.Background(), sess, itemID)
	require.NoError(t, err)
	return out
}
