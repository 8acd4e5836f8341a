package circulation

import (
	"context"
	"testing"

	"libraryms/pkg/models"
	"libraryms/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem(t *testing.T) {
	f := newFixture(t)

	item := models.Item{Title: "Kind of Blue", TotalCopies: 3, AvailableCopies: 1}
	item.SetDetails(models.CDDetails{Artist: "Miles Davis", Tracks: 5})
	created, err := f.svc.AddItem(context.Background(), f.admin, item)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, 3, created.AvailableCopies)
	assert.Equal(t, models.CDDetails{Artist: "Miles Davis", Tracks: 5}, f.item(t, created.ID).Details())
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddItem(context.Background(), f.admin, models.Item{Kind: "VINYL", Title: "x"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = f.svc.AddItem(context.Background(), f.admin, models.Item{Kind: models.KindDVD})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = f.svc.AddItem(context.Background(), f.admin, models.Item{Kind: models.KindDVD, Title: "x", TotalCopies: -1})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = f.svc.AddItem(context.Background(), f.alice, models.Item{Kind: models.KindDVD, Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateItemAddingCopiesDrainsQueue(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	f.checkout(t, f.alice, book.ID)
	f.checkout(t, f.bob, book.ID)

	edit := *f.item(t, book.ID)
	edit.TotalCopies = 2
	updated, fulfilled, err := f.svc.UpdateItem(context.Background(), f.admin, edit)
	require.NoError(t, err)

	require.Len(t, fulfilled, 1)
	assert.Equal(t, f.bob.UserID(), fulfilled[0].UserID)
	assert.Equal(t, 0, updated.AvailableCopies)
	assert.Equal(t, 2, f.item(t, book.ID).TotalCopies)
	assert.Equal(t, 0, f.item(t, book.ID).AvailableCopies)
}

func TestUpdateItemBelowCopiesOnLoan(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 2)
	f.checkout(t, f.alice, book.ID)
	f.checkout(t, f.bob, book.ID)

	edit := *f.item(t, book.ID)
	edit.TotalCopies = 1
	edit.Title = "Dune Messiah"
	_, _, err := f.svc.UpdateItem(context.Background(), f.admin, edit)
	assert.ErrorIs(t, err, ErrRuleViolation)

	stored := f.item(t, book.ID)
	assert.Equal(t, "Dune", stored.Title)
	assert.Equal(t, 2, stored.TotalCopies)
	assert.Equal(t, 0, stored.AvailableCopies)
}

func TestUpdateItemRecomputesAvailability(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 3)
	f.checkout(t, f.alice, book.ID)

	edit := *f.item(t, book.ID)
	edit.TotalCopies = 5
	edit.AvailableCopies = 0
	edit.SetDetails(models.BookDetails{Author: "Frank Herbert", Pages: 412})
	updated, fulfilled, err := f.svc.UpdateItem(context.Background(), f.admin, edit)
	require.NoError(t, err)

	assert.Empty(t, fulfilled)
	assert.Equal(t, 4, updated.AvailableCopies)
	assert.Equal(t, models.BookDetails{Author: "Frank Herbert", Pages: 412}, f.item(t, book.ID).Details())
}

func TestUpdateItemRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)

	_, _, err := f.svc.UpdateItem(context.Background(), f.alice, *book)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateUnknownItem(t *testing.T) {
	f := newFixture(t)

	item := models.Item{ID: 77, Kind: models.KindBook, Title: "Ghost", TotalCopies: 1}
	_, _, err := f.svc.UpdateItem(context.Background(), f.admin, item)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)
	loan := f.checkout(t, f.alice, book.ID).Loan
	f.checkout(t, f.bob, book.ID)

	err := f.svc.DeleteItem(context.Background(), f.admin, book.ID)
	assert.ErrorIs(t, err, ErrRuleViolation)

	// the return hands the copy to bob; cancel first so nothing is out
	reservations, err := f.svc.UserReservations(context.Background(), f.bob)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	require.NoError(t, f.svc.CancelReservation(context.Background(), f.bob, reservations[0].ID))
	_, err = f.svc.ReturnLoan(context.Background(), f.alice, loan.ID)
	require.NoError(t, err)
	_, err = f.svc.Reserve(context.Background(), f.carol, book.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteItem(context.Background(), f.admin, book.ID))
	_, err = f.svc.GetItem(context.Background(), book.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	reservations, err = f.svc.UserReservations(context.Background(), f.carol)
	require.NoError(t, err)
	assert.Empty(t, reservations)
}

func TestSearchItems(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", 1)
	taken := f.addBook(t, "Dune Messiah", 1)
	f.addBook(t, "Neuromancer", 1)
	f.checkout(t, f.alice, taken.ID)

	found, err := f.svc.SearchItems(context.Background(), "dune", "", false)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.svc.SearchItems(context.Background(), "dune", "", true)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dune", found[0].Title)

	found, err = f.svc.SearchItems(context.Background(), "", models.KindCD, false)
	require.NoError(t, err)
	assert.Empty(t, found)
}
