package circulation

import (
	"context"
	"testing"

	"libraryms/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReviewUpdatesAverage(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)

	_, err := f.svc.AddReview(context.Background(), f.alice, book.ID, 4, "  solid  ")
	require.NoError(t, err)
	f.clock.Advance(day)
	_, err = f.svc.AddReview(context.Background(), f.bob, book.ID, 5, "great")
	require.NoError(t, err)

	item, err := f.svc.GetItem(context.Background(), book.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, item.AverageRating, 1e-9)
	require.Len(t, item.Reviews, 2)
	assert.Equal(t, "great", item.Reviews[0].Comment)
	assert.Equal(t, "solid", item.Reviews[1].Comment)
}

func TestAddReviewRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", 1)

	_, err := f.svc.AddReview(context.Background(), f.alice, book.ID, 0, "")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	_, err = f.svc.AddReview(context.Background(), f.alice, book.ID, 6, "")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	_, err = f.svc.AddReview(context.Background(), f.alice, 404, 3, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
