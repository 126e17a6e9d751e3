package library

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-insight/internal/validation"
)

func TestAddReview(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	book := f.book(t, "Dune", "Frank Herbert", "Science Fiction")

	r, err := f.lm.Reviews.Add(alice.ID, book.ID, 4, "great")
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, f.clock.Now(), r.ReviewDate)

	avg, err := f.lm.Reviews.AverageRating(book.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)
}

func TestDuplicateReviewConflicts(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	book := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	_, err := f.lm.Reviews.Add(alice.ID, book.ID, 5, "")
	require.NoError(t, err)

	for _, rating := range []int{1, 3, 5} {
		_, err := f.lm.Reviews.Add(alice.ID, book.ID, rating, "again")
		assert.ErrorIs(t, err, ErrConflict, "rating %d", rating)
	}
	reviews, _ := f.lm.Reviews.ByBook(book.ID)
	assert.Len(t, reviews, 1)
}

func TestAddReviewRejections(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	book := f.book(t, "Dune", "Frank Herbert", "Science Fiction")

	tests := []struct {
		name    string
		userID  string
		bookID  int64
		rating  int
		comment string
		want    error
		field   string
	}{
		{"rating too low", alice.ID, book.ID, 0, "", ErrValidation, "Rating"},
		{"rating too high", alice.ID, book.ID, 6, "", ErrValidation, "Rating"},
		{"comment too long", alice.ID, book.ID, 3, strings.Repeat("x", 1001), ErrValidation, "Comment"},
		{"missing user id", "", book.ID, 3, "", ErrValidation, "UserID"},
		{"unknown user", "ghost", book.ID, 3, "", ErrNotFound, ""},
		{"unknown book", alice.ID, 999, 3, "", ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lm.Reviews.Add(tt.userID, tt.bookID, tt.rating, tt.comment)
			require.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				var fields *validation.RequestValidationError
				require.ErrorAs(t, err, &fields)
				assert.True(t, fields.Has(tt.field), "fields: %v", fields)
			}
		})
	}
}

func TestUpdateAndDeleteReview(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	book := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	r, err := f.lm.Reviews.Add(alice.ID, book.ID, 2, "meh")
	require.NoError(t, err)

	updated, err := f.lm.Reviews.Update(r.ID, 5, "grew on me")
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	_, err = f.lm.Reviews.Update(r.ID, 9, "")
	assert.ErrorIs(t, err, ErrValidation)
	got, err := f.lm.Reviews.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)

	byUser, _ := f.lm.Reviews.ByUser(alice.ID)
	assert.Len(t, byUser, 1)

	require.NoError(t, f.lm.Reviews.Delete(r.ID))
	assert.ErrorIs(t, f.lm.Reviews.Delete(r.ID), ErrNotFound)
	_, err = f.lm.Reviews.Update(r.ID, 3, "")
	assert.ErrorIs(t, err, ErrNotFound)

	// the pair is free again once the review is gone
	_, err = f.lm.Reviews.Add(alice.ID, book.ID, 3, "")
	assert.NoError(t, err)
}
