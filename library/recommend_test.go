package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageRating(t *testing.T) {
	reviews := []Review{{Rating: 5}, {Rating: 3}, {Rating: 4}}
	assert.InDelta(t, 4.0, AverageRating(reviews), 1e-9)
	assert.Zero(t, AverageRating(nil))
}

func TestBookViewAggregates(t *testing.T) {
	f := newFixture(t)
	rated := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	unrated := f.book(t, "Emma", "Jane Austen", "Romance")
	for i, r := range []int{5, 3, 4} {
		u := f.user(t, string(rune('a'+i))+"reader")
		f.review(t, u.ID, rated.ID, r)
	}

	v, err := f.lm.GetBook(rated.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v.AverageRating, 1e-9)
	assert.Equal(t, 3, v.ReviewCount)

	v, err = f.lm.GetBook(unrated.ID)
	require.NoError(t, err)
	assert.Zero(t, v.AverageRating)
	assert.Zero(t, v.ReviewCount)
}

func TestTrendingOrdersByBorrowsPlusViews(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "A", "Author A", "Fiction")
	b := f.book(t, "B", "Author B", "Fiction")
	c := f.book(t, "C", "Author C", "Fiction")
	f.counters(t, a.ID, 10, 5)
	f.counters(t, b.ID, 3, 20)
	f.counters(t, c.ID, 1, 1)

	got, err := f.lm.Recommend.Trending(3)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, ids(got))

	top, err := f.lm.Recommend.Trending(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids(top))
}

func TestTrendingTieBreaksOnRating(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "reader")
	low := f.book(t, "Low", "X", "Fiction")
	high := f.book(t, "High", "Y", "Fiction")
	f.counters(t, low.ID, 2, 2)
	f.counters(t, high.ID, 1, 3)
	f.review(t, reader.ID, low.ID, 2)
	f.review(t, reader.ID, high.ID, 5)

	got, err := f.lm.Recommend.Trending(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{high.ID, low.ID}, ids(got))
}

func TestByPreferences(t *testing.T) {
	f := newFixture(t)
	r1 := f.user(t, "r1")
	r2 := f.user(t, "r2")

	dune := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	emma := f.book(t, "Emma", "Jane Austen", "Romance")
	hobbit := f.book(t, "The Hobbit", "J.R.R. Tolkien", "Fantasy Fiction")
	unrated := f.book(t, "Children of Dune", "Frank Herbert", "Science Fiction")

	f.review(t, r1.ID, dune.ID, 4)
	f.review(t, r2.ID, dune.ID, 5) // 4.5
	f.review(t, r1.ID, emma.ID, 3)
	f.review(t, r1.ID, hobbit.ID, 5) // 5.0
	f.counters(t, unrated.ID, 50, 0)

	t.Run("genre substring ignores case", func(t *testing.T) {
		got, err := f.lm.Recommend.ByPreferences(Preferences{Genre: "fiction"})
		require.NoError(t, err)
		assert.Equal(t, []int64{hobbit.ID, dune.ID, unrated.ID}, ids(got))
	})

	t.Run("author substring", func(t *testing.T) {
		got, err := f.lm.Recommend.ByPreferences(Preferences{Author: "herbert"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{dune.ID, unrated.ID}, ids(got))
	})

	t.Run("min rating drops unrated and low rated", func(t *testing.T) {
		got, err := f.lm.Recommend.ByPreferences(Preferences{MinRating: 4})
		require.NoError(t, err)
		assert.Equal(t, []int64{hobbit.ID, dune.ID}, ids(got))
	})

	t.Run("no filter keeps everything", func(t *testing.T) {
		got, err := f.lm.Recommend.ByPreferences(Preferences{})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("count truncates", func(t *testing.T) {
		got, err := f.lm.Recommend.ByPreferences(Preferences{Count: 1})
		require.NoError(t, err)
		assert.Equal(t, []int64{hobbit.ID}, ids(got))
	})
}

func TestByPreferencesBreaksRatingTiesOnBorrows(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "A", "X", "Mystery")
	b := f.book(t, "B", "Y", "Mystery")
	f.counters(t, b.ID, 7, 0)

	got, err := f.lm.Recommend.ByPreferences(Preferences{Genre: "mystery"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, ids(got))
}

func TestSimilar(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "reader")

	target := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	sameBoth := f.book(t, "Dune Messiah", "Frank Herbert", "Science Fiction")
	sameGenre := f.book(t, "Foundation", "Isaac Asimov", "Science Fiction")
	sameAuthor := f.book(t, "The Dosadi Experiment", "Frank Herbert", "Space Opera")
	unrelated := f.book(t, "Emma", "Jane Austen", "Romance")
	f.review(t, reader.ID, sameGenre.ID, 5)
	f.review(t, reader.ID, unrelated.ID, 5)

	got, err := f.lm.Recommend.Similar(target.ID, 5)
	require.NoError(t, err)
	// 3.0, 2.5, 1.0
	assert.Equal(t, []int64{sameBoth.ID, sameGenre.ID, sameAuthor.ID}, ids(got))
	assert.NotContains(t, ids(got), target.ID)
	assert.NotContains(t, ids(got), unrelated.ID)

	got, err = f.lm.Recommend.Similar(target.ID, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSimilarUnknownBook(t *testing.T) {
	f := newFixture(t)
	f.book(t, "Dune", "Frank Herbert", "Science Fiction")

	got, err := f.lm.Recommend.Similar(999, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestForUser(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	critic := f.user(t, "critic")

	read := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	byGenre := f.book(t, "Foundation", "Isaac Asimov", "Science Fiction")
	byAuthor := f.book(t, "The White Plague", "Frank Herbert", "Thriller")
	unrelated := f.book(t, "Emma", "Jane Austen", "Romance")
	f.review(t, critic.ID, byAuthor.ID, 5)

	br, err := f.lm.Circulation.Checkout(alice.ID, read.ID)
	require.NoError(t, err)
	require.NoError(t, f.lm.Circulation.Return(br.ID))

	got, err := f.lm.Recommend.ForUser(alice.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{byAuthor.ID, byGenre.ID}, ids(got))
	assert.NotContains(t, ids(got), read.ID)
	assert.NotContains(t, ids(got), unrelated.ID)
}

func TestForUserWithoutHistoryFallsBackToTrending(t *testing.T) {
	f := newFixture(t)
	newcomer := f.user(t, "newcomer")
	quiet := f.book(t, "Quiet", "X", "Fiction")
	busy := f.book(t, "Busy", "Y", "Romance")
	f.counters(t, busy.ID, 4, 4)

	got, err := f.lm.Recommend.ForUser(newcomer.ID, 10)
	require.NoError(t, err)
	want, err := f.lm.Recommend.Trending(10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []int64{busy.ID, quiet.ID}, ids(got))
}

func TestRecommendationsSeeFreshCounters(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "A", "X", "Fiction")
	b := f.book(t, "B", "Y", "Fiction")

	got, _ := f.lm.Recommend.Trending(2)
	assert.Equal(t, []int64{a.ID, b.ID}, ids(got))

	_, err := f.lm.Circulation.RecordView(b.ID)
	require.NoError(t, err)

	got, _ = f.lm.Recommend.Trending(2)
	assert.Equal(t, []int64{b.ID, a.ID}, ids(got))
}
