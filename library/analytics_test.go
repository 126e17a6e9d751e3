package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardEmpty(t *testing.T) {
	f := newFixture(t)
	s, err := f.lm.Analytics.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, DashboardSummary{}, s)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.admin(t, "root")

	b1 := f.book(t, "Dune", "Frank Herbert", "Science Fiction")
	b2 := f.book(t, "Emma", "Jane Austen", "Romance")
	b3 := f.book(t, "It", "Stephen King", "Horror")
	ebook, err := f.lm.AddBook(Book{Title: "Digital", Author: "Ada", IsEbook: true, EbookPath: "digital.txt"})
	require.NoError(t, err)

	_, err = f.lm.Circulation.Checkout(alice.ID, b1.ID)
	require.NoError(t, err)
	f.clock.Advance(DefaultLoanPeriod + time.Hour) // alice's loan is now overdue
	_, err = f.lm.Circulation.Checkout(bob.ID, b2.ID)
	require.NoError(t, err)
	br, err := f.lm.Circulation.Checkout(bob.ID, b3.ID)
	require.NoError(t, err)
	require.NoError(t, f.lm.Circulation.Return(br.ID))

	f.review(t, alice.ID, b1.ID, 5)
	f.review(t, bob.ID, b1.ID, 2)
	f.review(t, bob.ID, ebook.ID, 4)

	s, err := f.lm.Analytics.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, DashboardSummary{
		TotalBooks:             4,
		AvailableBooks:         2,
		BorrowedBooks:          2,
		EbooksCount:            1,
		TotalMembers:           2,
		TotalAdmins:            1,
		ActiveBorrowings:       1,
		OverdueBorrowings:      1,
		TotalBorrowingsAllTime: 3,
		TotalReviews:           3,
		AverageRating:          11.0 / 3.0,
	}, s)
}

func TestTopBooks(t *testing.T) {
	f := newFixture(t)
	critic := f.user(t, "critic")
	a := f.book(t, "A", "X", "Fiction")
	b := f.book(t, "B", "Y", "Fiction")
	c := f.book(t, "C", "Z", "Fiction")
	f.counters(t, a.ID, 9, 1)
	f.counters(t, b.ID, 2, 30)
	f.counters(t, c.ID, 5, 5)
	f.review(t, critic.ID, b.ID, 3)
	f.review(t, critic.ID, c.ID, 5)

	borrowed, err := f.lm.Analytics.TopBorrowed(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID, b.ID}, ids(borrowed))

	viewed, err := f.lm.Analytics.TopViewed(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, ids(viewed))

	rated, err := f.lm.Analytics.TopRated(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID}, ids(rated), "unreviewed books are excluded")
	assert.Equal(t, 1, rated[0].ReviewCount)
}

func TestTopBorrowers(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	books := []Book{
		f.book(t, "A", "X", "Fiction"),
		f.book(t, "B", "Y", "Fiction"),
		f.book(t, "C", "Z", "Fiction"),
	}

	_, err := f.lm.Circulation.Checkout(bob.ID, books[0].ID)
	require.NoError(t, err)
	f.clock.Advance(DefaultLoanPeriod + time.Hour)
	br, err := f.lm.Circulation.Checkout(alice.ID, books[1].ID)
	require.NoError(t, err)
	require.NoError(t, f.lm.Circulation.Return(br.ID))
	_, err = f.lm.Circulation.Checkout(alice.ID, books[2].ID)
	require.NoError(t, err)

	stats, err := f.lm.Analytics.TopBorrowers(10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, BorrowerStats{
		UserID: alice.ID, Name: "alice", Email: "alice@example.com",
		TotalBorrowings: 2, ActiveBorrowings: 1,
	}, stats[0])
	assert.Equal(t, BorrowerStats{
		UserID: bob.ID, Name: "bob", Email: "bob@example.com",
		TotalBorrowings: 1, OverdueBorrowings: 1,
	}, stats[1])

	top, err := f.lm.Analytics.TopBorrowers(1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestBorrowingTrend(t *testing.T) {
	f := newFixture(t) // clock starts 2026-03-10
	alice := f.user(t, "alice")

	at := func(d time.Time, bookID int64) {
		require.NoError(t, f.store.SaveBorrowing(&Borrowing{
			UserID: alice.ID, BookID: bookID, BorrowDate: d, DueDate: d.Add(DefaultLoanPeriod), Status: StatusReturned,
		}))
	}
	book := f.book(t, "A", "X", "Fiction")
	at(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), book.ID)
	at(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), book.ID)
	at(time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC), book.ID)
	at(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), book.ID)
	at(time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC), book.ID) // outside the window

	trend, err := f.lm.Analytics.BorrowingTrend(6)
	require.NoError(t, err)
	assert.Equal(t, []MonthCount{
		{Month: "Oct 2025", Count: 1},
		{Month: "Nov 2025", Count: 0},
		{Month: "Dec 2025", Count: 0},
		{Month: "Jan 2026", Count: 1},
		{Month: "Feb 2026", Count: 0},
		{Month: "Mar 2026", Count: 2},
	}, trend)

	def, err := f.lm.Analytics.BorrowingTrend(0)
	require.NoError(t, err)
	assert.Len(t, def, DefaultTrendMonths)

	longest, err := f.lm.Analytics.BorrowingTrend(MaxTrendMonths)
	require.NoError(t, err)
	assert.Len(t, longest, MaxTrendMonths)

	_, err = f.lm.Analytics.BorrowingTrend(MaxTrendMonths + 1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenreDistribution(t *testing.T) {
	f := newFixture(t)
	f.book(t, "A", "X", "Fantasy")
	f.book(t, "B", "X", "Fantasy")
	f.book(t, "C", "X", "Horror")
	f.book(t, "D", "X", "Biography")
	f.book(t, "E", "X", "Biography")
	f.book(t, "F", "X", "Biography")
	f.book(t, "G", "X", "  ")

	dist, err := f.lm.Analytics.GenreDistribution(10)
	require.NoError(t, err)
	assert.Equal(t, []GenreCount{
		{Genre: "Biography", Count: 3},
		{Genre: "Fantasy", Count: 2},
		{Genre: "Horror", Count: 1},
	}, dist)

	top, err := f.lm.Analytics.GenreDistribution(1)
	require.NoError(t, err)
	assert.Equal(t, []GenreCount{{Genre: "Biography", Count: 3}}, top)
}
