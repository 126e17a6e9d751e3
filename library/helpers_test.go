package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	lm    *LibraryManager
	store *MemoryStore
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemoryStore()
	clock := newFakeClock()
	lm := NewManagerWithStore(store, Options{Now: clock.Now})
	t.Cleanup(func() { lm.Close() })
	return &fixture{lm: lm, store: store, clock: clock}
}

func (f *fixture) user(t *testing.T, name string) User {
	t.Helper()
	u, err := f.lm.AddUser(name, name+"@example.com", RoleMember)
	require.NoError(t, err)
	return u
}

func (f *fixture) admin(t *testing.T, name string) User {
	t.Helper()
	u, err := f.lm.AddUser(name, name+"@example.com", RoleAdmin)
	require.NoError(t, err)
	return u
}

func (f *fixture) book(t *testing.T, title, author, genre string) Book {
	t.Helper()
	b, err := f.lm.AddBook(Book{Title: title, Author: author, Genre: genre, Publisher: "Acme"})
	require.NoError(t, err)
	return b
}

// counters overwrites the circulation counters of a stored book.
func (f *fixture) counters(t *testing.T, id int64, borrows, views int) {
	t.Helper()
	b, ok, err := f.store.GetBook(id)
	require.NoError(t, err)
	require.True(t, ok)
	b.BorrowCount = borrows
	b.ViewCount = views
	require.NoError(t, f.store.SaveBook(&b))
}

func (f *fixture) review(t *testing.T, userID string, bookID int64, rating int) {
	t.Helper()
	_, err := f.lm.Reviews.Add(userID, bookID, rating, "")
	require.NoError(t, err)
}

func ids(views []BookView) []int64 {
	out := make([]int64, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
