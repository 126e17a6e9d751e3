package library

import (
	"errors"
	"path/filepath"
	"testing"
)

func newManager(t *testing.T) *LibraryManager {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "lib.db"), Options{})
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestAddBookValidation(t *testing.T) {
	mgr := newManager(t)

	tests := []struct {
		name string
		book Book
		ok   bool
	}{
		{"valid", Book{Title: "Dune", Author: "Frank Herbert"}, true},
		{"missing title", Book{Author: "Anon"}, false},
		{"blank author", Book{Title: "Untitled", Author: "   "}, false},
		{"ebook without file", Book{Title: "Digital", Author: "Ada", IsEbook: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := mgr.AddBook(tt.book)
			if tt.ok {
				if err != nil {
					t.Fatalf("add: %v", err)
				}
				if b.ID == 0 || b.Status != BookAvailable {
					t.Fatalf("unexpected book: %+v", b)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestAddUserProvisionsSettings(t *testing.T) {
	mgr := newManager(t)
	u, err := mgr.AddUser("Alice", "alice@example.com", "")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if u.Role != RoleMember {
		t.Fatalf("want default role Member, got %s", u.Role)
	}
	s, err := mgr.Settings.ForUser(u.ID)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Theme != ThemeLight {
		t.Fatalf("want Light theme, got %s", s.Theme)
	}

	if _, err := mgr.AddUser("Bob", "not-an-email", RoleMember); !errors.Is(err, ErrValidation) {
		t.Fatalf("want validation error for bad email, got %v", err)
	}
	if _, err := mgr.GetUser("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestSearchBooksBothStores(t *testing.T) {
	sqliteMgr := newManager(t)
	memMgr, err := NewLibraryManager(MemoryPath, Options{})
	if err != nil {
		t.Fatalf("memory manager: %v", err)
	}

	for _, mgr := range []*LibraryManager{sqliteMgr, memMgr} {
		if _, err := mgr.AddBook(Book{Title: "The Hobbit", Author: "J.R.R. Tolkien", Genre: "Fantasy"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := mgr.AddBook(Book{Title: "Emma", Author: "Jane Austen", Genre: "Romance"}); err != nil {
			t.Fatalf("add: %v", err)
		}
		res, err := mgr.SearchBooks("Tolkien")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != 1 || res[0].Title != "The Hobbit" {
			t.Fatalf("unexpected search results: %+v", res)
		}
	}
}

// TestEndToEndOnSQLite runs one lending cycle through every component on the
// SQLite store.
func TestEndToEndOnSQLite(t *testing.T) {
	mgr := newManager(t)
	alice, err := mgr.AddUser("Alice", "alice@example.com", RoleMember)
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	dune, _ := mgr.AddBook(Book{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction"})
	messiah, _ := mgr.AddBook(Book{Title: "Dune Messiah", Author: "Frank Herbert", Genre: "Science Fiction"})

	br, err := mgr.Circulation.Checkout(alice.ID, dune.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := mgr.Circulation.Checkout(alice.ID, dune.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("want conflict on second checkout, got %v", err)
	}
	if err := mgr.Circulation.Return(br.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := mgr.Reviews.Add(alice.ID, dune.ID, 5, "classic"); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := mgr.Reviews.Add(alice.ID, dune.ID, 4, "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("want conflict on duplicate review, got %v", err)
	}

	recs, err := mgr.Recommend.ForUser(alice.ID, 5)
	if err != nil {
		t.Fatalf("for user: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != messiah.ID {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}

	summary, err := mgr.Analytics.Dashboard()
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.TotalBorrowingsAllTime != 1 || summary.TotalReviews != 1 || summary.AverageRating != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	notes, err := mgr.Notifications.List(alice.ID, false)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("want checkout notification, got %d", len(notes))
	}
}
