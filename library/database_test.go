package library

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, s Store, name string) User {
	t.Helper()
	u := User{Name: name, Email: strings.ToLower(name) + "@example.com", Role: RoleMember, CreatedAt: time.Now()}
	if err := s.SaveUser(&u); err != nil {
		t.Fatalf("save user %s: %v", name, err)
	}
	return u
}

func seedBook(t *testing.T, s Store, title, author, genre string) Book {
	t.Helper()
	b := Book{Title: title, Author: author, Genre: genre}
	if err := s.SaveBook(&b); err != nil {
		t.Fatalf("save book %s: %v", title, err)
	}
	return b
}

func TestLargeTextInsertAndSearch(t *testing.T) {
	db := tempDB(t)
	huge := strings.Repeat("lorem ipsum ", 50_000) // ~550 KB
	b := Book{Title: "Epic", Author: "Homer", Description: huge}
	if err := db.SaveBook(&b); err != nil {
		t.Fatalf("add book: %v", err)
	}
	seedBook(t, db, "Other", "Someone", "Poetry")

	res, err := db.SearchBooks("Homer")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 1 || res[0].ID != b.ID {
		t.Fatalf("want 1 result for Homer, got %d", len(res))
	}
}

func TestSearchFollowsTitleUpdates(t *testing.T) {
	db := tempDB(t)
	b := seedBook(t, db, "Old Title", "Author", "Fiction")

	b.Title = "Dune"
	b.ViewCount = 3
	if err := db.SaveBook(&b); err != nil {
		t.Fatalf("update: %v", err)
	}

	if res, _ := db.SearchBooks("Dune"); len(res) != 1 {
		t.Fatalf("want new title indexed, got %d results", len(res))
	}
	if res, _ := db.SearchBooks("Old"); len(res) != 0 {
		t.Fatalf("want old title gone, got %d results", len(res))
	}
}

func TestIncrementViewCountTouchesOnlyCounter(t *testing.T) {
	db := tempDB(t)
	b := seedBook(t, db, "Dune", "Frank Herbert", "Science Fiction")
	if _, err := db.db.Exec(`UPDATE books SET status=?, borrow_count=2 WHERE id=?`, BookBorrowed, b.ID); err != nil {
		t.Fatalf("lend: %v", err)
	}

	got, err := db.IncrementViewCount(b.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got.ViewCount != 1 || got.BorrowCount != 2 || got.Status != BookBorrowed {
		t.Fatalf("unexpected book after view: %+v", got)
	}
	if res, _ := db.SearchBooks("Herbert"); len(res) != 1 {
		t.Fatalf("want book still indexed, got %d results", len(res))
	}
	if _, err := db.IncrementViewCount(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestSearchTreatsQuerySyntaxAsText(t *testing.T) {
	db := tempDB(t)
	dune := seedBook(t, db, "Dune", "Frank Herbert", "Science Fiction")
	seedBook(t, db, "Pride and Prejudice", "Jane Austen", "Classic")

	tests := []struct {
		q    string
		want int
	}{
		{`"Dune`, 1},
		{`Dune"`, 1},
		{`AND`, 1},
		{`OR NOT`, 0},
		{`frank -herbert`, 1},
		{`dune*`, 1},
		{`"`, 0},
		{`( ) :`, 0},
	}
	for _, tt := range tests {
		res, err := db.SearchBooks(tt.q)
		if err != nil {
			t.Fatalf("search %q: %v", tt.q, err)
		}
		if len(res) != tt.want {
			t.Fatalf("search %q: want %d results, got %d", tt.q, tt.want, len(res))
		}
	}

	res, _ := db.SearchBooks(`"Dune`)
	if res[0].ID != dune.ID {
		t.Fatalf("want Dune, got %+v", res[0])
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		`"Dune`:            `"Dune"`,
		`Tolkien's Hobbit`: `"Tolkien" "s" "Hobbit"`,
		`a AND b`:          `"a" "AND" "b"`,
		`  `:               ``,
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedBook(t, db, "Persisted", "Writer", "")
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	books, err := db.ListBooks()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 1 || books[0].Status != BookAvailable {
		t.Fatalf("unexpected books after reopen: %+v", books)
	}
}

func TestCheckoutFlow(t *testing.T) {
	db := tempDB(t)
	book := seedBook(t, db, "Book", "Author", "")
	user := seedUser(t, db, "Alice")

	now := time.Now()
	br := Borrowing{UserID: user.ID, BookID: book.ID, BorrowDate: now, DueDate: now.Add(time.Hour), Status: StatusActive, UpdatedAt: now}
	lent := book
	lent.Status = BookBorrowed
	lent.BorrowCount = 1
	if err := db.CommitCheckout(&br, &lent); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if br.ID == 0 {
		t.Fatalf("borrowing id not assigned")
	}

	// second checkout of the same copy must be refused
	again := Borrowing{UserID: user.ID, BookID: book.ID, BorrowDate: now, DueDate: now.Add(time.Hour), Status: StatusActive, UpdatedAt: now}
	if err := db.CommitCheckout(&again, &lent); !errors.Is(err, ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	ret := now.Add(time.Minute)
	br.Status = StatusReturned
	br.ReturnDate = &ret
	lent.Status = BookAvailable
	if err := db.CommitRelease(&br, &lent); err != nil {
		t.Fatalf("return: %v", err)
	}

	stored, ok, err := db.GetBorrowing(br.ID)
	if err != nil || !ok {
		t.Fatalf("get borrowing: %v %v", ok, err)
	}
	if stored.Status != StatusReturned || stored.ReturnDate == nil || !stored.ReturnDate.Equal(ret) {
		t.Fatalf("unexpected borrowing after return: %+v", stored)
	}
	got, _, _ := db.GetBook(book.ID)
	if got.Status != BookAvailable || got.BorrowCount != 1 {
		t.Fatalf("unexpected book after return: %+v", got)
	}
	all, _ := db.ListBorrowings()
	if len(all) != 1 {
		t.Fatalf("want 1 borrowing, got %d", len(all))
	}
}

func TestCommitCheckoutMissingBook(t *testing.T) {
	db := tempDB(t)
	user := seedUser(t, db, "Alice")
	ghost := Book{ID: 99, Status: BookBorrowed, BorrowCount: 1}
	br := Borrowing{UserID: user.ID, BookID: 99, Status: StatusActive}
	if err := db.CommitCheckout(&br, &ghost); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestConcurrentCheckouts(t *testing.T) {
	db := tempDB(t)
	book := seedBook(t, db, "Popular", "Author", "")
	circ := NewCirculation(db, time.Hour, time.Now, nil, zerolog.Nop())

	const workers = 8
	users := make([]User, workers)
	for i := range users {
		users[i] = seedUser(t, db, "Member"+string(rune('A'+i)))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := circ.Checkout(userID, book.ID)
			switch {
			case err == nil:
				mu.Lock()
				successes++
				mu.Unlock()
			case !errors.Is(err, ErrConflict):
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("want exactly 1 successful checkout, got %d", successes)
	}
	active, _ := db.ListActiveBorrowings()
	if len(active) != 1 {
		t.Fatalf("want 1 active borrowing, got %d", len(active))
	}
	got, _, _ := db.GetBook(book.ID)
	if got.BorrowCount != 1 || got.Status != BookBorrowed {
		t.Fatalf("unexpected book state: %+v", got)
	}
}

func TestReviewUniqueConstraint(t *testing.T) {
	db := tempDB(t)
	book := seedBook(t, db, "Book", "Author", "")
	user := seedUser(t, db, "Alice")

	first := Review{UserID: user.ID, BookID: book.ID, Rating: 5, ReviewDate: time.Now()}
	if err := db.SaveReview(&first); err != nil {
		t.Fatalf("first review: %v", err)
	}
	dup := Review{UserID: user.ID, BookID: book.ID, Rating: 1, ReviewDate: time.Now()}
	err := db.SaveReview(&dup)
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("want *ConflictError, got %v", err)
	}

	has, err := db.UserHasReviewed(user.ID, book.ID)
	if err != nil || !has {
		t.Fatalf("user has reviewed: %v %v", has, err)
	}
	if err := db.DeleteReview(first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if has, _ := db.UserHasReviewed(user.ID, book.ID); has {
		t.Fatalf("review should be gone")
	}
}

func TestUserSettingsUnique(t *testing.T) {
	db := tempDB(t)
	user := seedUser(t, db, "Alice")

	s := UserSetting{UserID: user.ID, Theme: ThemeLight}
	if err := db.SaveUserSetting(&s); err != nil {
		t.Fatalf("save setting: %v", err)
	}
	dup := UserSetting{UserID: user.ID, Theme: ThemeDark}
	if err := db.SaveUserSetting(&dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	got, ok, err := db.GetUserSettingByUser(user.ID)
	if err != nil || !ok || got.Theme != ThemeLight {
		t.Fatalf("get setting: %+v %v %v", got, ok, err)
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	db := tempDB(t)
	user := seedUser(t, db, "Alice")

	for _, msg := range []string{"first", "second", "third"} {
		n := Notification{UserID: user.ID, Message: msg, Timestamp: time.Now()}
		if err := db.SaveNotification(&n); err != nil {
			t.Fatalf("save notification: %v", err)
		}
	}
	list, err := db.ListNotificationsByUser(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Message != "third" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if err := db.MarkAllNotificationsRead(user.ID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	list, _ = db.ListNotificationsByUser(user.ID)
	for _, n := range list {
		if !n.IsRead {
			t.Fatalf("notification %d still unread", n.ID)
		}
	}
}

func TestUserRoundTrip(t *testing.T) {
	db := tempDB(t)
	u := seedUser(t, db, "Alice")
	if u.ID == "" {
		t.Fatalf("user id not generated")
	}

	u.Role = RoleAdmin
	if err := db.SaveUser(&u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, ok, err := db.GetUser(u.ID)
	if err != nil || !ok {
		t.Fatalf("get user: %v %v", ok, err)
	}
	if got.Role != RoleAdmin || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if exists, _ := db.UserExists("nobody"); exists {
		t.Fatalf("unknown user reported as existing")
	}
}
