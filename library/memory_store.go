package library

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps every record in-process. It backs tests and ephemeral runs.
type MemoryStore struct {
	mu            sync.RWMutex
	books         map[int64]Book
	borrowings    map[int64]Borrowing
	reviews       map[int64]Review
	users         map[string]User
	notifications map[int64]Notification
	settings      map[int64]UserSetting
	seq           map[string]int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:         make(map[int64]Book),
		borrowings:    make(map[int64]Borrowing),
		reviews:       make(map[int64]Review),
		users:         make(map[string]User),
		notifications: make(map[int64]Notification),
		settings:      make(map[int64]UserSetting),
		seq:           make(map[string]int64),
	}
}

// id hands out the next identifier of table, starting at 1 like an SQLite
// rowid. Callers hold mu.
func (m *MemoryStore) id(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

func sortedValues[K comparable, V any](src map[K]V, keep func(V) bool, order func(a, b V) int) []V {
	res := make([]V, 0, len(src))
	for _, v := range src {
		if keep == nil || keep(v) {
			res = append(res, v)
		}
	}
	slices.SortFunc(res, order)
	return res
}

// ------------------ Books ------------------

func bookOrder(a, b Book) int { return cmp.Compare(a.ID, b.ID) }

func (m *MemoryStore) ListBooks() ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.books, nil, bookOrder), nil
}

func (m *MemoryStore) GetBook(id int64) (Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) SaveBook(b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id("books")
	}
	if b.Status == "" {
		b.Status = BookAvailable
	}
	m.books[b.ID] = *b
	return nil
}

// ------------------ Borrowings ------------------

func borrowingOrder(a, b Borrowing) int { return cmp.Compare(a.ID, b.ID) }

func (m *MemoryStore) listBorrowings(keep func(Borrowing) bool) ([]Borrowing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.borrowings, keep, borrowingOrder), nil
}

func (m *MemoryStore) ListBorrowings() ([]Borrowing, error) { return m.listBorrowings(nil) }

func (m *MemoryStore) ListBorrowingsByUser(userID string) ([]Borrowing, error) {
	return m.listBorrowings(func(b Borrowing) bool { return b.UserID == userID })
}

func (m *MemoryStore) ListBorrowingsByBook(bookID int64) ([]Borrowing, error) {
	return m.listBorrowings(func(b Borrowing) bool { return b.BookID == bookID })
}

func (m *MemoryStore) ListActiveBorrowings() ([]Borrowing, error) {
	return m.listBorrowings(func(b Borrowing) bool { return b.Status == StatusActive })
}

func (m *MemoryStore) ListOverdueBorrowings() ([]Borrowing, error) {
	return m.listBorrowings(func(b Borrowing) bool { return b.Status == StatusOverdue })
}

func (m *MemoryStore) GetBorrowing(id int64) (Borrowing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.borrowings[id]
	return b, ok, nil
}

func (m *MemoryStore) SaveBorrowing(br *Borrowing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveBorrowingLocked(br)
	return nil
}

func (m *MemoryStore) saveBorrowingLocked(br *Borrowing) {
	if br.ID == 0 {
		br.ID = m.id("borrowings")
	}
	m.borrowings[br.ID] = *br
}

// CommitCheckout writes the borrowing and the book together, refusing when the
// stored book is no longer available.
func (m *MemoryStore) CommitCheckout(br *Borrowing, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.books[book.ID]
	if !ok {
		return notFound("book", book.ID)
	}
	if current.Status != BookAvailable {
		return conflict("book %d is not available (status %s)", book.ID, current.Status)
	}
	m.saveBorrowingLocked(br)
	current.Status = book.Status
	current.BorrowCount++
	m.books[book.ID] = current
	*book = current
	return nil
}

// CommitRelease closes an open borrowing and sets its book's status together.
func (m *MemoryStore) CommitRelease(br *Borrowing, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.borrowings[br.ID]
	if !ok || current.Status.Terminal() {
		return notFound("open borrowing", br.ID)
	}
	current.Status = br.Status
	current.ReturnDate = br.ReturnDate
	current.UpdatedAt = br.UpdatedAt
	m.borrowings[br.ID] = current
	if book != nil {
		if stored, ok := m.books[book.ID]; ok {
			stored.Status = book.Status
			m.books[book.ID] = stored
		}
	}
	return nil
}

func (m *MemoryStore) IncrementViewCount(id int64) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return Book{}, notFound("book", id)
	}
	b.ViewCount++
	m.books[id] = b
	return b, nil
}

func (m *MemoryStore) MarkBorrowingOverdue(id int64, now time.Time) (Borrowing, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	br, ok := m.borrowings[id]
	if !ok {
		return Borrowing{}, false, notFound("borrowing", id)
	}
	if br.Status != StatusActive || !br.DueDate.Before(now) {
		return br, false, nil
	}
	br.Status = StatusOverdue
	br.UpdatedAt = now
	m.borrowings[id] = br
	return br, true, nil
}

// ------------------ Reviews ------------------

func reviewOrder(a, b Review) int { return cmp.Compare(a.ID, b.ID) }

func (m *MemoryStore) listReviews(keep func(Review) bool) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.reviews, keep, reviewOrder), nil
}

func (m *MemoryStore) ListReviews() ([]Review, error) { return m.listReviews(nil) }

func (m *MemoryStore) ListReviewsByBook(bookID int64) ([]Review, error) {
	return m.listReviews(func(r Review) bool { return r.BookID == bookID })
}

func (m *MemoryStore) ListReviewsByUser(userID string) ([]Review, error) {
	return m.listReviews(func(r Review) bool { return r.UserID == userID })
}

func (m *MemoryStore) GetReview(id int64) (Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

func (m *MemoryStore) UserHasReviewed(userID string, bookID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews {
		if r.UserID == userID && r.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) SaveReview(r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.ID != r.ID && existing.UserID == r.UserID && existing.BookID == r.BookID {
			return conflict("user %s has already reviewed book %d", r.UserID, r.BookID)
		}
	}
	if r.ID == 0 {
		r.ID = m.id("reviews")
	}
	m.reviews[r.ID] = *r
	return nil
}

func (m *MemoryStore) DeleteReview(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews, id)
	return nil
}

// ------------------ Users ------------------

func (m *MemoryStore) ListUsers() ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.users, nil, func(a, b User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}), nil
}

func (m *MemoryStore) GetUser(id string) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) UserExists(id string) (bool, error) {
	_, ok, err := m.GetUser(id)
	return ok, err
}

func (m *MemoryStore) SaveUser(u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = *u
	return nil
}

// ------------------ Notifications ------------------

func (m *MemoryStore) ListNotificationsByUser(userID string) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.notifications,
		func(n Notification) bool { return n.UserID == userID },
		func(a, b Notification) int { return cmp.Compare(b.ID, a.ID) }), nil
}

func (m *MemoryStore) GetNotification(id int64) (Notification, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	return n, ok, nil
}

func (m *MemoryStore) SaveNotification(n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		n.ID = m.id("notifications")
	}
	m.notifications[n.ID] = *n
	return nil
}

func (m *MemoryStore) MarkAllNotificationsRead(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.notifications[id] = n
		}
	}
	return nil
}

func (m *MemoryStore) DeleteNotification(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifications, id)
	return nil
}

// ------------------ Settings ------------------

func (m *MemoryStore) GetUserSetting(id int64) (UserSetting, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[id]
	return s, ok, nil
}

func (m *MemoryStore) GetUserSettingByUser(userID string) (UserSetting, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.settings {
		if s.UserID == userID {
			return s, true, nil
		}
	}
	return UserSetting{}, false, nil
}

func (m *MemoryStore) SaveUserSetting(s *UserSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.settings {
		if existing.ID != s.ID && existing.UserID == s.UserID {
			return conflict("user %s already has settings", s.UserID)
		}
	}
	if s.ID == 0 {
		s.ID = m.id("settings")
	}
	m.settings[s.ID] = *s
	return nil
}

func (m *MemoryStore) DeleteUserSetting(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, id)
	return nil
}
