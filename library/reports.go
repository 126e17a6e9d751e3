package library

import (
	"strings"
	"time"

	"library-insight/internal/metrics"
)

// BorrowingReport lists borrowings with status counts over the listed set.
type BorrowingReport struct {
	TotalBorrowings     int             `json:"total_borrowings" yaml:"total_borrowings"`
	ActiveBorrowings    int             `json:"active_borrowings" yaml:"active_borrowings"`
	ReturnedBorrowings  int             `json:"returned_borrowings" yaml:"returned_borrowings"`
	OverdueBorrowings   int             `json:"overdue_borrowings" yaml:"overdue_borrowings"`
	CancelledBorrowings int             `json:"cancelled_borrowings" yaml:"cancelled_borrowings"`
	Borrowings          []BorrowingView `json:"borrowings" yaml:"borrowings"`
}

// InventoryFilter narrows the InventoryReport book list. Genre is a
// case-insensitive exact match; Author and Publisher are case-insensitive
// substrings.
type InventoryFilter struct {
	Genre     string
	Author    string
	Publisher string
}

// InventoryReport lists catalog books. The counts cover the listed books;
// the By* breakdowns always cover the whole catalog.
type InventoryReport struct {
	TotalBooks       int            `json:"total_books" yaml:"total_books"`
	AvailableBooks   int            `json:"available_books" yaml:"available_books"`
	BorrowedBooks    int            `json:"borrowed_books" yaml:"borrowed_books"`
	Ebooks           int            `json:"ebooks" yaml:"ebooks"`
	BooksByGenre     map[string]int `json:"books_by_genre" yaml:"books_by_genre"`
	BooksByAuthor    map[string]int `json:"books_by_author" yaml:"books_by_author"`
	BooksByPublisher map[string]int `json:"books_by_publisher" yaml:"books_by_publisher"`
	Books            []BookView     `json:"books" yaml:"books"`
}

// MemberReport lists every user with role and activity counts.
type MemberReport struct {
	TotalMembers    int       `json:"total_members" yaml:"total_members"`
	TotalAdmins     int       `json:"total_admins" yaml:"total_admins"`
	ActiveBorrowers int       `json:"active_borrowers" yaml:"active_borrowers"`
	GeneratedAt     time.Time `json:"generated_at" yaml:"generated_at"`
	Members         []User    `json:"members" yaml:"members"`
}

// BorrowingReport lists borrowings whose effective status equals status,
// ignoring case. A blank status lists all. Listed rows carry the effective
// status.
func (a *Analytics) BorrowingReport(status string) (BorrowingReport, error) {
	defer metrics.ObserveSince("borrowing_report", time.Now())

	ix, err := loadIndex(a.store, indexParts{users: true})
	if err != nil {
		return BorrowingReport{}, err
	}
	borrowings, err := a.store.ListBorrowings()
	if err != nil {
		return BorrowingReport{}, err
	}

	now := a.now()
	status = strings.TrimSpace(status)
	report := BorrowingReport{Borrowings: []BorrowingView{}}
	for _, br := range borrowings {
		br.Status = EffectiveStatus(br, now)
		if status != "" && !strings.EqualFold(string(br.Status), status) {
			continue
		}
		report.TotalBorrowings++
		switch br.Status {
		case StatusActive:
			report.ActiveBorrowings++
		case StatusReturned:
			report.ReturnedBorrowings++
		case StatusOverdue:
			report.OverdueBorrowings++
		case StatusCancelled:
			report.CancelledBorrowings++
		}
		report.Borrowings = append(report.Borrowings, ix.joinBorrowing(br))
	}

	a.log.Debug().Str("status", status).Int("rows", report.TotalBorrowings).Msg("borrowing report")
	return report, nil
}

// InventoryReport lists books matching f.
func (a *Analytics) InventoryReport(f InventoryFilter) (InventoryReport, error) {
	defer metrics.ObserveSince("inventory_report", time.Now())

	ix, err := loadIndex(a.store, indexParts{reviews: true})
	if err != nil {
		return InventoryReport{}, err
	}

	report := InventoryReport{
		BooksByGenre:     make(map[string]int),
		BooksByAuthor:    make(map[string]int),
		BooksByPublisher: make(map[string]int),
	}
	for _, b := range ix.books {
		report.BooksByGenre[b.Genre]++
		report.BooksByAuthor[b.Author]++
		report.BooksByPublisher[b.Publisher]++
	}

	report.Books = ix.views(func(b Book) bool {
		if f.Genre != "" && !strings.EqualFold(b.Genre, f.Genre) {
			return false
		}
		if f.Author != "" && !containsFold(b.Author, f.Author) {
			return false
		}
		return f.Publisher == "" || containsFold(b.Publisher, f.Publisher)
	})
	report.TotalBooks = len(report.Books)
	for _, v := range report.Books {
		switch v.Status {
		case BookAvailable:
			report.AvailableBooks++
		case BookBorrowed:
			report.BorrowedBooks++
		}
		if v.IsEbook {
			report.Ebooks++
		}
	}

	a.log.Debug().
		Str("genre", f.Genre).
		Str("author", f.Author).
		Str("publisher", f.Publisher).
		Int("rows", report.TotalBooks).
		Msg("inventory report")
	return report, nil
}

// MemberReport lists all users. ActiveBorrowers counts users holding at least
// one borrowing that is Active and not yet due.
func (a *Analytics) MemberReport() (MemberReport, error) {
	defer metrics.ObserveSince("member_report", time.Now())

	users, err := a.store.ListUsers()
	if err != nil {
		return MemberReport{}, err
	}
	active, err := a.store.ListActiveBorrowings()
	if err != nil {
		return MemberReport{}, err
	}

	now := a.now()
	borrowers := make(map[string]struct{})
	for _, br := range active {
		if EffectiveStatus(br, now) == StatusActive {
			borrowers[br.UserID] = struct{}{}
		}
	}

	report := MemberReport{GeneratedAt: now, Members: users}
	if report.Members == nil {
		report.Members = []User{}
	}
	report.TotalMembers, report.TotalAdmins = countRoles(users)
	for _, u := range users {
		if _, ok := borrowers[u.ID]; ok {
			report.ActiveBorrowers++
		}
	}
	return report, nil
}
