package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"library-insight/internal/metrics"
)

// DashboardSummary is the headline statistics block.
type DashboardSummary struct {
	TotalBooks     int `json:"total_books" yaml:"total_books"`
	AvailableBooks int `json:"available_books" yaml:"available_books"`
	BorrowedBooks  int `json:"borrowed_books" yaml:"borrowed_books"`
	EbooksCount    int `json:"ebooks_count" yaml:"ebooks_count"`

	TotalMembers int `json:"total_members" yaml:"total_members"`
	TotalAdmins  int `json:"total_admins" yaml:"total_admins"`

	ActiveBorrowings       int `json:"active_borrowings" yaml:"active_borrowings"`
	OverdueBorrowings      int `json:"overdue_borrowings" yaml:"overdue_borrowings"`
	TotalBorrowingsAllTime int `json:"total_borrowings_all_time" yaml:"total_borrowings_all_time"`

	TotalReviews  int     `json:"total_reviews" yaml:"total_reviews"`
	AverageRating float64 `json:"average_rating" yaml:"average_rating"`
}

// BorrowerStats counts one user's borrowings by status.
type BorrowerStats struct {
	UserID            string `json:"user_id" yaml:"user_id"`
	Name              string `json:"name" yaml:"name"`
	Email             string `json:"email" yaml:"email"`
	TotalBorrowings   int    `json:"total_borrowings" yaml:"total_borrowings"`
	ActiveBorrowings  int    `json:"active_borrowings" yaml:"active_borrowings"`
	OverdueBorrowings int    `json:"overdue_borrowings" yaml:"overdue_borrowings"`
}

// MonthCount is the number of borrowings started in one calendar month.
type MonthCount struct {
	Month string `json:"month" yaml:"month"`
	Count int    `json:"count" yaml:"count"`
}

// GenreCount is the number of catalog books in one genre.
type GenreCount struct {
	Genre string `json:"genre" yaml:"genre"`
	Count int    `json:"count" yaml:"count"`
}

// DefaultTrendMonths is the BorrowingTrend window when none is given.
const DefaultTrendMonths = 6

// MaxTrendMonths bounds the BorrowingTrend window.
const MaxTrendMonths = 120

// Analytics computes read-only statistics and reports over the whole store.
// Borrowings are classified by EffectiveStatus at call time.
type Analytics struct {
	store        Store
	defaultCount int
	now          func() time.Time
	log          zerolog.Logger
}

func NewAnalytics(store Store, defaultCount int, now func() time.Time, logger zerolog.Logger) *Analytics {
	return &Analytics{
		store:        store,
		defaultCount: countOrDefault(defaultCount, DefaultCount),
		now:          now,
		log:          logger.With().Str("component", "analytics").Logger(),
	}
}

// Dashboard summarizes books, users, borrowings and reviews.
func (a *Analytics) Dashboard() (DashboardSummary, error) {
	defer metrics.ObserveSince("dashboard", time.Now())

	books, err := a.store.ListBooks()
	if err != nil {
		return DashboardSummary{}, err
	}
	users, err := a.store.ListUsers()
	if err != nil {
		return DashboardSummary{}, err
	}
	borrowings, err := a.store.ListBorrowings()
	if err != nil {
		return DashboardSummary{}, err
	}
	reviews, err := a.store.ListReviews()
	if err != nil {
		return DashboardSummary{}, err
	}

	var s DashboardSummary
	s.TotalBooks = len(books)
	for _, b := range books {
		switch b.Status {
		case BookAvailable:
			s.AvailableBooks++
		case BookBorrowed:
			s.BorrowedBooks++
		}
		if b.IsEbook {
			s.EbooksCount++
		}
	}
	s.TotalMembers, s.TotalAdmins = countRoles(users)

	now := a.now()
	s.TotalBorrowingsAllTime = len(borrowings)
	for _, br := range borrowings {
		switch EffectiveStatus(br, now) {
		case StatusActive:
			s.ActiveBorrowings++
		case StatusOverdue:
			s.OverdueBorrowings++
		}
	}

	s.TotalReviews = len(reviews)
	s.AverageRating = AverageRating(reviews)

	a.log.Debug().Int("books", s.TotalBooks).Int("borrowings", s.TotalBorrowingsAllTime).Msg("dashboard computed")
	return s, nil
}

func countRoles(users []User) (members, admins int) {
	for _, u := range users {
		switch u.Role {
		case RoleMember:
			members++
		case RoleAdmin:
			admins++
		}
	}
	return members, admins
}

// TopBorrowed lists the most borrowed books.
func (a *Analytics) TopBorrowed(count int) ([]BookView, error) {
	return a.topBooks("top_borrowed", count, nil, func(x, y BookView) int {
		return cmp.Compare(y.BorrowCount, x.BorrowCount)
	})
}

// TopViewed lists the most viewed books.
func (a *Analytics) TopViewed(count int) ([]BookView, error) {
	return a.topBooks("top_viewed", count, nil, func(x, y BookView) int {
		return cmp.Compare(y.ViewCount, x.ViewCount)
	})
}

// TopRated lists reviewed books by average rating. Unreviewed books are left out.
func (a *Analytics) TopRated(count int) ([]BookView, error) {
	return a.topBooks("top_rated", count, func(v BookView) bool { return v.ReviewCount > 0 }, func(x, y BookView) int {
		return cmp.Compare(y.AverageRating, x.AverageRating)
	})
}

func (a *Analytics) topBooks(op string, count int, keep func(BookView) bool, order func(x, y BookView) int) ([]BookView, error) {
	defer metrics.ObserveSince(op, time.Now())

	ix, err := loadIndex(a.store, indexParts{reviews: true})
	if err != nil {
		return nil, err
	}
	views := ix.views(nil)
	if keep != nil {
		views = slices.DeleteFunc(views, func(v BookView) bool { return !keep(v) })
	}
	return rank(views, countOrDefault(count, a.defaultCount), order), nil
}

// TopBorrowers ranks users by total borrowings.
func (a *Analytics) TopBorrowers(count int) ([]BorrowerStats, error) {
	defer metrics.ObserveSince("top_borrowers", time.Now())

	ix, err := loadIndex(a.store, indexParts{users: true})
	if err != nil {
		return nil, err
	}
	borrowings, err := a.store.ListBorrowings()
	if err != nil {
		return nil, err
	}

	now := a.now()
	byUser := make(map[string]*BorrowerStats)
	var order []string
	for _, br := range borrowings {
		st, ok := byUser[br.UserID]
		if !ok {
			u := ix.usersByID[br.UserID]
			st = &BorrowerStats{UserID: br.UserID, Name: u.Name, Email: u.Email}
			byUser[br.UserID] = st
			order = append(order, br.UserID)
		}
		st.TotalBorrowings++
		switch EffectiveStatus(br, now) {
		case StatusActive:
			st.ActiveBorrowings++
		case StatusOverdue:
			st.OverdueBorrowings++
		}
	}

	stats := make([]BorrowerStats, 0, len(order))
	for _, id := range order {
		stats = append(stats, *byUser[id])
	}
	slices.SortStableFunc(stats, func(x, y BorrowerStats) int {
		return cmp.Compare(y.TotalBorrowings, x.TotalBorrowings)
	})
	return truncate(stats, countOrDefault(count, a.defaultCount)), nil
}

// BorrowingTrend counts borrowings per calendar month for the last months
// months, oldest first, the current month included.
func (a *Analytics) BorrowingTrend(months int) ([]MonthCount, error) {
	months = countOrDefault(months, DefaultTrendMonths)
	if months > MaxTrendMonths {
		return nil, &ValidationError{Reason: fmt.Sprintf("trend window of %d months exceeds %d", months, MaxTrendMonths)}
	}
	borrowings, err := a.store.ListBorrowings()
	if err != nil {
		return nil, err
	}

	now := a.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	trend := make([]MonthCount, months)
	for i := range trend {
		start := current.AddDate(0, i-(months-1), 0)
		end := start.AddDate(0, 1, 0)
		n := 0
		for _, br := range borrowings {
			if !br.BorrowDate.Before(start) && br.BorrowDate.Before(end) {
				n++
			}
		}
		trend[i] = MonthCount{Month: start.Format("Jan 2006"), Count: n}
	}
	return trend, nil
}

// GenreDistribution counts books per non-blank genre, largest first.
func (a *Analytics) GenreDistribution(count int) ([]GenreCount, error) {
	books, err := a.store.ListBooks()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, b := range books {
		if g := strings.TrimSpace(b.Genre); g != "" {
			counts[g]++
		}
	}

	dist := make([]GenreCount, 0, len(counts))
	for g, n := range counts {
		dist = append(dist, GenreCount{Genre: g, Count: n})
	}
	slices.SortFunc(dist, func(x, y GenreCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Genre, y.Genre)
	})
	return truncate(dist, countOrDefault(count, a.defaultCount)), nil
}
