package library

import (
	"cmp"
	"slices"
	"strings"
)

// ratingAgg accumulates the review ratings of one book.
type ratingAgg struct {
	sum   int
	count int
}

func (r ratingAgg) average() float64 {
	if r.count == 0 {
		return 0
	}
	return float64(r.sum) / float64(r.count)
}

// catalogIndex is the id-keyed lookup built once per aggregate call so joins
// never rescan the base collections.
type catalogIndex struct {
	books     []Book
	booksByID map[int64]Book
	ratings   map[int64]ratingAgg
	usersByID map[string]User
}

// indexParts selects which collections loadIndex pulls beyond the books.
type indexParts struct {
	reviews bool
	users   bool
}

func loadIndex(s Store, parts indexParts) (*catalogIndex, error) {
	books, err := s.ListBooks()
	if err != nil {
		return nil, err
	}
	ix := &catalogIndex{
		books:     books,
		booksByID: make(map[int64]Book, len(books)),
		ratings:   make(map[int64]ratingAgg),
		usersByID: make(map[string]User),
	}
	for _, b := range books {
		ix.booksByID[b.ID] = b
	}

	if parts.reviews {
		reviews, err := s.ListReviews()
		if err != nil {
			return nil, err
		}
		ix.addReviews(reviews)
	}

	if parts.users {
		users, err := s.ListUsers()
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			ix.usersByID[u.ID] = u
		}
	}
	return ix, nil
}

func (ix *catalogIndex) addReviews(reviews []Review) {
	for _, r := range reviews {
		agg := ix.ratings[r.BookID]
		agg.sum += r.Rating
		agg.count++
		ix.ratings[r.BookID] = agg
	}
}

func (ix *catalogIndex) view(b Book) BookView {
	agg := ix.ratings[b.ID]
	return BookView{Book: b, AverageRating: agg.average(), ReviewCount: agg.count}
}

func (ix *catalogIndex) views(keep func(Book) bool) []BookView {
	out := make([]BookView, 0, len(ix.books))
	for _, b := range ix.books {
		if keep == nil || keep(b) {
			out = append(out, ix.view(b))
		}
	}
	return out
}

// joinBorrowing denormalizes br with its user and book. Dangling references
// leave the joined fields blank.
func (ix *catalogIndex) joinBorrowing(br Borrowing) BorrowingView {
	v := BorrowingView{Borrowing: br}
	if u, ok := ix.usersByID[br.UserID]; ok {
		v.UserName = u.Name
		v.UserEmail = u.Email
	}
	if b, ok := ix.booksByID[br.BookID]; ok {
		v.BookTitle = b.Title
		v.BookCode = b.Code
	}
	return v
}

// AverageRating is the mean of ratings, 0 when there are none.
func AverageRating(reviews []Review) float64 {
	var agg ratingAgg
	for _, r := range reviews {
		agg.sum += r.Rating
		agg.count++
	}
	return agg.average()
}

// ------------------ ranking helpers ------------------

// byRatingThenBorrows orders by average rating, then borrow count, both descending.
func byRatingThenBorrows(a, b BookView) int {
	if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
		return c
	}
	return cmp.Compare(b.BorrowCount, a.BorrowCount)
}

// rank sorts views in place with a stable order and truncates to n.
func rank(views []BookView, n int, order func(a, b BookView) int) []BookView {
	slices.SortStableFunc(views, order)
	return truncate(views, n)
}

func truncate[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func countOrDefault(count, def int) int {
	if count <= 0 {
		return def
	}
	return count
}
