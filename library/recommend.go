package library

import (
	"cmp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"library-insight/internal/metrics"
)

// Default result sizes.
const (
	DefaultCount        = 10
	DefaultSimilarCount = 5
)

// Similarity weights.
const (
	genreWeight  = 2.0
	authorWeight = 1.0
	ratingScale  = 10.0
)

// Preferences filter ByPreferences. Genre and Author are case-insensitive
// substrings; blank means no filter. A positive MinRating drops unrated books.
type Preferences struct {
	Genre     string
	Author    string
	MinRating float64
	Count     int
}

// Recommender ranks books. Every call reads the store fresh so the counters
// and rating aggregates are current.
type Recommender struct {
	store        Store
	defaultCount int
	similarCount int
	log          zerolog.Logger
}

func NewRecommender(store Store, defaultCount, similarCount int, logger zerolog.Logger) *Recommender {
	return &Recommender{
		store:        store,
		defaultCount: countOrDefault(defaultCount, DefaultCount),
		similarCount: countOrDefault(similarCount, DefaultSimilarCount),
		log:          logger.With().Str("component", "recommend").Logger(),
	}
}

func (r *Recommender) index() (*catalogIndex, error) {
	return loadIndex(r.store, indexParts{reviews: true})
}

// ByPreferences lists books matching p, best rated first, then most borrowed.
func (r *Recommender) ByPreferences(p Preferences) ([]BookView, error) {
	defer metrics.ObserveSince("preferences", time.Now())

	ix, err := r.index()
	if err != nil {
		return nil, err
	}
	views := ix.views(func(b Book) bool {
		if p.Genre != "" && !containsFold(b.Genre, p.Genre) {
			return false
		}
		return p.Author == "" || containsFold(b.Author, p.Author)
	})
	if p.MinRating > 0 {
		rated := views[:0]
		for _, v := range views {
			if v.ReviewCount > 0 && v.AverageRating >= p.MinRating {
				rated = append(rated, v)
			}
		}
		views = rated
	}

	out := rank(views, countOrDefault(p.Count, r.defaultCount), byRatingThenBorrows)
	r.log.Debug().
		Str("genre", p.Genre).
		Str("author", p.Author).
		Float64("min_rating", p.MinRating).
		Int("results", len(out)).
		Msg("preference recommendations")
	return out, nil
}

// Similar ranks books sharing a genre or author with bookID. An unknown
// bookID yields an empty list.
func (r *Recommender) Similar(bookID int64, count int) ([]BookView, error) {
	defer metrics.ObserveSince("similar", time.Now())

	ix, err := r.index()
	if err != nil {
		return nil, err
	}
	target, ok := ix.booksByID[bookID]
	if !ok {
		return []BookView{}, nil
	}

	views := ix.views(func(b Book) bool {
		return b.ID != target.ID && (b.Genre == target.Genre || b.Author == target.Author)
	})
	return rank(views, countOrDefault(count, r.similarCount), func(a, b BookView) int {
		return cmp.Compare(similarity(target, b), similarity(target, a))
	}), nil
}

func similarity(target Book, v BookView) float64 {
	score := v.AverageRating / ratingScale
	if v.Genre == target.Genre {
		score += genreWeight
	}
	if v.Author == target.Author {
		score += authorWeight
	}
	return score
}

// ForUser recommends unread books in the genres and authors userID has
// borrowed before. Users without history get Trending.
func (r *Recommender) ForUser(userID string, count int) ([]BookView, error) {
	history, err := r.store.ListBorrowingsByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		r.log.Debug().Str("user_id", userID).Msg("no borrowing history, falling back to trending")
		return r.Trending(count)
	}

	defer metrics.ObserveSince("personalized", time.Now())
	ix, err := r.index()
	if err != nil {
		return nil, err
	}

	borrowed := make(map[int64]struct{}, len(history))
	genres := make(map[string]struct{})
	authors := make(map[string]struct{})
	for _, br := range history {
		borrowed[br.BookID] = struct{}{}
		if b, ok := ix.booksByID[br.BookID]; ok {
			genres[b.Genre] = struct{}{}
			authors[b.Author] = struct{}{}
		}
	}

	views := ix.views(func(b Book) bool {
		if _, seen := borrowed[b.ID]; seen {
			return false
		}
		_, g := genres[b.Genre]
		_, a := authors[b.Author]
		return g || a
	})
	out := rank(views, countOrDefault(count, r.defaultCount), byRatingThenBorrows)
	r.log.Debug().Str("user_id", userID).Int("results", len(out)).Msg("personalized recommendations")
	return out, nil
}

// Trending orders books by borrows plus views, then by average rating.
func (r *Recommender) Trending(count int) ([]BookView, error) {
	defer metrics.ObserveSince("trending", time.Now())

	ix, err := r.index()
	if err != nil {
		return nil, err
	}
	return rank(ix.views(nil), countOrDefault(count, r.defaultCount), func(a, b BookView) int {
		if c := cmp.Compare(b.BorrowCount+b.ViewCount, a.BorrowCount+a.ViewCount); c != 0 {
			return c
		}
		return cmp.Compare(b.AverageRating, a.AverageRating)
	}), nil
}

// Search matches title, author or genre by case-insensitive substring, for
// stores without a full-text index.
func (r *Recommender) Search(q string) ([]BookView, error) {
	ix, err := r.index()
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	return ix.views(func(b Book) bool {
		return q != "" && (containsFold(b.Title, q) || containsFold(b.Author, q) || containsFold(b.Genre, q))
	}), nil
}
