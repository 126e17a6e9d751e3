package library

import (
	"time"

	"github.com/rs/zerolog"
)

// Reviews manages ratings. A user may review a book once.
type Reviews struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewReviews(store Store, now func() time.Time, logger zerolog.Logger) *Reviews {
	return &Reviews{
		store: store,
		now:   now,
		log:   logger.With().Str("component", "reviews").Logger(),
	}
}

// Add records userID's rating of bookID.
func (r *Reviews) Add(userID string, bookID int64, rating int, comment string) (Review, error) {
	review := Review{UserID: userID, BookID: bookID, Rating: rating, Comment: comment, ReviewDate: r.now()}
	if err := validate("review", review); err != nil {
		return Review{}, err
	}

	exists, err := r.store.UserExists(userID)
	if err != nil {
		return Review{}, err
	}
	if !exists {
		return Review{}, notFound("user", userID)
	}
	if _, ok, err := r.store.GetBook(bookID); err != nil {
		return Review{}, err
	} else if !ok {
		return Review{}, notFound("book", bookID)
	}

	reviewed, err := r.store.UserHasReviewed(userID, bookID)
	if err != nil {
		return Review{}, err
	}
	if reviewed {
		return Review{}, conflict("user %s has already reviewed book %d", userID, bookID)
	}

	if err := r.store.SaveReview(&review); err != nil {
		return Review{}, err
	}
	r.log.Info().
		Int64("review_id", review.ID).
		Int64("book_id", bookID).
		Str("user_id", userID).
		Int("rating", rating).
		Msg("review added")
	return review, nil
}

// Update changes the rating and comment of review id.
func (r *Reviews) Update(id int64, rating int, comment string) (Review, error) {
	review, ok, err := r.store.GetReview(id)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, notFound("review", id)
	}
	review.Rating = rating
	review.Comment = comment
	review.ReviewDate = r.now()
	if err := validate("review", review); err != nil {
		return Review{}, err
	}
	if err := r.store.SaveReview(&review); err != nil {
		return Review{}, err
	}
	return review, nil
}

func (r *Reviews) Delete(id int64) error {
	if _, ok, err := r.store.GetReview(id); err != nil {
		return err
	} else if !ok {
		return notFound("review", id)
	}
	return r.store.DeleteReview(id)
}

func (r *Reviews) Get(id int64) (Review, error) {
	review, ok, err := r.store.GetReview(id)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, notFound("review", id)
	}
	return review, nil
}

func (r *Reviews) ByBook(bookID int64) ([]Review, error) { return r.store.ListReviewsByBook(bookID) }

func (r *Reviews) ByUser(userID string) ([]Review, error) { return r.store.ListReviewsByUser(userID) }

// AverageRating is the mean rating of bookID, 0 when unreviewed.
func (r *Reviews) AverageRating(bookID int64) (float64, error) {
	reviews, err := r.store.ListReviewsByBook(bookID)
	if err != nil {
		return 0, err
	}
	return AverageRating(reviews), nil
}
