package library

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"library-insight/internal/metrics"
)

// DefaultLoanPeriod applies when no loan period is configured.
const DefaultLoanPeriod = 14 * 24 * time.Hour

const dueDateLayout = "Jan 2, 2006"

// EffectiveStatus is the status br has at now. A stored Active borrowing past
// its due date reads as Overdue even before the sweep persists it.
func EffectiveStatus(br Borrowing, now time.Time) BorrowingStatus {
	if br.Status == StatusActive && br.DueDate.Before(now) {
		return StatusOverdue
	}
	return br.Status
}

// Circulation owns the borrowing lifecycle and the book counters.
type Circulation struct {
	store      Store
	loanPeriod time.Duration
	now        func() time.Time
	notices    *Notifications
	log        zerolog.Logger
}

func NewCirculation(store Store, loanPeriod time.Duration, now func() time.Time, notices *Notifications, logger zerolog.Logger) *Circulation {
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return &Circulation{
		store:      store,
		loanPeriod: loanPeriod,
		now:        now,
		notices:    notices,
		log:        logger.With().Str("component", "circulation").Logger(),
	}
}

// Checkout lends bookID to userID for the loan period.
func (c *Circulation) Checkout(userID string, bookID int64) (Borrowing, error) {
	br, book, err := c.checkout(userID, bookID)
	if err != nil {
		c.reject("checkout", err)
		return Borrowing{}, err
	}

	metrics.RecordEvent("checkout")
	c.log.Info().
		Int64("borrowing_id", br.ID).
		Int64("book_id", bookID).
		Str("user_id", userID).
		Time("due_date", br.DueDate).
		Msg("book checked out")
	c.post(userID, fmt.Sprintf("You borrowed '%s'. It is due on %s.", book.Title, br.DueDate.Format(dueDateLayout)))
	return br, nil
}

func (c *Circulation) checkout(userID string, bookID int64) (Borrowing, Book, error) {
	exists, err := c.store.UserExists(userID)
	if err != nil {
		return Borrowing{}, Book{}, err
	}
	if !exists {
		return Borrowing{}, Book{}, notFound("user", userID)
	}
	book, ok, err := c.store.GetBook(bookID)
	if err != nil {
		return Borrowing{}, Book{}, err
	}
	if !ok {
		return Borrowing{}, Book{}, notFound("book", bookID)
	}
	if book.Status != BookAvailable {
		return Borrowing{}, Book{}, conflict("book %d is not available (status %s)", bookID, book.Status)
	}

	now := c.now()
	br := Borrowing{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.Add(c.loanPeriod),
		Status:     StatusActive,
		UpdatedAt:  now,
	}
	lent := book
	lent.Status = BookBorrowed
	if err := c.store.CommitCheckout(&br, &lent); err != nil {
		return Borrowing{}, Book{}, err
	}
	return br, lent, nil
}

// Return closes an Active or Overdue borrowing and reshelves the book.
func (c *Circulation) Return(borrowingID int64) error {
	br, err := c.release(borrowingID, StatusReturned)
	if err != nil {
		c.reject("return", err)
		return err
	}
	metrics.RecordEvent("return")
	c.log.Info().
		Int64("borrowing_id", br.ID).
		Int64("book_id", br.BookID).
		Str("user_id", br.UserID).
		Msg("book returned")
	return nil
}

// Cancel administratively closes an Active or Overdue borrowing.
func (c *Circulation) Cancel(borrowingID int64) error {
	br, err := c.release(borrowingID, StatusCancelled)
	if err != nil {
		c.reject("cancel", err)
		return err
	}
	metrics.RecordEvent("cancel")
	c.log.Info().
		Int64("borrowing_id", br.ID).
		Int64("book_id", br.BookID).
		Str("user_id", br.UserID).
		Msg("borrowing cancelled")
	return nil
}

func (c *Circulation) release(borrowingID int64, to BorrowingStatus) (Borrowing, error) {
	br, ok, err := c.store.GetBorrowing(borrowingID)
	if err != nil {
		return Borrowing{}, err
	}
	if !ok || br.Status.Terminal() {
		return Borrowing{}, notFound("open borrowing", borrowingID)
	}

	now := c.now()
	br.Status = to
	br.UpdatedAt = now
	if to == StatusReturned {
		returned := now
		if returned.Before(br.BorrowDate) {
			returned = br.BorrowDate
		}
		br.ReturnDate = &returned
	}

	var book *Book
	if b, ok, err := c.store.GetBook(br.BookID); err != nil {
		return Borrowing{}, err
	} else if ok {
		b.Status = BookAvailable
		book = &b
	}

	if err := c.store.CommitRelease(&br, book); err != nil {
		return Borrowing{}, err
	}
	return br, nil
}

// MarkOverdue moves an Active borrowing past its due date to Overdue. Anything
// else is left untouched.
func (c *Circulation) MarkOverdue(borrowingID int64) error {
	_, err := c.markOverdue(borrowingID)
	return err
}

// RefreshOverdue sweeps every Active borrowing and persists the Overdue
// transition for those past due. It returns how many changed.
func (c *Circulation) RefreshOverdue() (int, error) {
	active, err := c.store.ListActiveBorrowings()
	if err != nil {
		return 0, err
	}
	now := c.now()
	changed := 0
	for _, br := range active {
		if !br.DueDate.Before(now) {
			continue
		}
		moved, err := c.markOverdue(br.ID)
		if err != nil {
			return changed, err
		}
		if moved {
			changed++
		}
	}
	if changed > 0 {
		c.log.Info().Int("count", changed).Msg("overdue sweep complete")
	}
	return changed, nil
}

// markOverdue asks the store for the transition, which only applies while the
// stored row is still Active.
func (c *Circulation) markOverdue(borrowingID int64) (bool, error) {
	br, moved, err := c.store.MarkBorrowingOverdue(borrowingID, c.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("mark borrowing %d overdue: %w", borrowingID, err)
	}
	if !moved {
		return false, nil
	}

	metrics.RecordEvent("overdue")
	c.log.Info().
		Int64("borrowing_id", br.ID).
		Int64("book_id", br.BookID).
		Str("user_id", br.UserID).
		Time("due_date", br.DueDate).
		Msg("borrowing overdue")

	title := fmt.Sprintf("book %d", br.BookID)
	if b, ok, err := c.store.GetBook(br.BookID); err == nil && ok {
		title = b.Title
	}
	c.post(br.UserID, fmt.Sprintf("'%s' is overdue. It was due on %s.", title, br.DueDate.Format(dueDateLayout)))
	return true, nil
}

// RecordView bumps the view counter of bookID.
func (c *Circulation) RecordView(bookID int64) (Book, error) {
	book, err := c.store.IncrementViewCount(bookID)
	if err != nil {
		return Book{}, err
	}
	metrics.RecordEvent("view")
	return book, nil
}

// BorrowingFilter narrows Borrowings. Zero fields match everything.
type BorrowingFilter struct {
	UserID string
	BookID int64
	Status BorrowingStatus
}

// Borrowings lists borrowings matching f. Status compares against the
// effective status.
func (c *Circulation) Borrowings(f BorrowingFilter) ([]Borrowing, error) {
	var (
		list []Borrowing
		err  error
	)
	switch {
	case f.UserID != "":
		list, err = c.store.ListBorrowingsByUser(f.UserID)
	case f.BookID != 0:
		list, err = c.store.ListBorrowingsByBook(f.BookID)
	default:
		list, err = c.store.ListBorrowings()
	}
	if err != nil {
		return nil, err
	}

	now := c.now()
	out := make([]Borrowing, 0, len(list))
	for _, br := range list {
		if f.BookID != 0 && br.BookID != f.BookID {
			continue
		}
		if f.Status != "" && EffectiveStatus(br, now) != f.Status {
			continue
		}
		out = append(out, br)
	}
	return out, nil
}

// ActiveBorrowings lists borrowings that are Active and not yet due.
func (c *Circulation) ActiveBorrowings() ([]Borrowing, error) {
	return c.Borrowings(BorrowingFilter{Status: StatusActive})
}

// OverdueBorrowings lists borrowings that are overdue at call time, whether or
// not the transition has been persisted.
func (c *Circulation) OverdueBorrowings() ([]Borrowing, error) {
	return c.Borrowings(BorrowingFilter{Status: StatusOverdue})
}

func (c *Circulation) post(userID, message string) {
	if c.notices == nil {
		return
	}
	if _, err := c.notices.Notify(userID, message); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("notification not posted")
	}
}

func (c *Circulation) reject(operation string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.RecordRejection(operation, "not_found")
	case errors.Is(err, ErrConflict):
		metrics.RecordRejection(operation, "conflict")
	default:
		return
	}
	c.log.Warn().Err(err).Str("operation", operation).Msg("circulation rejected")
}
