package library

import "time"

// Store is the record store the engine pulls from and writes to.
//
// Get* methods report absence with ok=false and a nil error. Save* methods insert
// when the record's ID is zero (assigning it) and update otherwise.
type Store interface {
	// books
	ListBooks() ([]Book, error)
	GetBook(id int64) (Book, bool, error)
	SaveBook(b *Book) error

	// borrowings
	ListBorrowings() ([]Borrowing, error)
	ListBorrowingsByUser(userID string) ([]Borrowing, error)
	ListBorrowingsByBook(bookID int64) ([]Borrowing, error)
	ListActiveBorrowings() ([]Borrowing, error)
	ListOverdueBorrowings() ([]Borrowing, error)
	GetBorrowing(id int64) (Borrowing, bool, error)
	SaveBorrowing(br *Borrowing) error

	// reviews
	ListReviews() ([]Review, error)
	ListReviewsByBook(bookID int64) ([]Review, error)
	ListReviewsByUser(userID string) ([]Review, error)
	GetReview(id int64) (Review, bool, error)
	UserHasReviewed(userID string, bookID int64) (bool, error)
	SaveReview(r *Review) error
	DeleteReview(id int64) error

	// users
	ListUsers() ([]User, error)
	GetUser(id string) (User, bool, error)
	UserExists(id string) (bool, error)
	SaveUser(u *User) error

	// notifications
	ListNotificationsByUser(userID string) ([]Notification, error)
	GetNotification(id int64) (Notification, bool, error)
	SaveNotification(n *Notification) error
	MarkAllNotificationsRead(userID string) error
	DeleteNotification(id int64) error

	// settings
	GetUserSetting(id int64) (UserSetting, bool, error)
	GetUserSettingByUser(userID string) (UserSetting, bool, error)
	SaveUserSetting(s *UserSetting) error
	DeleteUserSetting(id int64) error

	CirculationCommitter
}

// CirculationCommitter holds the circulation writes. Each one re-checks the
// stored state it depends on inside the write itself and touches only the
// columns it owns.
type CirculationCommitter interface {
	// CommitCheckout records br and flips the book to book.Status, adding one
	// to its borrow counter in place. It fails with a *ConflictError when the
	// stored book is no longer Available. On success *book holds the stored
	// book.
	CommitCheckout(br *Borrowing, book *Book) error

	// CommitRelease stores the closing status, return date and update time of
	// br and sets the book's status. It fails with a *NotFoundError when the
	// stored borrowing is no longer Active or Overdue. book may be nil.
	CommitRelease(br *Borrowing, book *Book) error

	// IncrementViewCount adds one view to book id and returns the stored book.
	IncrementViewCount(id int64) (Book, error)

	// MarkBorrowingOverdue moves borrowing id to Overdue when it is still
	// Active and due before now, reporting whether it changed, and returns the
	// stored borrowing.
	MarkBorrowingOverdue(id int64, now time.Time) (Borrowing, bool, error)
}
