package library

import "time"

// BookStatus is the shelf state of a book.
type BookStatus string

const (
	BookAvailable BookStatus = "Available"
	BookBorrowed  BookStatus = "Borrowed"
)

// BorrowingStatus is the lifecycle state of a borrowing.
type BorrowingStatus string

const (
	StatusActive    BorrowingStatus = "Active"
	StatusReturned  BorrowingStatus = "Returned"
	StatusOverdue   BorrowingStatus = "Overdue"
	StatusCancelled BorrowingStatus = "Cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s BorrowingStatus) Terminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

// Role is a user's role in the library.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleMember Role = "Member"
)

// Book represents catalog metadata plus the circulation counters.
// ViewCount and BorrowCount only ever grow.
type Book struct {
	ID          int64      `json:"id" yaml:"id"`
	Code        string     `json:"code" yaml:"code"`
	Title       string     `json:"title" yaml:"title" validate:"required,max=255"`
	Author      string     `json:"author" yaml:"author" validate:"required,max=255"`
	Publisher   string     `json:"publisher" yaml:"publisher" validate:"max=255"`
	Genre       string     `json:"genre" yaml:"genre" validate:"max=100"`
	Description string     `json:"description" yaml:"description"`
	CoverPath   string     `json:"cover_path,omitempty" yaml:"cover_path,omitempty"`
	Status      BookStatus `json:"status" yaml:"status"`
	IsEbook     bool       `json:"is_ebook" yaml:"is_ebook"`
	EbookPath   string     `json:"ebook_path,omitempty" yaml:"ebook_path,omitempty"`
	ViewCount   int        `json:"view_count" yaml:"view_count"`
	BorrowCount int        `json:"borrow_count" yaml:"borrow_count"`
	PublishedAt time.Time  `json:"published_at" yaml:"published_at"`
}

// Borrowing binds one user to one book for a loan period.
type Borrowing struct {
	ID         int64           `json:"id" yaml:"id"`
	UserID     string          `json:"user_id" yaml:"user_id"`
	BookID     int64           `json:"book_id" yaml:"book_id"`
	BorrowDate time.Time       `json:"borrow_date" yaml:"borrow_date"`
	DueDate    time.Time       `json:"due_date" yaml:"due_date"`
	ReturnDate *time.Time      `json:"return_date,omitempty" yaml:"return_date,omitempty"`
	Status     BorrowingStatus `json:"status" yaml:"status"`
	UpdatedAt  time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Review is a user's rating of a book. At most one per (user, book).
type Review struct {
	ID         int64     `json:"id" yaml:"id"`
	UserID     string    `json:"user_id" yaml:"user_id" validate:"required"`
	BookID     int64     `json:"book_id" yaml:"book_id" validate:"required,gt=0"`
	Rating     int       `json:"rating" yaml:"rating" validate:"min=1,max=5"`
	Comment    string    `json:"comment" yaml:"comment" validate:"max=1000"`
	ReviewDate time.Time `json:"review_date" yaml:"review_date"`
}

// User is a registered library user.
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name" validate:"required,max=100"`
	Email     string    `json:"email" yaml:"email" validate:"required,email,max=255"`
	Role      Role      `json:"role" yaml:"role" validate:"oneof=Admin Member"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Notification is a message addressed to one user.
type Notification struct {
	ID        int64     `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id" validate:"required"`
	Message   string    `json:"message" yaml:"message" validate:"required,max=500"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	IsRead    bool      `json:"is_read" yaml:"is_read"`
}

// UserSetting holds per-user display preferences. One per user.
type UserSetting struct {
	ID     int64  `json:"id" yaml:"id"`
	UserID string `json:"user_id" yaml:"user_id" validate:"required"`
	Theme  string `json:"theme" yaml:"theme" validate:"required,max=50,oneof=Light Dark"`
}

// BookView is the projection returned by every ranking and report operation.
// AverageRating and ReviewCount are computed at call time.
type BookView struct {
	Book          `yaml:",inline"`
	AverageRating float64 `json:"average_rating" yaml:"average_rating"`
	ReviewCount   int     `json:"review_count" yaml:"review_count"`
}

// BorrowingView is a borrowing with its user and book joined in.
type BorrowingView struct {
	Borrowing `yaml:",inline"`
	UserName  string `json:"user_name" yaml:"user_name"`
	UserEmail string `json:"user_email" yaml:"user_email"`
	BookTitle string `json:"book_title" yaml:"book_title"`
	BookCode  string `json:"book_code" yaml:"book_code"`
}
