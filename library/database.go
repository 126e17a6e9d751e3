package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed Store.
type Database struct {
	db *sql.DB

	insertBookStmt      *sql.Stmt
	insertBorrowingStmt *sql.Stmt
}

var _ Store = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Immediate transactions take the write lock at BEGIN so checkouts serialize.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.insertBookStmt != nil {
		d.insertBookStmt.Close()
	}
	if d.insertBorrowingStmt != nil {
		d.insertBorrowingStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 3

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'Member',
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            genre TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            cover_path TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'Available',
            is_ebook BOOLEAN NOT NULL DEFAULT 0,
            ebook_path TEXT NOT NULL DEFAULT '',
            view_count INTEGER NOT NULL DEFAULT 0,
            borrow_count INTEGER NOT NULL DEFAULT 0,
            published_at DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS borrowings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL REFERENCES users(id),
            book_id INTEGER NOT NULL REFERENCES books(id),
            borrow_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME,
            status TEXT NOT NULL DEFAULT 'Active',
            updated_at DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_borrowings_user ON borrowings(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_borrowings_book ON borrowings(book_id);`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL REFERENCES users(id),
            book_id INTEGER NOT NULL REFERENCES books(id),
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            review_date DATETIME NOT NULL,
            UNIQUE(user_id, book_id)
        );`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL REFERENCES users(id),
            message TEXT NOT NULL,
            timestamp DATETIME NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS user_settings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
            theme TEXT NOT NULL DEFAULT 'Light'
        );`,
		// FTS4 external-content index over the catalog text
		`CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts4(
            content="books", title, author, genre, description
        );`,
		// Triggers to keep FTS in sync. Circulation writes name only status and
		// counter columns, so they never fire the UPDATE OF triggers.
		`CREATE TRIGGER IF NOT EXISTS trg_books_ai AFTER INSERT ON books BEGIN
            INSERT INTO books_fts(docid,title,author,genre,description) VALUES(new.id,new.title,new.author,new.genre,new.description);
        END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_books_bd BEFORE DELETE ON books BEGIN
            DELETE FROM books_fts WHERE docid=old.id;
        END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_books_bu BEFORE UPDATE OF title, author, genre, description ON books BEGIN
            DELETE FROM books_fts WHERE docid=old.id;
        END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_books_au AFTER UPDATE OF title, author, genre, description ON books BEGIN
            INSERT INTO books_fts(docid,title,author,genre,description) VALUES(new.id,new.title,new.author,new.genre,new.description);
        END;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Prepare(`INSERT INTO books(code,title,author,publisher,genre,description,cover_path,status,is_ebook,ebook_path,view_count,borrow_count,published_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertBorrowingStmt, err = d.db.Prepare(`INSERT INTO borrowings(user_id,book_id,borrow_date,due_date,return_date,status,updated_at)
        VALUES(?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `id,code,title,author,publisher,genre,description,cover_path,status,is_ebook,ebook_path,view_count,borrow_count,published_at`

func scanBook(row rowScanner) (Book, error) {
	var (
		b         Book
		published sql.NullTime
	)
	err := row.Scan(&b.ID, &b.Code, &b.Title, &b.Author, &b.Publisher, &b.Genre, &b.Description,
		&b.CoverPath, &b.Status, &b.IsEbook, &b.EbookPath, &b.ViewCount, &b.BorrowCount, &published)
	if published.Valid {
		b.PublishedAt = published.Time
	}
	return b, err
}

func (d *Database) queryBooks(query string, args ...any) ([]Book, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *Database) ListBooks() ([]Book, error) {
	return d.queryBooks(`SELECT ` + bookColumns + ` FROM books ORDER BY id`)
}

func (d *Database) GetBook(id int64) (Book, bool, error) {
	b, err := scanBook(d.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, err
	}
	return b, true, nil
}

func (d *Database) SaveBook(b *Book) error {
	if b.Status == "" {
		b.Status = BookAvailable
	}
	if b.ID == 0 {
		res, err := d.insertBookStmt.Exec(b.Code, b.Title, b.Author, b.Publisher, b.Genre, b.Description,
			b.CoverPath, b.Status, b.IsEbook, b.EbookPath, b.ViewCount, b.BorrowCount, b.PublishedAt)
		if err != nil {
			return fmt.Errorf("insert book: %w", err)
		}
		b.ID, err = res.LastInsertId()
		return err
	}
	return updateBook(d.db, b)
}

func updateBook(ex execer, b *Book) error {
	res, err := ex.Exec(`UPDATE books SET code=?,title=?,author=?,publisher=?,genre=?,description=?,cover_path=?,
        status=?,is_ebook=?,ebook_path=?,view_count=?,borrow_count=?,published_at=? WHERE id=?`,
		b.Code, b.Title, b.Author, b.Publisher, b.Genre, b.Description, b.CoverPath,
		b.Status, b.IsEbook, b.EbookPath, b.ViewCount, b.BorrowCount, b.PublishedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("book", b.ID)
	}
	return nil
}

// SearchBooks runs a full-text query over title, author, genre and description.
func (d *Database) SearchBooks(q string) ([]Book, error) {
	match := ftsQuery(q)
	if match == "" {
		return []Book{}, nil
	}
	return d.queryBooks(`
        SELECT b.id,b.code,b.title,b.author,b.publisher,b.genre,b.description,b.cover_path,b.status,
               b.is_ebook,b.ebook_path,b.view_count,b.borrow_count,b.published_at
        FROM books_fts fts
        JOIN books b ON b.id = fts.docid
        WHERE books_fts MATCH ?
        ORDER BY b.id;`, match)
}

// ftsQuery quotes every word of q as its own phrase, so FTS operators and
// stray quotes in user input are searched as plain text. Words split where
// the simple tokenizer splits.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// ---------------------------------------------------------------------------
// Borrowings
// ---------------------------------------------------------------------------

const borrowingColumns = `id,user_id,book_id,borrow_date,due_date,return_date,status,updated_at`

func scanBorrowing(row rowScanner) (Borrowing, error) {
	var (
		b        Borrowing
		returned sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.DueDate, &returned, &b.Status, &b.UpdatedAt)
	if returned.Valid {
		t := returned.Time
		b.ReturnDate = &t
	}
	return b, err
}

func (d *Database) queryBorrowings(where string, args ...any) ([]Borrowing, error) {
	rows, err := d.db.Query(`SELECT `+borrowingColumns+` FROM borrowings `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Borrowing
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (d *Database) ListBorrowings() ([]Borrowing, error) { return d.queryBorrowings("") }

func (d *Database) ListBorrowingsByUser(userID string) ([]Borrowing, error) {
	return d.queryBorrowings("WHERE user_id=?", userID)
}

func (d *Database) ListBorrowingsByBook(bookID int64) ([]Borrowing, error) {
	return d.queryBorrowings("WHERE book_id=?", bookID)
}

func (d *Database) ListActiveBorrowings() ([]Borrowing, error) {
	return d.queryBorrowings("WHERE status=?", StatusActive)
}

func (d *Database) ListOverdueBorrowings() ([]Borrowing, error) {
	return d.queryBorrowings("WHERE status=?", StatusOverdue)
}

func (d *Database) GetBorrowing(id int64) (Borrowing, bool, error) {
	b, err := scanBorrowing(d.db.QueryRow(`SELECT `+borrowingColumns+` FROM borrowings WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Borrowing{}, false, nil
	}
	if err != nil {
		return Borrowing{}, false, err
	}
	return b, true, nil
}

func (d *Database) SaveBorrowing(br *Borrowing) error {
	if br.ID == 0 {
		res, err := d.insertBorrowingStmt.Exec(br.UserID, br.BookID, br.BorrowDate, br.DueDate,
			nullTime(br.ReturnDate), br.Status, br.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert borrowing: %w", err)
		}
		br.ID, err = res.LastInsertId()
		return err
	}
	return updateBorrowing(d.db, br)
}

func updateBorrowing(ex execer, br *Borrowing) error {
	res, err := ex.Exec(`UPDATE borrowings SET user_id=?,book_id=?,borrow_date=?,due_date=?,return_date=?,status=?,updated_at=? WHERE id=?`,
		br.UserID, br.BookID, br.BorrowDate, br.DueDate, nullTime(br.ReturnDate), br.Status, br.UpdatedAt, br.ID)
	if err != nil {
		return fmt.Errorf("update borrowing %d: %w", br.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("borrowing", br.ID)
	}
	return nil
}

// CommitCheckout records the borrowing and flips the book to Borrowed in one
// transaction. The status guard in the UPDATE keeps concurrent checkouts of
// the same book from both succeeding.
func (d *Database) CommitCheckout(br *Borrowing, book *Book) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE books SET status=?, borrow_count=borrow_count+1 WHERE id=? AND status=?`,
		book.Status, book.ID, BookAvailable)
	if err != nil {
		return fmt.Errorf("reserve book %d: %w", book.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := tx.QueryRow(`SELECT status FROM books WHERE id=?`, book.ID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("book", book.ID)
		}
		if err != nil {
			return err
		}
		return conflict("book %d is not available (status %s)", book.ID, status)
	}

	res, err = tx.Exec(`INSERT INTO borrowings(user_id,book_id,borrow_date,due_date,return_date,status,updated_at) VALUES(?,?,?,?,?,?,?)`,
		br.UserID, br.BookID, br.BorrowDate, br.DueDate, nullTime(br.ReturnDate), br.Status, br.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert borrowing: %w", err)
	}
	if br.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	stored, err := scanBook(tx.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, book.ID))
	if err != nil {
		return fmt.Errorf("reload book %d: %w", book.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*book = stored
	return nil
}

// CommitRelease closes an open borrowing and puts the book back on the shelf
// in one transaction. A borrowing closed by someone else in the meantime is
// left alone.
func (d *Database) CommitRelease(br *Borrowing, book *Book) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE borrowings SET return_date=?, status=?, updated_at=? WHERE id=? AND status IN (?,?)`,
		nullTime(br.ReturnDate), br.Status, br.UpdatedAt, br.ID, StatusActive, StatusOverdue)
	if err != nil {
		return fmt.Errorf("close borrowing %d: %w", br.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("open borrowing", br.ID)
	}
	if book != nil {
		if _, err := tx.Exec(`UPDATE books SET status=? WHERE id=?`, book.Status, book.ID); err != nil {
			return fmt.Errorf("release book %d: %w", book.ID, err)
		}
	}
	return tx.Commit()
}

// IncrementViewCount bumps the view counter in place.
func (d *Database) IncrementViewCount(id int64) (Book, error) {
	res, err := d.db.Exec(`UPDATE books SET view_count=view_count+1 WHERE id=?`, id)
	if err != nil {
		return Book{}, fmt.Errorf("count view of book %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Book{}, notFound("book", id)
	}
	b, ok, err := d.GetBook(id)
	if err != nil {
		return Book{}, err
	}
	if !ok {
		return Book{}, notFound("book", id)
	}
	return b, nil
}

// MarkBorrowingOverdue reads and transitions the borrowing inside one
// immediate transaction, so a return committed after the caller's last read
// wins.
func (d *Database) MarkBorrowingOverdue(id int64, now time.Time) (Borrowing, bool, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return Borrowing{}, false, err
	}
	defer tx.Rollback()

	br, err := scanBorrowing(tx.QueryRow(`SELECT `+borrowingColumns+` FROM borrowings WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Borrowing{}, false, notFound("borrowing", id)
	}
	if err != nil {
		return Borrowing{}, false, err
	}
	// due dates carry the offset they were written with, so compare in Go
	if br.Status != StatusActive || !br.DueDate.Before(now) {
		return br, false, nil
	}

	res, err := tx.Exec(`UPDATE borrowings SET status=?, updated_at=? WHERE id=? AND status=?`,
		StatusOverdue, now, id, StatusActive)
	if err != nil {
		return Borrowing{}, false, fmt.Errorf("mark borrowing %d overdue: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return br, false, nil
	}
	if err := tx.Commit(); err != nil {
		return Borrowing{}, false, err
	}
	br.Status = StatusOverdue
	br.UpdatedAt = now
	return br, true, nil
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

const reviewColumns = `id,user_id,book_id,rating,comment,review_date`

func (d *Database) queryReviews(where string, args ...any) ([]Review, error) {
	rows, err := d.db.Query(`SELECT `+reviewColumns+` FROM reviews `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.BookID, &r.Rating, &r.Comment, &r.ReviewDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *Database) ListReviews() ([]Review, error) { return d.queryReviews("") }

func (d *Database) ListReviewsByBook(bookID int64) ([]Review, error) {
	return d.queryReviews("WHERE book_id=?", bookID)
}

func (d *Database) ListReviewsByUser(userID string) ([]Review, error) {
	return d.queryReviews("WHERE user_id=?", userID)
}

func (d *Database) GetReview(id int64) (Review, bool, error) {
	reviews, err := d.queryReviews("WHERE id=?", id)
	if err != nil || len(reviews) == 0 {
		return Review{}, false, err
	}
	return reviews[0], true, nil
}

func (d *Database) UserHasReviewed(userID string, bookID int64) (bool, error) {
	var exists bool
	err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id=? AND book_id=?)`, userID, bookID).Scan(&exists)
	return exists, err
}

func (d *Database) SaveReview(r *Review) error {
	var err error
	if r.ID == 0 {
		var res sql.Result
		res, err = d.db.Exec(`INSERT INTO reviews(user_id,book_id,rating,comment,review_date) VALUES(?,?,?,?,?)`,
			r.UserID, r.BookID, r.Rating, r.Comment, r.ReviewDate)
		if err == nil {
			r.ID, err = res.LastInsertId()
		}
	} else {
		_, err = d.db.Exec(`UPDATE reviews SET user_id=?,book_id=?,rating=?,comment=?,review_date=? WHERE id=?`,
			r.UserID, r.BookID, r.Rating, r.Comment, r.ReviewDate, r.ID)
	}
	if isUniqueViolation(err) {
		return conflict("user %s has already reviewed book %d", r.UserID, r.BookID)
	}
	return err
}

func (d *Database) DeleteReview(id int64) error {
	_, err := d.db.Exec(`DELETE FROM reviews WHERE id=?`, id)
	return err
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (d *Database) ListUsers() ([]User, error) {
	rows, err := d.db.Query(`SELECT id,name,email,role,created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *Database) GetUser(id string) (User, bool, error) {
	var u User
	err := d.db.QueryRow(`SELECT id,name,email,role,created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

func (d *Database) UserExists(id string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, id).Scan(&exists)
	return exists, err
}

func (d *Database) SaveUser(u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := d.db.Exec(`INSERT INTO users(id,name,email,role,created_at) VALUES(?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role`,
		u.ID, u.Name, u.Email, u.Role, u.CreatedAt)
	return err
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (d *Database) ListNotificationsByUser(userID string) ([]Notification, error) {
	rows, err := d.db.Query(`SELECT id,user_id,message,timestamp,is_read FROM notifications WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Timestamp, &n.IsRead); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *Database) GetNotification(id int64) (Notification, bool, error) {
	var n Notification
	err := d.db.QueryRow(`SELECT id,user_id,message,timestamp,is_read FROM notifications WHERE id=?`, id).
		Scan(&n.ID, &n.UserID, &n.Message, &n.Timestamp, &n.IsRead)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, false, nil
	}
	if err != nil {
		return Notification{}, false, err
	}
	return n, true, nil
}

func (d *Database) SaveNotification(n *Notification) error {
	if n.ID == 0 {
		res, err := d.db.Exec(`INSERT INTO notifications(user_id,message,timestamp,is_read) VALUES(?,?,?,?)`,
			n.UserID, n.Message, n.Timestamp, n.IsRead)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		n.ID, err = res.LastInsertId()
		return err
	}
	_, err := d.db.Exec(`UPDATE notifications SET user_id=?,message=?,timestamp=?,is_read=? WHERE id=?`,
		n.UserID, n.Message, n.Timestamp, n.IsRead, n.ID)
	return err
}

func (d *Database) MarkAllNotificationsRead(userID string) error {
	_, err := d.db.Exec(`UPDATE notifications SET is_read=1 WHERE user_id=? AND is_read=0`, userID)
	return err
}

func (d *Database) DeleteNotification(id int64) error {
	_, err := d.db.Exec(`DELETE FROM notifications WHERE id=?`, id)
	return err
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (d *Database) getUserSetting(where string, arg any) (UserSetting, bool, error) {
	var s UserSetting
	err := d.db.QueryRow(`SELECT id,user_id,theme FROM user_settings WHERE `+where, arg).Scan(&s.ID, &s.UserID, &s.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return UserSetting{}, false, nil
	}
	if err != nil {
		return UserSetting{}, false, err
	}
	return s, true, nil
}

func (d *Database) GetUserSetting(id int64) (UserSetting, bool, error) {
	return d.getUserSetting("id=?", id)
}

func (d *Database) GetUserSettingByUser(userID string) (UserSetting, bool, error) {
	return d.getUserSetting("user_id=?", userID)
}

func (d *Database) SaveUserSetting(s *UserSetting) error {
	var err error
	if s.ID == 0 {
		var res sql.Result
		res, err = d.db.Exec(`INSERT INTO user_settings(user_id,theme) VALUES(?,?)`, s.UserID, s.Theme)
		if err == nil {
			s.ID, err = res.LastInsertId()
		}
	} else {
		_, err = d.db.Exec(`UPDATE user_settings SET user_id=?,theme=? WHERE id=?`, s.UserID, s.Theme, s.ID)
	}
	if isUniqueViolation(err) {
		return conflict("user %s already has settings", s.UserID)
	}
	return err
}

func (d *Database) DeleteUserSetting(id int64) error {
	_, err := d.db.Exec(`DELETE FROM user_settings WHERE id=?`, id)
	return err
}
