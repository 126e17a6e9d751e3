package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MemoryPath selects the in-process store instead of a SQLite file.
const MemoryPath = ":memory:"

// Options tunes the engine. Zero values take the defaults.
type Options struct {
	LoanPeriod        time.Duration
	DefaultCount      int
	SimilarCount      int
	TopRatedMinRating float64

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// LibraryManager is a thin façade wiring the engine components over one store.
type LibraryManager struct {
	store  Store
	closer func() error
	now    func() time.Time
	log    zerolog.Logger

	Circulation   *Circulation
	Recommend     *Recommender
	Chatbot       *Chatbot
	Analytics     *Analytics
	Reviews       *Reviews
	Notifications *Notifications
	Settings      *Settings
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath, or an
// in-memory store when dbPath is MemoryPath.
func NewLibraryManager(dbPath string, opts Options) (*LibraryManager, error) {
	if dbPath == MemoryPath {
		return NewManagerWithStore(NewMemoryStore(), opts), nil
	}
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm := NewManagerWithStore(db, opts)
	lm.closer = db.Close
	return lm, nil
}

// NewManagerWithStore wires the engine over an existing store.
func NewManagerWithStore(store Store, opts Options) *LibraryManager {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	notices := NewNotifications(store, now, logger)
	rec := NewRecommender(store, opts.DefaultCount, opts.SimilarCount, logger)
	return &LibraryManager{
		store:         store,
		now:           now,
		log:           logger.With().Str("component", "manager").Logger(),
		Circulation:   NewCirculation(store, opts.LoanPeriod, now, notices, logger),
		Recommend:     rec,
		Chatbot:       NewChatbot(rec, opts.TopRatedMinRating, logger),
		Analytics:     NewAnalytics(store, opts.DefaultCount, now, logger),
		Reviews:       NewReviews(store, now, logger),
		Notifications: notices,
		Settings:      NewSettings(store, logger),
	}
}

// Close closes the underlying database, if any.
func (lm *LibraryManager) Close() error {
	if lm.closer == nil {
		return nil
	}
	return lm.closer()
}

// Store exposes the record store.
func (lm *LibraryManager) Store() Store { return lm.store }

// ------------------ Book helpers ------------------

// AddBook validates b and adds it to the catalog as Available.
func (lm *LibraryManager) AddBook(b Book) (Book, error) {
	b.ID = 0
	b.Status = BookAvailable
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if err := validate("book", b); err != nil {
		return Book{}, err
	}
	if b.IsEbook && strings.TrimSpace(b.EbookPath) == "" {
		return Book{}, &ValidationError{Reason: "ebook path is required for ebooks"}
	}
	if err := lm.store.SaveBook(&b); err != nil {
		return Book{}, err
	}
	lm.log.Info().Int64("book_id", b.ID).Str("title", b.Title).Msg("book added")
	return b, nil
}

// GetBook returns bookID with its rating aggregates.
func (lm *LibraryManager) GetBook(id int64) (BookView, error) {
	b, ok, err := lm.store.GetBook(id)
	if err != nil {
		return BookView{}, err
	}
	if !ok {
		return BookView{}, notFound("book", id)
	}
	reviews, err := lm.store.ListReviewsByBook(id)
	if err != nil {
		return BookView{}, err
	}
	return BookView{Book: b, AverageRating: AverageRating(reviews), ReviewCount: len(reviews)}, nil
}

func (lm *LibraryManager) ListBooks() ([]BookView, error) {
	ix, err := loadIndex(lm.store, indexParts{reviews: true})
	if err != nil {
		return nil, err
	}
	return ix.views(nil), nil
}

// bookSearcher is implemented by stores with a full-text index.
type bookSearcher interface {
	SearchBooks(q string) ([]Book, error)
}

// SearchBooks uses the store's full-text index when it has one and falls back
// to substring matching otherwise.
func (lm *LibraryManager) SearchBooks(q string) ([]BookView, error) {
	fts, ok := lm.store.(bookSearcher)
	if !ok {
		return lm.Recommend.Search(q)
	}
	books, err := fts.SearchBooks(q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	reviews, err := lm.store.ListReviews()
	if err != nil {
		return nil, err
	}
	ix := &catalogIndex{ratings: make(map[int64]ratingAgg)}
	ix.addReviews(reviews)
	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, ix.view(b))
	}
	return views, nil
}

// ------------------ User helpers ------------------

// AddUser registers a user and gives them the default settings.
func (lm *LibraryManager) AddUser(name, email string, role Role) (User, error) {
	if role == "" {
		role = RoleMember
	}
	u := User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Role: role, CreatedAt: lm.now()}
	if err := validate("user", u); err != nil {
		return User{}, err
	}
	if err := lm.store.SaveUser(&u); err != nil {
		return User{}, err
	}
	if _, err := lm.Settings.EnsureDefault(u.ID); err != nil {
		return User{}, err
	}
	lm.log.Info().Str("user_id", u.ID).Str("role", string(role)).Msg("user added")
	return u, nil
}

func (lm *LibraryManager) GetUser(id string) (User, error) {
	u, ok, err := lm.store.GetUser(id)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, notFound("user", id)
	}
	return u, nil
}

func (lm *LibraryManager) ListUsers() ([]User, error) { return lm.store.ListUsers() }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(v BookView) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-15s %-10s %4.1f", v.ID, v.Title, v.Author, v.Genre, v.Status, v.AverageRating)
}
