package library

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"library-insight/internal/metrics"
)

// Chatbot intents.
const (
	IntentGenre        = "genre"
	IntentAuthor       = "author"
	IntentTrending     = "trending"
	IntentTopRated     = "top-rated"
	IntentPersonalized = "personalized"
	IntentDefault      = "default"
)

// genreVocabulary is scanned in order; the first word found in the query wins.
var genreVocabulary = []string{
	"fiction", "fantasy", "mystery", "romance", "science",
	"thriller", "horror", "biography", "history",
}

const fallbackGenre = "fiction"

// ChatResponse is the answer to one chatbot query.
type ChatResponse struct {
	Message   string     `json:"message" yaml:"message"`
	QueryType string     `json:"query_type" yaml:"query_type"`
	Genre     string     `json:"genre,omitempty" yaml:"genre,omitempty"`
	Author    string     `json:"author,omitempty" yaml:"author,omitempty"`
	Books     []BookView `json:"books" yaml:"books"`
}

// chatQuery carries the query in both the caller's casing and lower case.
type chatQuery struct {
	raw    string
	lower  string
	userID string
}

type chatRule struct {
	intent string
	match  func(q chatQuery) bool
	handle func(cb *Chatbot, q chatQuery) (ChatResponse, error)
}

// chatRules is evaluated top to bottom; the first match answers.
var chatRules = []chatRule{
	{
		intent: IntentGenre,
		match:  containsAny("genre", "fiction", "fantasy", "mystery", "romance", "science"),
		handle: func(cb *Chatbot, q chatQuery) (ChatResponse, error) {
			genre := extractGenre(q.lower)
			books, err := cb.rec.ByPreferences(Preferences{Genre: genre})
			return ChatResponse{
				Message: fmt.Sprintf("Here are some great %s books for you:", genre),
				Genre:   genre,
				Books:   books,
			}, err
		},
	},
	{
		intent: IntentAuthor,
		match:  containsAny("author", "by", "written by"),
		handle: func(cb *Chatbot, q chatQuery) (ChatResponse, error) {
			author := extractAuthor(q.raw)
			books, err := cb.rec.ByPreferences(Preferences{Author: author})
			return ChatResponse{
				Message: fmt.Sprintf("Here are books by %s:", author),
				Author:  author,
				Books:   books,
			}, err
		},
	},
	{
		intent: IntentTrending,
		match:  containsAny("trending", "popular", "hot"),
		handle: func(cb *Chatbot, _ chatQuery) (ChatResponse, error) {
			books, err := cb.rec.Trending(0)
			return ChatResponse{Message: "Here are the trending books right now:", Books: books}, err
		},
	},
	{
		intent: IntentTopRated,
		match:  containsAny("rated", "best", "top"),
		handle: func(cb *Chatbot, _ chatQuery) (ChatResponse, error) {
			books, err := cb.rec.ByPreferences(Preferences{MinRating: cb.topRatedMin})
			return ChatResponse{Message: "Here are our top-rated books:", Books: books}, err
		},
	},
	{
		intent: IntentPersonalized,
		match:  func(q chatQuery) bool { return q.userID != "" },
		handle: func(cb *Chatbot, q chatQuery) (ChatResponse, error) {
			books, err := cb.rec.ForUser(q.userID, 0)
			return ChatResponse{Message: "Based on your reading history, you might like these:", Books: books}, err
		},
	},
	{
		intent: IntentDefault,
		match:  func(chatQuery) bool { return true },
		handle: func(cb *Chatbot, _ chatQuery) (ChatResponse, error) {
			books, err := cb.rec.Trending(0)
			return ChatResponse{Message: "Here are some popular books you might enjoy:", Books: books}, err
		},
	},
}

func containsAny(triggers ...string) func(q chatQuery) bool {
	return func(q chatQuery) bool {
		for _, t := range triggers {
			if strings.Contains(q.lower, t) {
				return true
			}
		}
		return false
	}
}

// extractGenre returns the first vocabulary genre in lowered, or fiction.
func extractGenre(lowered string) string {
	for _, g := range genreVocabulary {
		if strings.Contains(lowered, g) {
			return g
		}
	}
	return fallbackGenre
}

// extractAuthor returns the word following the first "by" or "author" word,
// keeping its original casing. It returns "" when there is none, which leaves
// the author filter open.
func extractAuthor(query string) string {
	words := strings.Fields(query)
	for i := 0; i < len(words)-1; i++ {
		switch strings.ToLower(words[i]) {
		case "by", "author":
			return words[i+1]
		}
	}
	return ""
}

// Chatbot answers free-text book questions with a fixed rule list.
type Chatbot struct {
	rec         *Recommender
	topRatedMin float64
	log         zerolog.Logger
}

func NewChatbot(rec *Recommender, topRatedMin float64, logger zerolog.Logger) *Chatbot {
	if topRatedMin <= 0 {
		topRatedMin = 4
	}
	return &Chatbot{
		rec:         rec,
		topRatedMin: topRatedMin,
		log:         logger.With().Str("component", "chatbot").Logger(),
	}
}

// Classify returns the intent query resolves to without running it.
func Classify(query, userID string) string {
	return matchRule(newChatQuery(query, userID)).intent
}

func newChatQuery(query, userID string) chatQuery {
	raw := strings.TrimSpace(query)
	return chatQuery{raw: raw, lower: strings.ToLower(raw), userID: userID}
}

func matchRule(q chatQuery) chatRule {
	for _, rule := range chatRules {
		if rule.match(q) {
			return rule
		}
	}
	// unreachable: the last rule always matches
	return chatRules[len(chatRules)-1]
}

// Ask interprets query for userID, which may be blank.
func (cb *Chatbot) Ask(query, userID string) (ChatResponse, error) {
	q := newChatQuery(query, userID)
	rule := matchRule(q)

	resp, err := rule.handle(cb, q)
	if err != nil {
		return ChatResponse{}, err
	}
	resp.QueryType = rule.intent
	if resp.Books == nil {
		resp.Books = []BookView{}
	}

	metrics.RecordIntent(rule.intent)
	cb.log.Debug().
		Str("intent", rule.intent).
		Str("user_id", userID).
		Int("results", len(resp.Books)).
		Msg("chatbot query")
	return resp, nil
}
