// Package recommend implements the recommendation decision pipeline: love
// scoring over recent reading history, affinity aggregation, the
// vector → preferences → popular strategy chain, and justification text.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/nextchapter/suggestions-api/pkg/vector"
)

// ErrNoRecommendations is returned when every strategy, including the
// popularity fallback, came up empty for a user.
var ErrNoRecommendations = errors.New("no recommendations available")

// resultLimit is the maximum number of books in a response.
const resultLimit = 5

// Store is the slice of the relational catalog the pipeline reads.
type Store interface {
	ReadBookIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	RecentRead(ctx context.Context, userID string, limit int) ([]database.ReadingHistory, error)
	BooksByIDs(ctx context.Context, ids []string) ([]database.Book, error)
	BooksByAnyGenre(ctx context.Context, genres []string, limit int) ([]database.Book, error)
	PopularBooks(ctx context.Context, limit int) ([]database.Book, error)
	Profile(ctx context.Context, userID string) (*database.UserProfile, error)
}

// VectorIndex answers nearest-neighbor queries over the book embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vec []float32, topK int, includeMetadata bool, filter map[string]any) ([]vector.Match, error)
}

// Embedder turns projection text into a query vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the justification sentence.
type Generator interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Service runs the pipeline. All collaborators are injected once at startup
// and used read-only, so one Service serves concurrent requests.
type Service struct {
	store     Store
	index     VectorIndex
	embedder  Embedder
	generator Generator
}

func NewService(store Store, index VectorIndex, embedder Embedder, generator Generator) *Service {
	return &Service{
		store:     store,
		index:     index,
		embedder:  embedder,
		generator: generator,
	}
}

// RecommendedBook is the public projection of a catalog entry.
type RecommendedBook struct {
	BookID   string `json:"book_id"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Response is the complete recommendation payload for one user.
type Response struct {
	UserID        string            `json:"user_id"`
	Books         []RecommendedBook `json:"books"`
	Justification string            `json:"justification,omitempty"`
	Strategy      string            `json:"strategy,omitempty"`
	IsFallback    bool              `json:"is_fallback"`
}

// FormatBooks projects the first resultLimit candidates, preserving their
// order. Missing fields stay empty.
func FormatBooks(books []database.Book) []RecommendedBook {
	if len(books) > resultLimit {
		books = books[:resultLimit]
	}
	formatted := make([]RecommendedBook, 0, len(books))
	for _, b := range books {
		formatted = append(formatted, RecommendedBook{
			BookID:   b.ID,
			Title:    b.Title,
			Author:   b.Author,
			CoverURL: b.CoverURL,
		})
	}
	return formatted
}

// Recommend runs the full pipeline for one user. It returns
// ErrNoRecommendations when no strategy produced a candidate; any other
// error means the history could not even be read.
func (s *Service) Recommend(ctx context.Context, userID string) (*Response, error) {
	slog.Info("generating recommendations", "user", userID)

	// The complete read set feeds exclusion; the recent window feeds
	// scoring. Two different sets, both status="read".
	read, err := s.store.ReadBookIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load read history: %w", err)
	}
	recent, err := s.store.RecentRead(ctx, userID, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent history: %w", err)
	}

	var (
		books    []database.Book
		strategy string
		signal   Signal
	)

	if len(recent) == 0 {
		slog.Info("cold start detected", "user", userID)
		books, strategy = s.selectCold(ctx, userID, read)
	} else {
		ids := make([]string, len(recent))
		for i, h := range recent {
			ids[i] = h.BookID
		}
		details, err := s.store.BooksByIDs(ctx, ids)
		if err != nil {
			// The vector branch degrades to an empty signal; the
			// fallback strategies do not need the details at all.
			slog.Warn("failed to fetch history book details", "error", err)
		}
		signal = Aggregate(recent, details)
		books, strategy = s.selectWarm(ctx, userID, signal, read)
	}

	formatted := FormatBooks(books)
	if len(formatted) == 0 {
		return nil, ErrNoRecommendations
	}

	return &Response{
		UserID:        userID,
		Books:         formatted,
		Justification: s.justification(ctx, signal, strategy, formatted),
		Strategy:      strategy,
		IsFallback:    strategy != StrategyVector,
	}, nil
}
