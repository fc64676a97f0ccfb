package recommend

import (
	"context"
	"log/slog"

	"github.com/nextchapter/suggestions-api/pkg/database"
)

// Strategy labels carried in the response. Everything except vector search
// is a fallback.
const (
	StrategyVector      = "vector_search"
	StrategyPreferences = "preferences"
	StrategyPopular     = "popular"
)

const (
	// recentWindow is how many recent "read" rows feed the love score.
	recentWindow = 5
	// neighborCount is the top_k of the similarity query; wider than the
	// result so already-read neighbors can be dropped without starving it.
	neighborCount = 8
	// candidateLimit caps the preference and popularity queries.
	candidateLimit = 10
)

// selectWarm runs the strategy chain for a user with history:
// vector search first, then the cold-start chain as fallback.
func (s *Service) selectWarm(ctx context.Context, userID string, signal Signal, read map[string]struct{}) ([]database.Book, string) {
	if books := s.fromVector(ctx, signal, read); len(books) > 0 {
		return books, StrategyVector
	}
	slog.Info("vector search produced no unseen titles, falling back", "user", userID)
	return s.selectCold(ctx, userID, read)
}

// selectCold runs the non-personalized chain: stated preferences, then
// global popularity. Returns a nil slice when every branch came up empty.
func (s *Service) selectCold(ctx context.Context, userID string, read map[string]struct{}) ([]database.Book, string) {
	if books := s.fromPreferences(ctx, userID, read); len(books) > 0 {
		return books, StrategyPreferences
	}
	if books := s.fromPopular(ctx, read); len(books) > 0 {
		return books, StrategyPopular
	}
	return nil, ""
}

// fromVector embeds the user's top book and asks the index for its nearest
// neighbors. Any collaborator failure degrades to an empty result so the
// caller falls through to the next strategy.
func (s *Service) fromVector(ctx context.Context, signal Signal, read map[string]struct{}) []database.Book {
	queryVector, err := s.embedder.Encode(ctx, TextToEmbed(signal.TopBook))
	if err != nil {
		slog.Warn("failed to embed query text", "error", err)
		return nil
	}

	// The query text already carries the genre preference; combining it
	// with a hard metadata filter over-constrains the search to zero
	// matches, so the neighbor query runs unfiltered.
	matches, err := s.index.Query(ctx, queryVector, neighborCount, true, nil)
	if err != nil {
		slog.Warn("vector index query failed", "error", err)
		return nil
	}

	ids := make([]string, 0, resultLimit)
	for _, m := range matches {
		if _, seen := read[m.ID]; seen {
			continue
		}
		ids = append(ids, m.ID)
		if len(ids) == resultLimit {
			break
		}
	}
	if len(ids) == 0 {
		return nil
	}

	books, err := s.store.BooksByIDs(ctx, ids)
	if err != nil {
		slog.Warn("failed to fetch neighbor details", "error", err)
		return nil
	}
	return orderByRank(ids, books)
}

// fromPreferences recommends from the user's saved genre preferences.
// No profile, empty genre set, or a store failure all yield nil.
func (s *Service) fromPreferences(ctx context.Context, userID string, read map[string]struct{}) []database.Book {
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		slog.Warn("failed to fetch user profile", "error", err)
		return nil
	}
	if profile == nil || len(profile.Genres) == 0 {
		slog.Debug("user has no preferences saved", "user", userID)
		return nil
	}

	books, err := s.store.BooksByAnyGenre(ctx, profile.Genres, candidateLimit)
	if err != nil {
		slog.Warn("failed to fetch preference-based books", "error", err)
		return nil
	}
	return excludeRead(books, read)
}

func (s *Service) fromPopular(ctx context.Context, read map[string]struct{}) []database.Book {
	books, err := s.store.PopularBooks(ctx, candidateLimit)
	if err != nil {
		slog.Warn("failed to fetch popular books", "error", err)
		return nil
	}
	return excludeRead(books, read)
}

// excludeRead drops every book the user has already finished. The read set
// covers the complete history, not just the recent scoring window.
func excludeRead(books []database.Book, read map[string]struct{}) []database.Book {
	kept := books[:0]
	for _, b := range books {
		if _, seen := read[b.ID]; !seen {
			kept = append(kept, b)
		}
	}
	return kept
}

// orderByRank restores the similarity rank order that the IN query on the
// catalog does not preserve.
func orderByRank(ids []string, books []database.Book) []database.Book {
	byID := make(map[string]database.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]database.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered
}
