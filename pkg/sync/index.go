// Package sync mirrors the book catalog into the vector index: every book is
// projected to text, embedded, and upserted under its catalog id so the
// recommendation pipeline can search it.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/nextchapter/suggestions-api/pkg/recommend"
	"github.com/nextchapter/suggestions-api/pkg/vector"
	"gorm.io/gorm"
)

const batchSize = 100

type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Upsert(ctx context.Context, vectors []vector.Vector) (int, error)
}

type Syncer struct {
	store    *database.Store
	embedder Embedder
	index    Index
	model    string
}

func New(store *database.Store, embedder Embedder, index Index, model string) *Syncer {
	return &Syncer{
		store:    store,
		embedder: embedder,
		index:    index,
		model:    model,
	}
}

// GetLastSync returns the last sync checkpoint, or nil when the index was
// never synced.
func (s *Syncer) GetLastSync(ctx context.Context) (*database.Synchronization, error) {
	sync, err := s.store.LastSynchronization(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sync, nil
}

// ShouldSync checks if a sync should be performed but only on time value
func (s *Syncer) ShouldSync(ctx context.Context) bool {
	lastSync, err := s.GetLastSync(ctx)
	if err != nil || lastSync == nil {
		return true
	}

	return time.Since(lastSync.Date) > 24*time.Hour
}

// Sync walks the whole catalog and upserts one vector per book. Books that
// fail to embed are skipped and counted; a failed upsert aborts the run so
// the next cycle retries.
func (s *Syncer) Sync(ctx context.Context) error {
	total, err := s.store.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("cannot sync: %w", err)
	}

	slog.Info("starting index sync", "books", total, "model", s.model)
	startSync(s.model, total)

	var processed, failed int64
	err = s.store.ScanBooks(ctx, batchSize, func(books []database.Book) error {
		vectors := make([]vector.Vector, 0, len(books))
		for _, book := range books {
			values, err := s.embedder.Encode(ctx, recommend.TextToEmbed(book))
			if err != nil {
				slog.Warn("failed to embed book", "book", book.ID, "error", err)
				failed++
				continue
			}
			vectors = append(vectors, vector.Vector{
				ID:     book.ID,
				Values: values,
				Metadata: map[string]any{
					"genre":    book.Genre,
					"genres":   []string(book.Genres),
					"language": book.Language,
				},
			})
		}

		if _, err := s.index.Upsert(ctx, vectors); err != nil {
			return fmt.Errorf("failed to upsert batch: %w", err)
		}

		processed += int64(len(books))
		updateProgress(processed, failed)
		return nil
	})
	if err != nil {
		endSync(s.store)
		return err
	}

	slog.Info("index sync completed", "books", processed, "failed", failed)

	syncRecord := database.Synchronization{
		Date:     time.Now(),
		Base:     s.model,
		Complete: true,
	}
	err = s.store.CreateSynchronization(ctx, &syncRecord)
	endSync(s.store)
	return err
}
