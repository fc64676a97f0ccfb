package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReadBookIDs returns the complete set of book ids the user has finished.
// This is the exclusion set: recommendations must never contain any of them,
// so it is intentionally not limited to the recent scoring window.
func (s *Store) ReadBookIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&ReadingHistory{}).
		Where("user_id = ? AND status = ?", userID, StatusRead).
		Pluck("book_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch read history ids: %w", err)
	}

	read := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		read[id] = struct{}{}
	}
	return read, nil
}

// RecentRead returns the user's most recently updated "read" rows,
// most recent first.
func (s *Store) RecentRead(ctx context.Context, userID string, limit int) ([]ReadingHistory, error) {
	var history []ReadingHistory
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusRead).
		Order("updated_at DESC").
		Limit(limit).
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent history: %w", err)
	}
	return history, nil
}

// BooksByIDs fetches catalog details for the given ids. Order of the result
// is whatever the database returns; callers that care must reorder.
func (s *Store) BooksByIDs(ctx context.Context, ids []string) ([]Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []Book
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch books by ids: %w", err)
	}
	return books, nil
}

// BooksByAnyGenre returns books whose tag set overlaps any of the given
// genres, capped at limit.
func (s *Store) BooksByAnyGenre(ctx context.Context, genres []string, limit int) ([]Book, error) {
	var books []Book
	if err := s.db.WithContext(ctx).
		Where("genres && ?", pq.StringArray(genres)).
		Limit(limit).
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch books by genres: %w", err)
	}
	return books, nil
}

// PopularBooks returns globally popular books. It first tries the
// precomputed get_popular_books() function; deployments without it fall back
// to a plain ORDER BY on download counts.
func (s *Store) PopularBooks(ctx context.Context, limit int) ([]Book, error) {
	var books []Book
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM get_popular_books()").
		Scan(&books).Error
	if err == nil && len(books) > 0 {
		if len(books) > limit {
			books = books[:limit]
		}
		return books, nil
	}

	books = nil
	if err := s.db.WithContext(ctx).
		Order("downloads DESC NULLS LAST").
		Limit(limit).
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch popular books: %w", err)
	}
	return books, nil
}

// Profile returns the user's preference profile, or nil when none was ever
// saved. Only real query failures surface as errors.
func (s *Store) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	var profile UserProfile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return &profile, nil
}

// ScanBooks walks the whole catalog in batches, calling fn for each batch.
// Used by the index sync.
func (s *Store) ScanBooks(ctx context.Context, batchSize int, fn func(books []Book) error) error {
	var batch []Book
	result := s.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("failed to scan books: %w", result.Error)
	}
	return nil
}

// CountBooks returns the catalog size.
func (s *Store) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Book{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

// CreateSynchronization records an index sync checkpoint.
func (s *Store) CreateSynchronization(ctx context.Context, sync *Synchronization) error {
	return s.db.WithContext(ctx).Create(sync).Error
}

// LastSynchronization returns the most recent sync checkpoint, or
// gorm.ErrRecordNotFound when the index was never synced.
func (s *Store) LastSynchronization(ctx context.Context) (*Synchronization, error) {
	var sync Synchronization
	if err := s.db.WithContext(ctx).Order("date DESC").First(&sync).Error; err != nil {
		return nil, err
	}
	return &sync, nil
}
