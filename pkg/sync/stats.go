package sync

import (
	"sync"

	"github.com/nextchapter/suggestions-api/pkg/database"
)

// SyncStats holds the current index sync progress information
type SyncStats struct {
	IsRunning bool   `json:"isRunning"`
	Base      string `json:"base"`
	Total     int64  `json:"total"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
}

type statsHolder struct {
	mu    sync.RWMutex
	stats SyncStats
}

var holder = &statsHolder{}

// GetStats returns a copy of current sync stats
func GetStats() SyncStats {
	holder.mu.RLock()
	defer holder.mu.RUnlock()

	return holder.stats
}

// startSync initializes sync statistics
func startSync(base string, total int64) {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	holder.stats = SyncStats{
		IsRunning: true,
		Base:      base,
		Total:     total,
	}
}

// updateProgress records how many books have been embedded and upserted
func updateProgress(processed, failed int64) {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	holder.stats.Processed = processed
	holder.stats.Failed = failed
}

// endSync marks the sync as completed and refreshes the stats cache
func endSync(store *database.Store) {
	holder.mu.Lock()
	holder.stats = SyncStats{}
	holder.mu.Unlock()

	store.ComputeAndCacheStats(true)
}
