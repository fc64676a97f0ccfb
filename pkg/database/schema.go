package database

import (
	"time"

	"github.com/lib/pq"
)

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Book is one catalog entry. The catalog is written by the ingestion
// tooling; this service only reads it and mirrors it into the vector index.
type Book struct {
	Model

	ID        string         `json:"id" gorm:"primaryKey"`
	Title     string         `json:"title"`
	Author    string         `json:"author" gorm:"index:idx_book_author"`
	Genre     string         `json:"genre" gorm:"index:idx_book_genre"`
	Genres    pq.StringArray `json:"genres" gorm:"type:text[];index:idx_book_genres,type:gin"`
	Language  string         `json:"language"`
	CoverURL  string         `json:"coverURL"`
	Downloads int64          `json:"downloads"`
}

// ReadingHistory is one user/book interaction row. ScrollDepth, Rating and
// WasInWatchlist are nullable; a missing value scores as zero.
type ReadingHistory struct {
	Model

	UserID         string   `json:"userId" gorm:"primaryKey;index:idx_history_user_status"`
	BookID         string   `json:"bookId" gorm:"primaryKey"`
	Status         string   `json:"status" gorm:"index:idx_history_user_status"`
	ScrollDepth    *float64 `json:"scrollDepth"`
	Rating         *int     `json:"rating"`
	WasInWatchlist *bool    `json:"wasInWatchlist"`
}

// UserProfile holds the genres a user picked during onboarding. Most users
// never save one; absence is a valid state.
type UserProfile struct {
	Model

	UserID string         `json:"userId" gorm:"primaryKey"`
	Genres pq.StringArray `json:"genres" gorm:"type:text[]"`
}

type Synchronization struct {
	Date     time.Time `gorm:"primaryKey;type:timestamptz"`
	Base     string    // the embedding model used for this index sync, e.g.: "all-MiniLM-L6-v2"
	Complete bool
}

// StatusRead is the only interaction status that participates in scoring
// and in the already-read exclusion set.
const StatusRead = "read"
