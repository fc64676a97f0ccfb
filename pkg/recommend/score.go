package recommend

import "github.com/nextchapter/suggestions-api/pkg/database"

// Love score weights. Scroll depth dominates because finishing a book is the
// strongest signal we collect; the watchlist flag and the explicit rating
// refine it.
const (
	scrollWeight    = 0.5
	watchlistWeight = 0.3
	ratingWeight    = 0.2

	maxScrollDepth = 100
	maxRating      = 5
)

// LoveScore maps one reading-history row to an affinity score in [0,1].
// Nil fields count as zero/false.
func LoveScore(h database.ReadingHistory) float64 {
	var scroll float64
	if h.ScrollDepth != nil {
		scroll = clamp(*h.ScrollDepth, 0, maxScrollDepth)
	}

	var rating float64
	if h.Rating != nil {
		rating = clamp(float64(*h.Rating), 0, maxRating)
	}

	var watchlist float64
	if h.WasInWatchlist != nil && *h.WasInWatchlist {
		watchlist = 1
	}

	return scrollWeight*scroll/maxScrollDepth +
		watchlistWeight*watchlist +
		ratingWeight*rating/maxRating
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
