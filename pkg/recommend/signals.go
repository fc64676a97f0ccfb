package recommend

import "github.com/nextchapter/suggestions-api/pkg/database"

// Signal is the per-request aggregate of a user's recent reading history.
// It is computed fresh for every request and discarded with the response.
type Signal struct {
	TopBook        database.Book
	TopScore       float64
	TopGenre       string
	TopAuthor      string
	LanguageTotals map[string]float64
}

// Aggregate folds the user's recent "read" rows (most recent first) and their
// catalog details into a Signal. Rows whose book detail is missing are
// skipped. Ties on accumulated totals resolve to the first-seen key so the
// result is deterministic.
func Aggregate(history []database.ReadingHistory, books []database.Book) Signal {
	details := make(map[string]database.Book, len(books))
	for _, b := range books {
		details[b.ID] = b
	}

	genres := newTotals()
	authors := newTotals()
	languages := newTotals()

	var signal Signal
	found := false

	for _, h := range history {
		book, ok := details[h.BookID]
		if !ok {
			continue
		}
		score := LoveScore(h)

		for _, g := range book.Genres {
			if g != "" {
				genres.add(g, score)
			}
		}
		if book.Author != "" {
			authors.add(book.Author, score)
		}
		if book.Language != "" {
			languages.add(book.Language, score)
		}

		if !found || score > signal.TopScore {
			signal.TopBook = book
			signal.TopScore = score
			found = true
		}
	}

	signal.TopGenre = genres.max()
	signal.TopAuthor = authors.max()
	signal.LanguageTotals = languages.sums
	return signal
}

// totals accumulates per-key score sums while remembering insertion order,
// so max() has a stable first-seen-wins tie-break.
type totals struct {
	sums map[string]float64
	keys []string
}

func newTotals() *totals {
	return &totals{sums: make(map[string]float64)}
}

func (t *totals) add(key string, score float64) {
	if _, ok := t.sums[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.sums[key] += score
}

func (t *totals) max() string {
	var best string
	var bestSum float64
	for i, key := range t.keys {
		if i == 0 || t.sums[key] > bestSum {
			best = key
			bestSum = t.sums[key]
		}
	}
	return best
}
