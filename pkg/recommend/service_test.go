package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/nextchapter/suggestions-api/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	read       map[string]struct{}
	recent     []database.ReadingHistory
	books      map[string]database.Book
	byGenre    []database.Book
	byGenreErr error
	popular    []database.Book
	popularErr error
	profile    *database.UserProfile
	profileErr error
}

func (f *fakeStore) ReadBookIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if f.read == nil {
		return map[string]struct{}{}, nil
	}
	return f.read, nil
}

func (f *fakeStore) RecentRead(ctx context.Context, userID string, limit int) ([]database.ReadingHistory, error) {
	return f.recent, nil
}

// BooksByIDs returns matches in reverse id order, like a database that does
// not honor the IN list order.
func (f *fakeStore) BooksByIDs(ctx context.Context, ids []string) ([]database.Book, error) {
	var out []database.Book
	for i := len(ids) - 1; i >= 0; i-- {
		if b, ok := f.books[ids[i]]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) BooksByAnyGenre(ctx context.Context, genres []string, limit int) ([]database.Book, error) {
	return f.byGenre, f.byGenreErr
}

func (f *fakeStore) PopularBooks(ctx context.Context, limit int) ([]database.Book, error) {
	return f.popular, f.popularErr
}

func (f *fakeStore) Profile(ctx context.Context, userID string) (*database.UserProfile, error) {
	return f.profile, f.profileErr
}

type fakeIndex struct {
	matches []vector.Match
	err     error
	calls   int
}

func (f *fakeIndex) Query(ctx context.Context, vec []float32, topK int, includeMetadata bool, filter map[string]any) ([]vector.Match, error) {
	f.calls++
	return f.matches, f.err
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeGenerator struct {
	text      string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	f.gotPrompt = prompt
	return f.text, f.err
}

func newTestService(store *fakeStore, index *fakeIndex, embedder *fakeEmbedder, generator *fakeGenerator) *Service {
	if index == nil {
		index = &fakeIndex{}
	}
	if embedder == nil {
		embedder = &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	}
	if generator == nil {
		generator = &fakeGenerator{text: "Because you loved similar stories, these picks should delight you!"}
	}
	return NewService(store, index, embedder, generator)
}

func readIDs(books []RecommendedBook) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.BookID
	}
	return ids
}

func TestFormatBooks(t *testing.T) {
	books := []database.Book{
		{ID: "b1", Title: "One", Author: "Ann", CoverURL: "https://img/1"},
		{ID: "b2"},
		{ID: "b3"}, {ID: "b4"}, {ID: "b5"}, {ID: "b6"}, {ID: "b7"},
	}

	formatted := FormatBooks(books)

	assert.Len(t, formatted, 5)
	assert.Equal(t, []string{"b1", "b2", "b3", "b4", "b5"}, readIDs(formatted))
	assert.Equal(t, "One", formatted[0].Title)
	// Missing fields stay empty, no placeholder text
	assert.Empty(t, formatted[1].Title)
	assert.Empty(t, formatted[1].CoverURL)

	assert.Empty(t, FormatBooks(nil))
}

func TestColdStartNoProfileUsesPopular(t *testing.T) {
	store := &fakeStore{
		popular: []database.Book{{ID: "p1", Title: "Popular One"}, {ID: "p2"}},
	}
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	generator := &fakeGenerator{text: "Since you're new here, we picked our readers' favorites!"}
	service := newTestService(store, index, embedder, generator)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, StrategyPopular, resp.Strategy)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, []string{"p1", "p2"}, readIDs(resp.Books))
	assert.Equal(t, "Since you're new here, we picked our readers' favorites!", resp.Justification)
	// Cold start never touches the vector stack
	assert.Zero(t, embedder.calls)
	assert.Zero(t, index.calls)
	// Non-vector strategies get the generic framing
	assert.Contains(t, generator.gotPrompt, "A user.")
}

func TestColdStartWithProfileUsesPreferences(t *testing.T) {
	store := &fakeStore{
		profile: &database.UserProfile{UserID: "user-1", Genres: []string{"Fantasy"}},
		byGenre: []database.Book{{ID: "f1", Title: "A Fantasy Book"}},
		popular: []database.Book{{ID: "p1"}},
	}
	service := newTestService(store, nil, nil, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, StrategyPreferences, resp.Strategy)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, []string{"f1"}, readIDs(resp.Books))
}

func TestWarmVectorSearch(t *testing.T) {
	read := map[string]struct{}{
		"b1": {}, "b2": {}, "r1": {}, "r2": {}, "r3": {},
	}
	store := &fakeStore{
		read: read,
		recent: []database.ReadingHistory{
			{BookID: "b1", ScrollDepth: f64(100), WasInWatchlist: bptr(true)},
			{BookID: "b2", ScrollDepth: f64(40)},
		},
		books: map[string]database.Book{
			"b1": {ID: "b1", Title: "Top Book", Author: "Ann", Genres: []string{"Fantasy"}},
			"b2": {ID: "b2", Author: "Bob", Genres: []string{"Mystery"}},
			"n1": {ID: "n1", Title: "Neighbor 1"},
			"n2": {ID: "n2"}, "n3": {ID: "n3"}, "n4": {ID: "n4"}, "n5": {ID: "n5"},
		},
	}
	// 8 neighbors, 3 already read
	index := &fakeIndex{matches: []vector.Match{
		{ID: "n1"}, {ID: "r1"}, {ID: "n2"}, {ID: "r2"},
		{ID: "n3"}, {ID: "n4"}, {ID: "r3"}, {ID: "n5"},
	}}
	generator := &fakeGenerator{text: "Because you loved Top Book, here are more like it!"}
	service := newTestService(store, index, nil, generator)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, StrategyVector, resp.Strategy)
	assert.False(t, resp.IsFallback)
	// Exactly the unseen neighbors survive, in the index's rank order even
	// though the detail fetch returned them shuffled.
	assert.Equal(t, []string{"n1", "n2", "n3", "n4", "n5"}, readIDs(resp.Books))
	for _, id := range readIDs(resp.Books) {
		assert.NotContains(t, read, id)
	}
	// Vector strategy prompts carry the aggregated signal
	assert.Contains(t, generator.gotPrompt, "Top Book")
	assert.Contains(t, generator.gotPrompt, "Fantasy")
	assert.Contains(t, generator.gotPrompt, "Ann")
}

func TestWarmAllNeighborsReadFallsBack(t *testing.T) {
	store := &fakeStore{
		read: map[string]struct{}{"b1": {}, "r1": {}, "r2": {}},
		recent: []database.ReadingHistory{
			{BookID: "b1", ScrollDepth: f64(100)},
		},
		books: map[string]database.Book{
			"b1": {ID: "b1", Title: "Top Book"},
		},
		profile: &database.UserProfile{UserID: "user-1", Genres: []string{"Horror"}},
		byGenre: []database.Book{{ID: "h1"}},
	}
	index := &fakeIndex{matches: []vector.Match{{ID: "r1"}, {ID: "r2"}, {ID: "b1"}}}
	service := newTestService(store, index, nil, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, StrategyPreferences, resp.Strategy)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, []string{"h1"}, readIDs(resp.Books))
}

func TestWarmEmbedderFailureFallsBack(t *testing.T) {
	store := &fakeStore{
		recent:  []database.ReadingHistory{{BookID: "b1"}},
		books:   map[string]database.Book{"b1": {ID: "b1"}},
		popular: []database.Book{{ID: "p1"}},
	}
	embedder := &fakeEmbedder{err: errors.New("embedding server down")}
	service := newTestService(store, &fakeIndex{}, embedder, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, StrategyPopular, resp.Strategy)
	assert.True(t, resp.IsFallback)
}

func TestPopularResultsExcludeReadBooks(t *testing.T) {
	store := &fakeStore{
		read:    map[string]struct{}{"p1": {}, "p3": {}},
		popular: []database.Book{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"}},
	}
	service := newTestService(store, nil, nil, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p4"}, readIDs(resp.Books))
}

func TestGeneratorFailureUsesFallbackSentence(t *testing.T) {
	store := &fakeStore{
		popular: []database.Book{{ID: "p1"}},
	}
	generator := &fakeGenerator{err: errors.New("generation unavailable")}
	service := newTestService(store, nil, nil, generator)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "Here are some hand-picked books you might enjoy!", resp.Justification)
}

func TestBlankGenerationUsesFallbackSentence(t *testing.T) {
	store := &fakeStore{
		popular: []database.Book{{ID: "p1"}},
	}
	generator := &fakeGenerator{text: "  \n"}
	service := newTestService(store, nil, nil, generator)

	resp, err := service.Recommend(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, justificationFallback, resp.Justification)
}

func TestNoCandidatesAnywhere(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(store, nil, nil, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoRecommendations)
}

func TestBranchErrorsDegradeToNotFound(t *testing.T) {
	store := &fakeStore{
		profileErr: errors.New("profiles table unreachable"),
		popularErr: errors.New("popularity query failed"),
	}
	service := newTestService(store, nil, nil, nil)

	resp, err := service.Recommend(context.Background(), "user-1")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoRecommendations)
}
