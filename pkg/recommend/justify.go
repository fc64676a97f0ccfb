package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// justificationFallback is returned whenever generation fails or comes back
// blank. Recommendation delivery never depends on the generator being up.
const justificationFallback = "Here are some hand-picked books you might enjoy!"

const (
	justificationTemperature = 0.7
	justificationMaxTokens   = 100
)

// justification asks the generation collaborator for one cheerful sentence
// explaining the picks. For the vector strategy the prompt carries the
// user's top book, genre and author; fallback strategies get a generic
// framing since no signal was computed for them.
func (s *Service) justification(ctx context.Context, signal Signal, strategy string, picks []RecommendedBook) string {
	titles := make([]string, len(picks))
	for i, b := range picks {
		titles[i] = "'" + b.Title + "'"
	}

	userContext := "A user."
	if strategy == StrategyVector {
		userContext = fmt.Sprintf(
			"A user who loves the book '%s' (their top-rated book) and enjoys the genre '%s' and author '%s'.",
			signal.TopBook.Title, signal.TopGenre, signal.TopAuthor,
		)
	}

	prompt := fmt.Sprintf(`System: You are a friendly and enthusiastic book recommendation assistant for an app called "NextChapter".
User: %s

You have just recommended the following five books: %s.

Please write a single, cheerful sentence (max 25 words) explaining *why* these books were chosen, based on the user's context.
Start with "Because you loved...", "Since you're a fan of...", or a similar phrase. Do not use markdown.`,
		userContext, strings.Join(titles, ", "))

	text, err := s.generator.Complete(ctx, prompt, justificationTemperature, justificationMaxTokens)
	if err != nil {
		slog.Error("justification generation failed", "error", err)
		return justificationFallback
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("justification generation returned empty text")
		return justificationFallback
	}
	return strings.TrimSpace(text)
}
