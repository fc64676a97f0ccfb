package recommend

import (
	"testing"

	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/stretchr/testify/assert"
)

func TestTextToEmbed(t *testing.T) {
	book := database.Book{
		Title:  "Dune",
		Author: "Frank Herbert",
		Genre:  "Science Fiction",
		Genres: []string{"Science Fiction", "Classics"},
	}
	assert.Equal(t,
		"Title: Dune. Author: Frank Herbert. Genre: Science Fiction. Tags: Science Fiction, Classics.",
		TextToEmbed(book))
}

func TestTextToEmbedMissingFields(t *testing.T) {
	text := TextToEmbed(database.Book{})
	assert.Equal(t, "Title: . Author: . Genre: . Tags: .", text)
	assert.Contains(t, text, "Title:")
	assert.Contains(t, text, "Author:")
}
