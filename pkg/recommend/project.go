package recommend

import (
	"fmt"
	"strings"

	"github.com/nextchapter/suggestions-api/pkg/database"
)

// TextToEmbed projects a book onto the text form the embedding model was
// indexed with. The index sync and the query path must produce the exact
// same string for the same book, so both call this.
func TextToEmbed(book database.Book) string {
	return fmt.Sprintf(
		"Title: %s. Author: %s. Genre: %s. Tags: %s.",
		book.Title,
		book.Author,
		book.Genre,
		strings.Join(book.Genres, ", "),
	)
}
