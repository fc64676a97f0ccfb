package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingResponse(dim int) []byte {
	vec := make([]float32, dim)
	body, _ := json.Marshal(map[string]any{
		"data": []map[string]any{{"embedding": vec}},
	})
	return body
}

func TestEncode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-MiniLM-L6-v2", req["model"])
		w.Header().Set("Content-Type", "application/json")
		w.Write(embeddingResponse(Dimension))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "all-MiniLM-L6-v2")
	vec, err := client.Encode(context.Background(), "Title: Dune. Author: Frank Herbert. Genre: . Tags: .")

	require.NoError(t, err)
	assert.Len(t, vec, Dimension)
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(embeddingResponse(768))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "all-MiniLM-L6-v2")
	_, err := client.Encode(context.Background(), "text")

	assert.ErrorContains(t, err, "unexpected embedding dimension")
}

func TestEncodeEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "all-MiniLM-L6-v2")
	_, err := client.Encode(context.Background(), "text")

	assert.ErrorContains(t, err, "no embedding returned")
}
