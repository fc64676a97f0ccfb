// Package vector is a minimal client for the Pinecone data-plane REST API,
// covering only the query and upsert calls the service needs.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for one index. host is the index endpoint as
// shown in the Pinecone console, with or without the https:// prefix.
func NewClient(host, apiKey string) *Client {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Client{
		host:   strings.TrimSuffix(host, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Match is one nearest neighbor returned by Query, ranked by similarity.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns the topK nearest neighbors of vector in ranked order.
// A nil filter queries the whole index.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool, filter map[string]any) ([]Match, error) {
	var resp queryResponse
	err := c.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: includeMetadata,
		Filter:          filter,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Vector is one entry to upsert into the index.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors []Vector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes vectors into the index, overwriting existing ids.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	var resp upsertResponse
	if err := c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors}, &resp); err != nil {
		return 0, err
	}
	return resp.UpsertedCount, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.host+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector index request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector index error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse vector index response: %w", err)
	}

	return nil
}
