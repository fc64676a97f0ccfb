package routing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/nextchapter/suggestions-api/pkg/recommend"
	indexsync "github.com/nextchapter/suggestions-api/pkg/sync"
)

type PlainOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type StatsOutput struct {
	Body database.CachedStats
}

type SyncStatsOutput struct {
	Body indexsync.SyncStats
}

type RecommendationOutput struct {
	Body recommend.Response
}

type GetRecommendationsInput struct {
	UserID string `path:"user_id" doc:"User to compute recommendations for"`
}

type PostRecommendationsInput struct {
	Body struct {
		UserID string `json:"user_id,omitempty" doc:"User to compute recommendations for"`
	}
}

func Setup(api huma.API, service *recommend.Service, store *database.Store) {
	api.UseMiddleware(authMiddleware(api))

	huma.Register(api, huma.Operation{
		OperationID: "HealthCheck",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Health check",
		Description: "Check if the API is running",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*PlainOutput, error) {
		return &PlainOutput{
			ContentType: "text/plain",
			Body:        []byte("OK"),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetRecommendations",
		Method:      "GET",
		Path:        "/recommendations/{user_id}",
		Summary:     "Get recommendations",
		Description: "Compute personalized book recommendations for a user",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *GetRecommendationsInput) (*RecommendationOutput, error) {
		return recommendForUser(ctx, service, input.UserID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "PostRecommendations",
		Method:      "POST",
		Path:        "/recommendations",
		Summary:     "Get recommendations",
		Description: "Compute personalized book recommendations for the user in the request body",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearerAuth": {}}},
	}, func(ctx context.Context, input *PostRecommendationsInput) (*RecommendationOutput, error) {
		if strings.TrimSpace(input.Body.UserID) == "" {
			return nil, huma.Error400BadRequest("missing user_id in request body")
		}
		return recommendForUser(ctx, service, input.Body.UserID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetStatistics",
		Method:      "GET",
		Path:        "/v1/statistics",
		Summary:     "Get statistics",
		Description: "Get statistics about the current catalog",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*StatsOutput, error) {
		stats := database.GetCachedStats()
		if stats == nil {
			go store.ComputeAndCacheStats(false)
			return nil, huma.Error503ServiceUnavailable("sync in progress or stats are being computed, please retry later")
		}
		return &StatsOutput{
			Body: *stats,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetSyncStatistics",
		Method:      "GET",
		Path:        "/v1/statistics/sync",
		Summary:     "Get sync statistics",
		Description: "Get current vector index sync progress and statistics",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *struct{}) (*SyncStatsOutput, error) {
		resp := &SyncStatsOutput{}
		resp.Body = indexsync.GetStats()
		return resp, nil
	})
}

// recommendForUser maps pipeline outcomes onto the HTTP contract: a fully
// exhausted strategy chain is 404, anything else unexpected is a generic 500.
func recommendForUser(ctx context.Context, service *recommend.Service, userID string) (*RecommendationOutput, error) {
	resp, err := service.Recommend(ctx, userID)
	if errors.Is(err, recommend.ErrNoRecommendations) {
		return nil, huma.Error404NotFound("no recommendations available for this user")
	}
	if err != nil {
		slog.Error("recommendation pipeline failed", "user", userID, "error", err)
		return nil, huma.Error500InternalServerError("an internal server error occurred")
	}
	return &RecommendationOutput{Body: *resp}, nil
}
