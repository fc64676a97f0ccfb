package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	routing "github.com/nextchapter/suggestions-api/pkg/api"
	"github.com/nextchapter/suggestions-api/pkg/database"
	"github.com/nextchapter/suggestions-api/pkg/embedding"
	"github.com/nextchapter/suggestions-api/pkg/llm"
	"github.com/nextchapter/suggestions-api/pkg/recommend"
	indexsync "github.com/nextchapter/suggestions-api/pkg/sync"
	"github.com/nextchapter/suggestions-api/pkg/vector"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"gorm.io/plugin/opentelemetry/tracing"
)

func getLogLevelFromEnv() slog.Level {
	levelStr := os.Getenv("LOG_LEVEL")

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Missing required environment variable %s", key)
	}
	return value
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: getLogLevelFromEnv()})))

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		panic(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("suggestions-api"),
			),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	db, err := database.Open()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.Use(tracing.NewPlugin())

	store := database.NewStore(db)
	if err := store.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	embeddingModel := getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2")
	index := vector.NewClient(requireEnv("PINECONE_INDEX_HOST"), requireEnv("PINECONE_API_KEY"))
	embedder := embedding.NewClient(requireEnv("EMBEDDING_ENDPOINT"), os.Getenv("EMBEDDING_API_KEY"), embeddingModel)
	generator := llm.NewOpenAIClient(
		getEnv("GROQ_CHAT_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions"),
		requireEnv("GROQ_API_KEY"),
		getEnv("GROQ_CHAT_MODEL", "llama-3.1-8b-instant"),
	)

	service := recommend.NewService(store, index, embedder, generator)

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Server"},
		AllowCredentials: false,
	}))

	addr := ":80"
	if port, hasPort := os.LookupEnv("API_PORT"); hasPort {
		addr = ":" + port
	}

	host := "http://localhost"
	if hostEnv, hasHost := os.LookupEnv("API_HOST"); hasHost {
		host = hostEnv
	} else {
		host += addr
	}

	config := huma.DefaultConfig("NextChapter Suggestions API", "1.0.0")
	config.OpenAPI.Info.Description = "Personalized book recommendations for the NextChapter reading app"
	config.OpenAPI.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	config.DocsPath = "/"
	config.Servers = []*huma.Server{
		{URL: host},
	}
	api := humachi.New(router, config)

	routing.Setup(api, service, store)

	server := &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(router, "api"),
	}

	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	go store.ComputeAndCacheStats(false)

	syncer := indexsync.New(store, embedder, index, embeddingModel)

	for {
		ctx := context.Background()

		// Calculate time until next sync
		var sleepDuration time.Duration
		lastSync, err := syncer.GetLastSync(ctx)
		if err != nil {
			slog.Error("Failed to get last sync", "error", err)
			os.Exit(1)
		}
		if lastSync != nil {
			sleepDuration = time.Until(lastSync.Date.Add(24 * time.Hour))
		}

		// If sleep duration is negative or very small, sync immediately
		if sleepDuration <= 0 {
			sleepDuration = 0
		}

		slog.Info("Next index sync scheduled", "in", sleepDuration)
		time.Sleep(sleepDuration)

		// Perform sync
		if err := syncer.Sync(ctx); err != nil {
			slog.Error("Index sync failed", "error", err)
		}
	}
}
