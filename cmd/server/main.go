package main

import (
	"context"
	"time"

	"stylomail/internal/cache"
	"stylomail/internal/config"
	"stylomail/internal/contexts"
	"stylomail/internal/database"
	"stylomail/internal/email"
	"stylomail/internal/embeddings"
	"stylomail/internal/generator"
	"stylomail/internal/ingest"
	"stylomail/internal/openai"
	"stylomail/internal/server"
	"stylomail/internal/stylometry"
	"stylomail/internal/threads"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Str("driver", db.DriverName()).Msg("Database connection established")

	store := database.NewEmailStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.CreateTables(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create tables")
	}

	// OpenAI client (Azure primary, OpenAI fallback)
	aiClient, err := openai.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create OpenAI client")
	}
	embedder := embeddings.NewEmbedder(aiClient, cfg.EmbeddingQueryPrefix, cfg.EmbeddingPassagePrefix)

	// Vector index; without it ingestion is store-only and similarity
	// features are disabled
	index, err := embeddings.NewIndex(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey, cfg.QdrantUseTLS, cfg.QdrantCollection, cfg.EmbeddingDim)
	if err != nil {
		logger.Warn().Err(err).Msg("Vector index unavailable, similarity features disabled")
		index = nil
	} else if err := index.EnsureCollection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure collection, similarity features disabled")
		index = nil
	}

	var tagger stylometry.Tagger
	if cfg.TaggerURL != "" {
		tagger = stylometry.NewHTTPTagger(cfg.TaggerURL)
	} else {
		logger.Warn().Msg("TAGGER_URL not set, stylometric profiles disabled")
	}

	var searcher *embeddings.Searcher
	var ingestService *ingest.Service
	var assembler *contexts.Assembler
	resolver := threads.NewResolver(store)
	opts := contexts.Options{
		RecentLimit:   cfg.RecentEmailLimit,
		SimilarLimit:  cfg.SimilarEmailLimit,
		ProfileWindow: cfg.ProfileEmailLimit,
		ProfileTopN:   cfg.ProfileTopN,
		ProfileTTL:    time.Duration(cfg.ProfileCacheTTL) * time.Minute,
	}
	if index != nil {
		searcher = embeddings.NewSearcher(embedder, index)
		ingestService = ingest.NewService(store, embedder, index)
		assembler = contexts.NewAssembler(store, searcher, resolver, tagger, cache.New(), opts)
	} else {
		ingestService = ingest.NewService(store, nil, nil)
		assembler = contexts.NewAssembler(store, nil, resolver, tagger, cache.New(), opts)
	}

	services := server.Services{
		Ingest:    ingestService,
		Assembler: assembler,
		Generator: generator.NewGenerator(aiClient),
		Sender:    email.NewEmailService(cfg.SendGridAPIKey, cfg.FromEmail),
	}
	if searcher != nil {
		services.Searcher = searcher
	}

	// Create and initialize server
	srv := server.New(cfg, db, logger, services)
	srv.Initialize()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
