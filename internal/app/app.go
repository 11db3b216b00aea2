// Package app assembles the extraction stack from configuration. It is shared
// by the HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/langextract/backend/internal/cache/redis"
	"github.com/langextract/backend/internal/consensus"
	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/ingestion"
	"github.com/langextract/backend/internal/kg/neo4j"
	"github.com/langextract/backend/internal/llm"
	"github.com/langextract/backend/internal/storage/sqlite"
	"github.com/langextract/backend/pkg/config"
	"github.com/langextract/backend/pkg/logger"
)

type App struct {
	Config    *config.Config
	LLM       *llm.Client
	Extractor *extractor.Extractor
	Engine    *consensus.Engine
	Processor *ingestion.Processor

	// Optional collaborators, nil when disabled or unreachable.
	Cache   *redis.Client
	History *sqlite.Client
	Graph   *neo4j.Client
}

// New builds the stack. The model provider is required; redis, sqlite and
// neo4j are connected only when enabled, and a failed connection is logged
// and leaves that collaborator out.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	a := &App{Config: cfg}
	a.LLM = llm.NewClient(provider, llm.OptionsFromConfig(cfg.LLM))

	a.Extractor = extractor.New(a.LLM,
		extractor.WithChunking(extractor.ChunkingConfig{
			MaxInputChars:     cfg.Extraction.MaxInputChars,
			ChunkOverlapChars: cfg.Extraction.ChunkOverlapChars,
			MaxChunks:         cfg.Extraction.MaxChunks,
		}),
		extractor.WithDefaults(extractor.Defaults{
			Language: cfg.Extraction.Language,
			Schema:   cfg.Extraction.Schema,
			Domain:   cfg.Extraction.Domain,
		}),
		extractor.WithConcurrency(cfg.Extraction.Concurrency),
	)

	a.Engine = consensus.New(a.LLM,
		consensus.WithParallel(cfg.Consensus.Parallel),
		consensus.WithDefaultLanguage(cfg.Extraction.Language),
	)

	opts := []ingestion.Option{ingestion.WithDefaultModel(a.LLM.DefaultModel())}

	if cfg.Redis.Enabled {
		cache, err := redis.NewClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second)
		if err != nil {
			logger.Warn("Result cache disabled", zap.Error(err))
		} else {
			a.Cache = cache
			opts = append(opts, ingestion.WithCache(cache))
		}
	}

	if cfg.SQLite.Enabled {
		history, err := openHistory(cfg.SQLite.Path)
		if err != nil {
			logger.Warn("Run history disabled", zap.Error(err))
		} else {
			a.History = history
			opts = append(opts, ingestion.WithHistory(history))
		}
	}

	if cfg.Neo4j.Enabled {
		graph, err := neo4j.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			logger.Warn("Graph sink disabled", zap.Error(err))
		} else {
			a.Graph = graph
			opts = append(opts, ingestion.WithGraphSink(graph))
		}
	}

	a.Processor = ingestion.NewProcessor(a.Extractor, a.Engine, opts...)
	return a, nil
}

func openHistory(path string) (*sqlite.Client, error) {
	history, err := sqlite.NewClient(path)
	if err != nil {
		return nil, err
	}
	if err := history.InitSchema(); err != nil {
		_ = history.Close()
		return nil, err
	}
	return history, nil
}

// Close releases the optional collaborators.
func (a *App) Close(ctx context.Context) {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			logger.Warn("Failed to close sqlite client", zap.Error(err))
		}
	}
	if a.Graph != nil {
		if err := a.Graph.Close(ctx); err != nil {
			logger.Warn("Failed to close neo4j client", zap.Error(err))
		}
	}
}
