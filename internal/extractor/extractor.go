// Package extractor runs single-pass extraction: it splits long input into
// overlapping windows, sends each to the model gateway and merges the
// normalized results.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langextract/backend/internal/llm"
	"github.com/langextract/backend/internal/metrics"
	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/logger"
)

var ErrInvalidRequest = errors.New("invalid request")

type Request struct {
	Text        string
	Language    string
	Schema      string
	Domain      string
	Examples    []prompts.Example
	Model       string
	Temperature float64
	MaxTokens   int
	// Chunking overrides the extractor's chunking for this call.
	Chunking *ChunkingConfig
}

// Defaults fill empty request fields.
type Defaults struct {
	Language string
	Schema   string
	Domain   string
}

type Extractor struct {
	gateway     llm.Gateway
	chunking    ChunkingConfig
	defaults    Defaults
	concurrency int
}

type Option func(*Extractor)

func WithChunking(cfg ChunkingConfig) Option {
	return func(e *Extractor) { e.chunking = cfg }
}

func WithDefaults(d Defaults) Option {
	return func(e *Extractor) {
		if d.Language != "" {
			e.defaults.Language = d.Language
		}
		if d.Schema != "" {
			e.defaults.Schema = d.Schema
		}
		if d.Domain != "" {
			e.defaults.Domain = d.Domain
		}
	}
}

// WithConcurrency allows up to n windows in flight at once. Results are still
// merged in window order. The default is 1.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func New(gateway llm.Gateway, opts ...Option) *Extractor {
	e := &Extractor{
		gateway:  gateway,
		chunking: DefaultChunking(),
		defaults: Defaults{
			Language: "fa",
			Schema:   schema.DefaultSchema,
			Domain:   prompts.DomainGeneral,
		},
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults reports the values used for empty request fields.
func (e *Extractor) Defaults() Defaults {
	return e.defaults
}

// Extract runs the chunked extraction. Any failed window fails the whole call.
func (e *Extractor) Extract(ctx context.Context, req Request) (schema.Result, error) {
	req, err := e.prepare(req)
	if err != nil {
		return schema.Result{}, err
	}

	chunking := e.chunking
	if req.Chunking != nil {
		chunking = *req.Chunking
	}

	windows := SplitWindows(req.Text, chunking)
	metrics.ChunksPerExtraction.Observe(float64(len(windows)))

	if total := len([]rune(req.Text)); Covered(windows) < total {
		logger.Warn("Chunk cap reached, trailing text not sent to the model",
			zap.Int("windows", len(windows)),
			zap.Int("covered_chars", Covered(windows)),
			zap.Int("total_chars", total),
		)
	}

	start := time.Now()
	results, err := e.runWindows(ctx, req, windows)
	if err != nil {
		return schema.Result{}, err
	}

	// A single window is returned as the model produced it.
	merged := results[0]
	if len(results) > 1 {
		merged = Merge(results...)
	}
	logger.Info("Extraction finished",
		zap.String("model", req.Model),
		zap.String("domain", req.Domain),
		zap.Int("windows", len(windows)),
		zap.Int("entities", len(merged.Entities)),
		zap.Int("relationships", len(merged.Relationships)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return merged, nil
}

// ExtractSingle sends the whole text in one call regardless of its length.
func (e *Extractor) ExtractSingle(ctx context.Context, req Request) (schema.Result, error) {
	req, err := e.prepare(req)
	if err != nil {
		return schema.Result{}, err
	}
	return e.call(ctx, req, req.Text)
}

func (e *Extractor) prepare(req Request) (Request, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, fmt.Errorf("%w: text is empty", ErrInvalidRequest)
	}
	if req.Language == "" {
		req.Language = e.defaults.Language
	}
	if req.Schema == "" {
		req.Schema = e.defaults.Schema
	}
	if req.Domain == "" {
		req.Domain = e.defaults.Domain
	}
	return req, nil
}

func (e *Extractor) runWindows(ctx context.Context, req Request, windows []Window) ([]schema.Result, error) {
	results := make([]schema.Result, len(windows))

	if e.concurrency <= 1 || len(windows) == 1 {
		for i, w := range windows {
			r, err := e.callWindow(ctx, req, w, len(windows))
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.callWindow(gctx, req, w, len(windows))
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Extractor) callWindow(ctx context.Context, req Request, w Window, total int) (schema.Result, error) {
	r, err := e.call(ctx, req, w.Text)
	if err != nil {
		if total > 1 {
			return schema.Result{}, fmt.Errorf("window %d/%d: %w", w.Index+1, total, err)
		}
		return schema.Result{}, err
	}
	logger.Debug("Window extracted",
		zap.Int("window", w.Index),
		zap.Int("start", w.Start),
		zap.Int("end", w.End),
		zap.Int("entities", len(r.Entities)),
	)
	return r, nil
}

func (e *Extractor) call(ctx context.Context, req Request, text string) (schema.Result, error) {
	raw, err := e.gateway.Complete(ctx, llm.Request{
		Model:        req.Model,
		SystemPrompt: prompts.BuildSystemPrompt(req.Language, req.Schema, req.Domain),
		UserPrompt:   prompts.BuildUserPrompt(text, req.Language, req.Examples, req.Domain),
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return schema.Result{}, err
	}
	return schema.Normalize(raw), nil
}
