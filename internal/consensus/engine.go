// Package consensus runs two independent extractions and a referee pass that
// reconciles them, scoring how much the first two agreed.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/llm"
	"github.com/langextract/backend/internal/metrics"
	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/logger"
)

type Request struct {
	Text         string  `json:"text"`
	Language     string  `json:"language,omitempty"`
	Domain       string  `json:"domain,omitempty"`
	ModelFirst   string  `json:"model_first"`
	ModelSecond  string  `json:"model_second"`
	ModelReferee string  `json:"model_referee"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_output_tokens,omitempty"`
}

type Stage string

const (
	StageFirst   Stage = "first"
	StageSecond  Stage = "second"
	StageReferee Stage = "referee"
)

// ProgressFunc is told about each analysis as soon as it is available. With
// parallel execution first and second may arrive in either order. It may be
// called from multiple goroutines but never concurrently.
type ProgressFunc func(stage Stage, analysis schema.ModelAnalysis)

type Engine struct {
	gateway   llm.Gateway
	extractor *extractor.Extractor
	language  string
	parallel  bool
}

type Option func(*Engine)

// WithParallel runs the first and second extractions concurrently.
func WithParallel(parallel bool) Option {
	return func(e *Engine) { e.parallel = parallel }
}

func WithDefaultLanguage(language string) Option {
	return func(e *Engine) {
		if language != "" {
			e.language = language
		}
	}
}

func New(gateway llm.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway:  gateway,
		language: "fa",
		parallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.extractor = extractor.New(gateway, extractor.WithDefaults(extractor.Defaults{
		Language: e.language,
		Schema:   schema.DefaultSchema,
		Domain:   prompts.DomainGeneral,
	}))
	return e
}

func (e *Engine) validate(req Request) (Request, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req, fmt.Errorf("%w: text is empty", extractor.ErrInvalidRequest)
	}
	var missing []string
	if strings.TrimSpace(req.ModelFirst) == "" {
		missing = append(missing, "model_first")
	}
	if strings.TrimSpace(req.ModelSecond) == "" {
		missing = append(missing, "model_second")
	}
	if strings.TrimSpace(req.ModelReferee) == "" {
		missing = append(missing, "model_referee")
	}
	if len(missing) > 0 {
		return req, fmt.Errorf("%w: missing %s", extractor.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if req.Language == "" {
		req.Language = e.language
	}
	if req.Domain == "" {
		req.Domain = prompts.DomainGeneral
	}
	return req, nil
}

// Analyze runs the consensus protocol. A failure in any of the three model
// calls fails the whole analysis. progress may be nil.
func (e *Engine) Analyze(ctx context.Context, req Request, progress ProgressFunc) (schema.ConsensusResult, error) {
	req, err := e.validate(req)
	if err != nil {
		return schema.ConsensusResult{}, err
	}

	start := time.Now()
	report := serialize(progress)

	first, second, err := e.runPair(ctx, req, report)
	if err != nil {
		return schema.ConsensusResult{}, err
	}

	score := Agreement(first.Entities, second.Entities)
	metrics.AgreementScore.Observe(score)

	final, err := e.referee(ctx, req, first, second)
	if err != nil {
		return schema.ConsensusResult{}, fmt.Errorf("referee %q: %w", req.ModelReferee, err)
	}
	report(StageReferee, final)

	result := schema.ConsensusResult{
		Text:                     req.Text,
		Language:                 req.Language,
		Domain:                   req.Domain,
		FirstAnalysis:            first,
		SecondAnalysis:           second,
		FinalAnalysis:            final,
		AgreementScore:           score,
		ConflictingEntities:      EntityConflicts(first.Entities, second.Entities),
		ConflictingRelationships: RelationshipConflicts(first.Relationships, second.Relationships),
	}

	logger.Info("Consensus analysis finished",
		zap.String("model_first", req.ModelFirst),
		zap.String("model_second", req.ModelSecond),
		zap.String("model_referee", req.ModelReferee),
		zap.Float64("agreement_score", score),
		zap.Int("conflicting_entities", len(result.ConflictingEntities)),
		zap.Int("conflicting_relationships", len(result.ConflictingRelationships)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (e *Engine) runPair(ctx context.Context, req Request, report ProgressFunc) (schema.ModelAnalysis, schema.ModelAnalysis, error) {
	var first, second schema.ModelAnalysis

	if !e.parallel {
		var err error
		if first, err = e.analyzeWith(ctx, req, req.ModelFirst); err != nil {
			return first, second, fmt.Errorf("first model %q: %w", req.ModelFirst, err)
		}
		report(StageFirst, first)
		if second, err = e.analyzeWith(ctx, req, req.ModelSecond); err != nil {
			return first, second, fmt.Errorf("second model %q: %w", req.ModelSecond, err)
		}
		report(StageSecond, second)
		return first, second, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := e.analyzeWith(gctx, req, req.ModelFirst)
		if err != nil {
			return fmt.Errorf("first model %q: %w", req.ModelFirst, err)
		}
		first = a
		report(StageFirst, a)
		return nil
	})
	g.Go(func() error {
		a, err := e.analyzeWith(gctx, req, req.ModelSecond)
		if err != nil {
			return fmt.Errorf("second model %q: %w", req.ModelSecond, err)
		}
		second = a
		report(StageSecond, a)
		return nil
	})
	if err := g.Wait(); err != nil {
		return first, second, err
	}
	return first, second, nil
}

func (e *Engine) analyzeWith(ctx context.Context, req Request, model string) (schema.ModelAnalysis, error) {
	r, err := e.extractor.ExtractSingle(ctx, extractor.Request{
		Text:        req.Text,
		Language:    req.Language,
		Schema:      schema.DefaultSchema,
		Domain:      req.Domain,
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return schema.ModelAnalysis{}, err
	}
	return schema.NewModelAnalysis(model, r), nil
}

func (e *Engine) referee(ctx context.Context, req Request, first, second schema.ModelAnalysis) (schema.ModelAnalysis, error) {
	raw, err := e.gateway.Complete(ctx, llm.Request{
		Model:        req.ModelReferee,
		SystemPrompt: prompts.BuildSystemPrompt(req.Language, schema.DefaultSchema, req.Domain),
		UserPrompt:   prompts.BuildRefereePrompt(req.Text, req.Language, first, second, req.Domain),
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return schema.ModelAnalysis{}, err
	}
	return schema.NewModelAnalysis(req.ModelReferee, schema.Normalize(raw)), nil
}

// serialize makes progress nil-safe and prevents concurrent invocations.
func serialize(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return func(Stage, schema.ModelAnalysis) {}
	}
	var mu sync.Mutex
	return func(stage Stage, analysis schema.ModelAnalysis) {
		mu.Lock()
		defer mu.Unlock()
		progress(stage, analysis)
	}
}
