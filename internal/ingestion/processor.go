// Package ingestion serves extraction and consensus requests end to end: it
// consults the result cache, runs the engine and records the run.
package ingestion

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/consensus"
	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/metrics"
	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/internal/storage/models"
	"github.com/langextract/backend/pkg/logger"
	"github.com/langextract/backend/pkg/utils"
)

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type History interface {
	InsertRun(ctx context.Context, run *models.Run) error
}

type GraphSink interface {
	WriteResult(ctx context.Context, runID string, result schema.Result) error
}

type ExtractRequest struct {
	Text        string            `json:"text"`
	Language    string            `json:"language,omitempty"`
	Schema      string            `json:"schema,omitempty"`
	Domain      string            `json:"domain,omitempty"`
	Examples    []prompts.Example `json:"examples,omitempty"`
	Model       string            `json:"model,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_output_tokens,omitempty"`
}

type ExtractResponse struct {
	RunID         string                `json:"run_id"`
	Text          string                `json:"text"`
	Language      string                `json:"language"`
	Model         string                `json:"model"`
	Entities      []schema.Entity       `json:"entities"`
	Relationships []schema.Relationship `json:"relationships"`
	Cached        bool                  `json:"cached"`
}

func (r ExtractResponse) Result() schema.Result {
	return schema.Result{Entities: r.Entities, Relationships: r.Relationships}
}

type AnalyzeResponse struct {
	RunID string `json:"run_id"`
	schema.ConsensusResult
	Cached bool `json:"cached"`
}

type Processor struct {
	extractor    *extractor.Extractor
	engine       *consensus.Engine
	cache        Cache
	history      History
	graph        GraphSink
	defaultModel string
}

type Option func(*Processor)

func WithCache(c Cache) Option {
	return func(p *Processor) { p.cache = c }
}

func WithHistory(h History) Option {
	return func(p *Processor) { p.history = h }
}

func WithGraphSink(g GraphSink) Option {
	return func(p *Processor) { p.graph = g }
}

// WithDefaultModel names the model reported for extractions that do not pick one.
func WithDefaultModel(model string) Option {
	return func(p *Processor) { p.defaultModel = model }
}

func NewProcessor(ext *extractor.Extractor, engine *consensus.Engine, opts ...Option) *Processor {
	p := &Processor{
		extractor: ext,
		engine:    engine,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Extract(ctx context.Context, req ExtractRequest) (ExtractResponse, error) {
	defaults := p.extractor.Defaults()
	if req.Language == "" {
		req.Language = defaults.Language
	}
	if req.Schema == "" {
		req.Schema = defaults.Schema
	}
	if req.Domain == "" {
		req.Domain = defaults.Domain
	}
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	start := time.Now()
	key := extractKey(req, model)

	var resp ExtractResponse
	if p.lookup(ctx, key, &resp) {
		resp.RunID = uuid.NewString()
		resp.Cached = true
		p.record(ctx, extractRun(req, model, resp, start, nil))
		metrics.RequestsTotal.WithLabelValues(models.KindExtract, "cached").Inc()
		return resp, nil
	}

	result, err := p.extractor.Extract(ctx, extractor.Request{
		Text:        req.Text,
		Language:    req.Language,
		Schema:      req.Schema,
		Domain:      req.Domain,
		Examples:    req.Examples,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		p.record(ctx, extractRun(req, model, ExtractResponse{RunID: uuid.NewString()}, start, err))
		metrics.RequestsTotal.WithLabelValues(models.KindExtract, models.StatusError).Inc()
		return ExtractResponse{}, err
	}

	resp = ExtractResponse{
		RunID:         uuid.NewString(),
		Text:          req.Text,
		Language:      req.Language,
		Model:         model,
		Entities:      result.Entities,
		Relationships: result.Relationships,
	}

	p.store(ctx, key, resp)
	p.record(ctx, extractRun(req, model, resp, start, nil))
	p.sink(ctx, resp.RunID, result)

	metrics.RequestsTotal.WithLabelValues(models.KindExtract, models.StatusOK).Inc()
	metrics.EntitiesExtracted.WithLabelValues(req.Domain).Add(float64(len(result.Entities)))
	return resp, nil
}

// Analyze runs the consensus engine. On a cache hit progress still sees all
// three stages, in order.
func (p *Processor) Analyze(ctx context.Context, req consensus.Request, progress consensus.ProgressFunc) (AnalyzeResponse, error) {
	start := time.Now()
	key := analyzeKey(req)

	var resp AnalyzeResponse
	if p.lookup(ctx, key, &resp) {
		resp.RunID = uuid.NewString()
		resp.Cached = true
		if progress != nil {
			progress(consensus.StageFirst, resp.FirstAnalysis)
			progress(consensus.StageSecond, resp.SecondAnalysis)
			progress(consensus.StageReferee, resp.FinalAnalysis)
		}
		p.record(ctx, analyzeRun(req, resp, start, nil))
		metrics.RequestsTotal.WithLabelValues(models.KindAnalyze, "cached").Inc()
		return resp, nil
	}

	result, err := p.engine.Analyze(ctx, req, progress)
	if err != nil {
		p.record(ctx, analyzeRun(req, AnalyzeResponse{RunID: uuid.NewString()}, start, err))
		metrics.RequestsTotal.WithLabelValues(models.KindAnalyze, models.StatusError).Inc()
		return AnalyzeResponse{}, err
	}

	resp = AnalyzeResponse{RunID: uuid.NewString(), ConsensusResult: result}

	p.store(ctx, key, resp)
	p.record(ctx, analyzeRun(req, resp, start, nil))
	p.sink(ctx, resp.RunID, result.FinalAnalysis.Result())

	metrics.RequestsTotal.WithLabelValues(models.KindAnalyze, models.StatusOK).Inc()
	metrics.EntitiesExtracted.WithLabelValues(result.Domain).Add(float64(len(result.FinalAnalysis.Entities)))
	return resp, nil
}

func (p *Processor) lookup(ctx context.Context, key string, dest any) bool {
	if p.cache == nil {
		return false
	}
	hit, err := p.cache.Get(ctx, key, dest)
	if err != nil {
		logger.Warn("Result cache lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if hit {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return hit
}

func (p *Processor) store(ctx context.Context, key string, value any) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, value); err != nil {
		logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}

func (p *Processor) record(ctx context.Context, run *models.Run) {
	if p.history == nil {
		return
	}
	if err := p.history.InsertRun(ctx, run); err != nil {
		logger.Warn("Failed to record run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (p *Processor) sink(ctx context.Context, runID string, result schema.Result) {
	if p.graph == nil {
		return
	}
	if err := p.graph.WriteResult(ctx, runID, result); err != nil {
		logger.Warn("Failed to write result to graph", zap.String("run_id", runID), zap.Error(err))
	}
}

func extractKey(req ExtractRequest, model string) string {
	examples, _ := json.Marshal(req.Examples)
	return "extract:" + utils.HashParts(
		req.Text,
		req.Language,
		req.Schema,
		req.Domain,
		string(examples),
		model,
		strconv.FormatFloat(req.Temperature, 'g', -1, 64),
		strconv.Itoa(req.MaxTokens),
	)
}

func analyzeKey(req consensus.Request) string {
	return "analyze:" + utils.HashParts(
		req.Text,
		req.Language,
		req.Domain,
		req.ModelFirst,
		req.ModelSecond,
		req.ModelReferee,
		strconv.FormatFloat(req.Temperature, 'g', -1, 64),
		strconv.Itoa(req.MaxTokens),
	)
}

func extractRun(req ExtractRequest, model string, resp ExtractResponse, start time.Time, err error) *models.Run {
	run := &models.Run{
		ID:                resp.RunID,
		Kind:              models.KindExtract,
		Language:          req.Language,
		Domain:            req.Domain,
		Schema:            req.Schema,
		Models:            []string{model},
		TextHash:          utils.HashParts(req.Text),
		TextChars:         len([]rune(req.Text)),
		EntityCount:       len(resp.Entities),
		RelationshipCount: len(resp.Relationships),
		LatencyMS:         time.Since(start).Milliseconds(),
		Status:            models.StatusOK,
		CacheHit:          resp.Cached,
	}
	finish(run, resp, err)
	return run
}

func analyzeRun(req consensus.Request, resp AnalyzeResponse, start time.Time, err error) *models.Run {
	run := &models.Run{
		ID:        resp.RunID,
		Kind:      models.KindAnalyze,
		Language:  req.Language,
		Domain:    req.Domain,
		Models:    []string{req.ModelFirst, req.ModelSecond, req.ModelReferee},
		TextHash:  utils.HashParts(req.Text),
		TextChars: len([]rune(req.Text)),
		LatencyMS: time.Since(start).Milliseconds(),
		Status:    models.StatusOK,
		CacheHit:  resp.Cached,
	}
	if err == nil {
		run.Language = resp.Language
		run.Domain = resp.Domain
		run.EntityCount = len(resp.FinalAnalysis.Entities)
		run.RelationshipCount = len(resp.FinalAnalysis.Relationships)
		score := resp.AgreementScore
		run.AgreementScore = &score
	}
	finish(run, resp, err)
	return run
}

func finish(run *models.Run, resp any, err error) {
	if err != nil {
		run.Status = models.StatusError
		run.Error = err.Error()
		return
	}
	data, mErr := json.Marshal(resp)
	if mErr != nil {
		logger.Warn("Failed to serialize run result", zap.String("run_id", run.ID), zap.Error(mErr))
		return
	}
	run.Result = data
}
