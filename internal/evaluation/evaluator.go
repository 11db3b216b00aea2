// Package evaluation scores extraction output against hand-annotated
// examples using exact entity and relationship key matches.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/logger"
)

type Extractor interface {
	Extract(ctx context.Context, req extractor.Request) (schema.Result, error)
}

type Evaluator struct {
	extractor Extractor
	model     string
}

type EvaluationDataset struct {
	Items []DatasetItem `json:"items"`
}

// DatasetItem is one annotated text. Language and Domain are optional.
type DatasetItem struct {
	Text          string                `json:"text"`
	Language      string                `json:"language,omitempty"`
	Domain        string                `json:"domain,omitempty"`
	Entities      []schema.Entity       `json:"entities"`
	Relationships []schema.Relationship `json:"relationships"`
}

// Score counts matches between a predicted and an expected key set.
type Score struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

func (s Score) Precision() float64 {
	if s.TruePositives+s.FalsePositives == 0 {
		if s.FalseNegatives == 0 {
			return 1
		}
		return 0
	}
	return float64(s.TruePositives) / float64(s.TruePositives+s.FalsePositives)
}

func (s Score) Recall() float64 {
	if s.TruePositives+s.FalseNegatives == 0 {
		return 1
	}
	return float64(s.TruePositives) / float64(s.TruePositives+s.FalseNegatives)
}

func (s Score) F1() float64 {
	p, r := s.Precision(), s.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (s Score) add(o Score) Score {
	return Score{
		TruePositives:  s.TruePositives + o.TruePositives,
		FalsePositives: s.FalsePositives + o.FalsePositives,
		FalseNegatives: s.FalseNegatives + o.FalseNegatives,
	}
}

type ItemResult struct {
	Index         int    `json:"index"`
	Entities      Score  `json:"entities"`
	Relationships Score  `json:"relationships"`
	Error         string `json:"error,omitempty"`
}

// EvaluationReport aggregates item scores by summing counts across items.
type EvaluationReport struct {
	Model         string       `json:"model"`
	TotalItems    int          `json:"total_items"`
	FailedItems   int          `json:"failed_items"`
	Entities      Score        `json:"entities"`
	Relationships Score        `json:"relationships"`
	Items         []ItemResult `json:"items"`
}

// NewEvaluator scores ext. model is passed through to every extraction; empty
// uses the gateway default.
func NewEvaluator(ext Extractor, model string) *Evaluator {
	return &Evaluator{
		extractor: ext,
		model:     model,
	}
}

func (e *Evaluator) EvaluateItem(ctx context.Context, item DatasetItem) (ItemResult, error) {
	got, err := e.extractor.Extract(ctx, extractor.Request{
		Text:     item.Text,
		Language: item.Language,
		Domain:   item.Domain,
		Model:    e.model,
	})
	if err != nil {
		return ItemResult{}, fmt.Errorf("failed to extract: %w", err)
	}

	return ItemResult{
		Entities:      compare(entityKeys(got.Entities), entityKeys(item.Entities)),
		Relationships: compare(relationshipKeys(got.Relationships), relationshipKeys(item.Relationships)),
	}, nil
}

// RunDatasetEvaluation scores every item. A failed extraction is recorded on
// its item and left out of the totals.
func (e *Evaluator) RunDatasetEvaluation(ctx context.Context, dataset *EvaluationDataset) (*EvaluationReport, error) {
	logger.Info("Running dataset evaluation", zap.Int("items", len(dataset.Items)))

	report := &EvaluationReport{
		Model:      e.model,
		TotalItems: len(dataset.Items),
		Items:      make([]ItemResult, 0, len(dataset.Items)),
	}

	for i, item := range dataset.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("Evaluating item", zap.Int("index", i+1), zap.Int("total", len(dataset.Items)))

		result, err := e.EvaluateItem(ctx, item)
		result.Index = i
		if err != nil {
			logger.Warn("Failed to evaluate item", zap.Int("index", i), zap.Error(err))
			result.Error = err.Error()
			report.FailedItems++
			report.Items = append(report.Items, result)
			continue
		}

		report.Entities = report.Entities.add(result.Entities)
		report.Relationships = report.Relationships.add(result.Relationships)
		report.Items = append(report.Items, result)
	}

	logger.Info("Dataset evaluation completed",
		zap.Int("total", report.TotalItems),
		zap.Int("failed", report.FailedItems),
		zap.Float64("entity_f1", report.Entities.F1()),
		zap.Float64("relationship_f1", report.Relationships.F1()),
	)

	return report, nil
}

func LoadDatasetFromJSON(data []byte) (*EvaluationDataset, error) {
	var dataset EvaluationDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	for i, item := range dataset.Items {
		if strings.TrimSpace(item.Text) == "" {
			return nil, fmt.Errorf("dataset item %d has no text", i)
		}
	}

	return &dataset, nil
}

func GenerateReport(report *EvaluationReport) string {
	return fmt.Sprintf(`
Extraction Evaluation Report
============================

Model: %s
Items: %d (%d failed)

Entities:
- Precision: %.3f
- Recall:    %.3f
- F1:        %.3f
- TP/FP/FN:  %d/%d/%d

Relationships:
- Precision: %.3f
- Recall:    %.3f
- F1:        %.3f
- TP/FP/FN:  %d/%d/%d
`,
		report.Model,
		report.TotalItems, report.FailedItems,
		report.Entities.Precision(), report.Entities.Recall(), report.Entities.F1(),
		report.Entities.TruePositives, report.Entities.FalsePositives, report.Entities.FalseNegatives,
		report.Relationships.Precision(), report.Relationships.Recall(), report.Relationships.F1(),
		report.Relationships.TruePositives, report.Relationships.FalsePositives, report.Relationships.FalseNegatives,
	)
}

func entityKeys(entities []schema.Entity) map[schema.EntityKey]struct{} {
	keys := make(map[schema.EntityKey]struct{}, len(entities))
	for _, e := range entities {
		keys[schema.KeyOfEntity(e)] = struct{}{}
	}
	return keys
}

func relationshipKeys(relationships []schema.Relationship) map[schema.RelationshipKey]struct{} {
	keys := make(map[schema.RelationshipKey]struct{}, len(relationships))
	for _, r := range relationships {
		keys[schema.KeyOfRelationship(r)] = struct{}{}
	}
	return keys
}

func compare[K comparable](predicted, expected map[K]struct{}) Score {
	var s Score
	for k := range predicted {
		if _, ok := expected[k]; ok {
			s.TruePositives++
		} else {
			s.FalsePositives++
		}
	}
	for k := range expected {
		if _, ok := predicted[k]; !ok {
			s.FalseNegatives++
		}
	}
	return s
}
