// Package schema holds the extraction data model and the normalizer that
// coerces model output into it.
package schema

import "strings"

type Entity struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	StartIndex *int           `json:"start_index,omitempty"`
	EndIndex   *int           `json:"end_index,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

type Relationship struct {
	ID             string         `json:"id,omitempty"`
	SourceEntityID string         `json:"source_entity_id"`
	TargetEntityID string         `json:"target_entity_id"`
	Type           string         `json:"type"`
	Attributes     map[string]any `json:"attributes"`
}

// Result is the outcome of one extraction. Order reflects first-seen order.
type Result struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

func NewResult() Result {
	return Result{Entities: []Entity{}, Relationships: []Relationship{}}
}

type ModelAnalysis struct {
	ModelName       string         `json:"model_name"`
	Entities        []Entity       `json:"entities"`
	Relationships   []Relationship `json:"relationships"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	Reasoning       string         `json:"reasoning,omitempty"`
}

func NewModelAnalysis(model string, r Result) ModelAnalysis {
	return ModelAnalysis{
		ModelName:     model,
		Entities:      r.Entities,
		Relationships: r.Relationships,
	}
}

// Result drops the provenance and returns the bare extraction.
func (a ModelAnalysis) Result() Result {
	return Result{Entities: a.Entities, Relationships: a.Relationships}
}

type ConsensusResult struct {
	Text                     string        `json:"text"`
	Language                 string        `json:"language"`
	Domain                   string        `json:"domain"`
	FirstAnalysis            ModelAnalysis `json:"first_analysis"`
	SecondAnalysis           ModelAnalysis `json:"second_analysis"`
	FinalAnalysis            ModelAnalysis `json:"final_analysis"`
	AgreementScore           float64       `json:"agreement_score"`
	ConflictingEntities      []string      `json:"conflicting_entities"`
	ConflictingRelationships []string      `json:"conflicting_relationships"`
}

// EntityKey identifies an entity for dedup and agreement: trimmed,
// case-folded name and type. ID never participates.
type EntityKey struct {
	Name string
	Type string
}

func KeyOfEntity(e Entity) EntityKey {
	return EntityKey{
		Name: strings.ToLower(strings.TrimSpace(e.Name)),
		Type: strings.ToLower(strings.TrimSpace(e.Type)),
	}
}

// RelationshipKey is the exact, case-sensitive (source, target, type) triple.
type RelationshipKey struct {
	Source string
	Target string
	Type   string
}

func KeyOfRelationship(r Relationship) RelationshipKey {
	return RelationshipKey{Source: r.SourceEntityID, Target: r.TargetEntityID, Type: r.Type}
}
