package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/internal/extractor"
	"github.com/langextract/backend/internal/llm"
	"github.com/langextract/backend/internal/schema"
)

type modelGateway struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	requests  map[string]llm.Request
}

func (g *modelGateway) Complete(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.requests == nil {
		g.requests = make(map[string]llm.Request)
	}
	g.requests[req.Model] = req
	if err, ok := g.failures[req.Model]; ok {
		return "", err
	}
	return g.responses[req.Model], nil
}

func entities(pairs ...string) []schema.Entity {
	out := make([]schema.Entity, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, schema.Entity{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func TestAgreementBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		first, second []schema.Entity
		want          float64
	}{
		{name: "identical", first: entities("Ali", "PERSON", "Tehran", "LOCATION"), second: entities("ali", "person", "Tehran", "LOCATION"), want: 1.0},
		{name: "disjoint", first: entities("Ali", "PERSON"), second: entities("Tehran", "LOCATION"), want: 0.0},
		{name: "both empty", want: 1.0},
		{name: "first empty", second: entities("Ali", "PERSON"), want: 0.0},
		{name: "second empty", first: entities("Ali", "PERSON"), want: 0.0},
		{name: "partial", first: entities("Ali", "PERSON", "Tehran", "LOCATION"), second: entities("Ali", "PERSON", "DigiKala", "ORGANIZATION"), want: 1.0 / 3.0},
		{name: "near duplicate is a mismatch", first: entities("Ali", "PERSON"), second: entities("Mr. Ali", "PERSON"), want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Agreement(tt.first, tt.second), 1e-9)
		})
	}
}

func TestEntityConflictsOrder(t *testing.T) {
	first := entities("Ali", "PERSON", "Tehran", "LOCATION", "Sara", "PERSON", "ali", "PERSON")
	second := entities("Tehran", "LOCATION", "DigiKala", "ORGANIZATION", "Berlin", "LOCATION")

	assert.Equal(t,
		[]string{"Ali (PERSON)", "Sara (PERSON)", "DigiKala (ORGANIZATION)", "Berlin (LOCATION)"},
		EntityConflicts(first, second))
	assert.Equal(t, []string{}, EntityConflicts(first, first))
}

func TestRelationshipConflictsSorted(t *testing.T) {
	first := []schema.Relationship{
		{SourceEntityID: "PERSON:Ali", TargetEntityID: "LOCATION:Tehran", Type: "LIVES_IN"},
		{SourceEntityID: "PERSON:Ali", TargetEntityID: "ORGANIZATION:DigiKala", Type: "WORKS_AT"},
	}
	second := []schema.Relationship{
		{SourceEntityID: "PERSON:Ali", TargetEntityID: "LOCATION:Tehran", Type: "LIVES_IN"},
		{SourceEntityID: "person:ali", TargetEntityID: "ORGANIZATION:DigiKala", Type: "WORKS_AT"},
		{SourceEntityID: "A", TargetEntityID: "B", Type: "KNOWS"},
	}

	assert.Equal(t, []string{
		"A -> B (KNOWS)",
		"PERSON:Ali -> ORGANIZATION:DigiKala (WORKS_AT)",
		"person:ali -> ORGANIZATION:DigiKala (WORKS_AT)",
	}, RelationshipConflicts(first, second))
}

func TestAnalyze(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			gw := &modelGateway{responses: map[string]string{
				"m1":  `{"entities":[{"name":"Ali","type":"PERSON"},{"name":"Tehran","type":"LOCATION"}],"relationships":[{"source_entity_id":"PERSON:Ali","target_entity_id":"LOCATION:Tehran","type":"LIVES_IN"}]}`,
				"m2":  `{"entities":[{"name":"Ali","type":"PERSON"},{"name":"DigiKala","type":"ORGANIZATION"}]}`,
				"ref": `Final: {"entities":[{"name":"Ali","type":"PERSON"},{"name":"Tehran","type":"LOCATION"},{"name":"DigiKala","type":"ORGANIZATION"}]}`,
			}}
			engine := New(gw, WithParallel(parallel))

			var stages []Stage
			got, err := engine.Analyze(context.Background(), Request{
				Text:         "Ali lives in Tehran and works at DigiKala.",
				Language:     "en",
				Domain:       "general",
				ModelFirst:   "m1",
				ModelSecond:  "m2",
				ModelReferee: "ref",
			}, func(stage Stage, _ schema.ModelAnalysis) { stages = append(stages, stage) })
			require.NoError(t, err)

			assert.Equal(t, "m1", got.FirstAnalysis.ModelName)
			assert.Equal(t, "m2", got.SecondAnalysis.ModelName)
			assert.Equal(t, "ref", got.FinalAnalysis.ModelName)
			assert.Len(t, got.FinalAnalysis.Entities, 3)
			assert.InDelta(t, 1.0/3.0, got.AgreementScore, 1e-9)
			assert.Equal(t, []string{"Tehran (LOCATION)", "DigiKala (ORGANIZATION)"}, got.ConflictingEntities)
			assert.Equal(t, []string{"PERSON:Ali -> LOCATION:Tehran (LIVES_IN)"}, got.ConflictingRelationships)
			assert.Equal(t, "en", got.Language)
			assert.Equal(t, "general", got.Domain)

			require.Len(t, stages, 3)
			assert.ElementsMatch(t, []Stage{StageFirst, StageSecond}, stages[:2])
			assert.Equal(t, StageReferee, stages[2])

			assert.Equal(t, gw.requests["m1"].SystemPrompt, gw.requests["m2"].SystemPrompt)
			assert.Equal(t, gw.requests["m1"].UserPrompt, gw.requests["m2"].UserPrompt)
			assert.Contains(t, gw.requests["ref"].UserPrompt, "expert referee")
			assert.Contains(t, gw.requests["ref"].UserPrompt, `{"name":"DigiKala","type":"ORGANIZATION"}`)
		})
	}
}

func TestAnalyzeValidatesBeforeCallingModels(t *testing.T) {
	gw := &modelGateway{}
	engine := New(gw)

	_, err := engine.Analyze(context.Background(), Request{Text: "x", ModelFirst: "a", ModelSecond: " "}, nil)
	require.ErrorIs(t, err, extractor.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "model_second, model_referee")

	_, err = engine.Analyze(context.Background(), Request{Text: "  ", ModelFirst: "a", ModelSecond: "b", ModelReferee: "c"}, nil)
	require.ErrorIs(t, err, extractor.ErrInvalidRequest)

	assert.Empty(t, gw.requests)
}

func TestAnalyzeFailsWhenAnyModelFails(t *testing.T) {
	for _, failing := range []string{"m1", "m2", "ref"} {
		t.Run(failing, func(t *testing.T) {
			gw := &modelGateway{
				responses: map[string]string{"m1": `{}`, "m2": `{}`, "ref": `{}`},
				failures:  map[string]error{failing: &llm.TimeoutError{Model: failing}},
			}
			engine := New(gw)

			_, err := engine.Analyze(context.Background(), Request{
				Text: "text", ModelFirst: "m1", ModelSecond: "m2", ModelReferee: "ref",
			}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, llm.ErrModelTimeout))
			assert.Contains(t, err.Error(), failing)
		})
	}
}

func TestAnalyzeEmptyAnalysesAgree(t *testing.T) {
	gw := &modelGateway{responses: map[string]string{"m1": "nothing", "m2": "{}", "ref": ""}}
	got, err := New(gw).Analyze(context.Background(), Request{
		Text: "text", ModelFirst: "m1", ModelSecond: "m2", ModelReferee: "ref",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.AgreementScore)
	assert.Empty(t, got.ConflictingEntities)
	assert.NotNil(t, got.ConflictingRelationships)
	assert.Equal(t, "fa", got.Language)
}
