package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:   "openai",
			APIKey:     "test",
			BaseURL:    "http://127.0.0.1:1/v1",
			Model:      "gpt-test",
			MaxTokens:  256,
			TimeoutSec: 5,
		},
		Extraction: config.ExtractionConfig{
			Language:          "en",
			Schema:            "general",
			Domain:            "legal",
			MaxInputChars:     100,
			ChunkOverlapChars: 10,
			MaxChunks:         4,
			Concurrency:       2,
		},
		Consensus: config.ConsensusConfig{Parallel: true},
		SQLite: config.SQLiteConfig{
			Enabled: true,
			Path:    filepath.Join(t.TempDir(), "runs.db"),
		},
	}
}

func TestNewWiresConfiguredStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Equal(t, "openai", a.LLM.ProviderName())
	assert.Equal(t, "gpt-test", a.LLM.DefaultModel())
	assert.Equal(t, "legal", a.Extractor.Defaults().Domain)
	assert.Equal(t, "en", a.Extractor.Defaults().Language)
	require.NotNil(t, a.History)
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Graph)
	assert.NotNil(t, a.Processor)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "nope"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
