package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langextract/backend/internal/ingestion"
	"github.com/langextract/backend/internal/schema"
)

func TestPostExtract(t *testing.T) {
	var got ingestion.ExtractRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/extract", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ingestion.ExtractResponse{
			RunID:         "run-1",
			Text:          got.Text,
			Language:      "en",
			Model:         "m",
			Entities:      []schema.Entity{{Name: "Ali", Type: "PERSON", Attributes: map[string]any{}}},
			Relationships: []schema.Relationship{},
		})
	}))
	defer srv.Close()

	resp, err := postExtract(srv.URL+"/", 5*time.Second, ingestion.ExtractRequest{Text: "Ali lives in Tehran.", Domain: "general"})
	require.NoError(t, err)

	assert.Equal(t, "Ali lives in Tehran.", got.Text)
	assert.Equal(t, "general", got.Domain)
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Entities, 1)
	assert.Equal(t, "Ali", resp.Entities[0].Name)
}

func TestPostExtractReportsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"error":"model timeout: model \"m\" timed out after 1s"}`))
	}))
	defer srv.Close()

	_, err := postExtract(srv.URL, time.Second, ingestion.ExtractRequest{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend returned 504")
	assert.Contains(t, err.Error(), "timed out after 1s")
}
