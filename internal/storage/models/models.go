package models

import (
	"encoding/json"
	"time"
)

const (
	KindExtract = "extract"
	KindAnalyze = "analyze"

	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded extraction or consensus request.
type Run struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	Language          string          `json:"language"`
	Domain            string          `json:"domain"`
	Schema            string          `json:"schema,omitempty"`
	Models            []string        `json:"models"`
	TextHash          string          `json:"text_hash"`
	TextChars         int             `json:"text_chars"`
	EntityCount       int             `json:"entity_count"`
	RelationshipCount int             `json:"relationship_count"`
	AgreementScore    *float64        `json:"agreement_score,omitempty"`
	LatencyMS         int64           `json:"latency_ms"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
	CacheHit          bool            `json:"cache_hit"`
	Result            json.RawMessage `json:"result,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RunStats aggregates recorded runs by kind and status.
type RunStats struct {
	Kind   string  `json:"kind"`
	Status string  `json:"status"`
	Count  int     `json:"count"`
	AvgMS  float64 `json:"avg_latency_ms"`
}
