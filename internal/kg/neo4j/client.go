// Package neo4j writes extraction results into a Neo4j property graph.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/langextract/backend/internal/schema"
	"github.com/langextract/backend/pkg/circuitbreaker"
	"github.com/langextract/backend/pkg/logger"
	"github.com/langextract/backend/pkg/retry"
)

type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// GraphStats counts what is stored in the graph.
type GraphStats struct {
	Entities      int64 `json:"entities"`
	Relationships int64 `json:"relationships"`
}

func NewClient(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	cb := circuitbreaker.New("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		OpenTimeout:      20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri), zap.String("database", database))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(context.Context, neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.retryConfig, func(ctx context.Context) error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(ctx, session)
		})
	})
}

// NodeKey identifies an entity node. It follows the TYPE:name form models use
// for relationship endpoints.
func NodeKey(e schema.Entity) string {
	return e.Type + ":" + e.Name
}

func entityRows(result schema.Result) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Entities))
	seen := make(map[string]struct{}, len(result.Entities))
	for _, e := range result.Entities {
		key := NodeKey(e)
		if e.ID != "" {
			key = e.ID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		attrs := make(map[string]any, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = fmt.Sprint(v)
		}
		rows = append(rows, map[string]any{
			"key":        key,
			"name":       e.Name,
			"type":       e.Type,
			"attributes": attrs,
		})
	}
	return rows
}

func relationshipRows(result schema.Result) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Relationships))
	for _, r := range result.Relationships {
		if r.SourceEntityID == "" || r.TargetEntityID == "" || r.Type == "" {
			continue
		}
		rows = append(rows, map[string]any{
			"source": r.SourceEntityID,
			"target": r.TargetEntityID,
			"type":   r.Type,
		})
	}
	return rows
}

// WriteResult merges the entities and relationships of one run into the graph.
// Relationship endpoints that name no extracted entity become bare nodes.
func (c *Client) WriteResult(ctx context.Context, runID string, result schema.Result) error {
	entities := entityRows(result)
	relationships := relationshipRows(result)
	if len(entities) == 0 && len(relationships) == 0 {
		return nil
	}

	entityQuery := `
		UNWIND $rows AS row
		MERGE (e:Entity {key: row.key})
		SET e.name = row.name,
		    e.type = row.type,
		    e += row.attributes,
		    e.last_run = $run_id,
		    e.updated_at = timestamp()
	`

	relationQuery := `
		UNWIND $rows AS row
		MERGE (s:Entity {key: row.source})
		MERGE (t:Entity {key: row.target})
		MERGE (s)-[r:RELATED {type: row.type}]->(t)
		SET r.last_run = $run_id,
		    r.updated_at = timestamp()
	`

	err := c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			if len(entities) > 0 {
				if _, err := tx.Run(ctx, entityQuery, map[string]any{"rows": entities, "run_id": runID}); err != nil {
					return nil, err
				}
			}
			if len(relationships) > 0 {
				if _, err := tx.Run(ctx, relationQuery, map[string]any{"rows": relationships, "run_id": runID}); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write result to graph: %w", err)
	}

	logger.Debug("Result written to graph",
		zap.String("run_id", runID),
		zap.Int("entities", len(entities)),
		zap.Int("relationships", len(relationships)),
	)
	return nil
}

func (c *Client) Stats(ctx context.Context) (GraphStats, error) {
	var stats GraphStats

	err := c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, `
				MATCH (e:Entity)
				OPTIONAL MATCH (e)-[r:RELATED]->()
				RETURN count(DISTINCT e) AS entities, count(r) AS relationships
			`, nil)
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			if v, ok := record.Get("entities"); ok {
				stats.Entities, _ = v.(int64)
			}
			if v, ok := record.Get("relationships"); ok {
				stats.Relationships, _ = v.(int64)
			}
			return nil, nil
		})
		return err
	})
	if err != nil {
		return GraphStats{}, fmt.Errorf("failed to read graph stats: %w", err)
	}
	return stats, nil
}
