package extractor

import "github.com/langextract/backend/internal/schema"

// Merger accumulates results, keeping the first occurrence of each entity
// and relationship identity in insertion order. It does no entity resolution:
// "Ali" and "Mr. Ali" stay distinct.
type Merger struct {
	entities      map[schema.EntityKey]struct{}
	relationships map[schema.RelationshipKey]struct{}
	result        schema.Result
}

func NewMerger() *Merger {
	return &Merger{
		entities:      make(map[schema.EntityKey]struct{}),
		relationships: make(map[schema.RelationshipKey]struct{}),
		result:        schema.NewResult(),
	}
}

func (m *Merger) Add(r schema.Result) {
	for _, e := range r.Entities {
		k := schema.KeyOfEntity(e)
		if _, seen := m.entities[k]; seen {
			continue
		}
		m.entities[k] = struct{}{}
		m.result.Entities = append(m.result.Entities, e)
	}
	for _, rel := range r.Relationships {
		k := schema.KeyOfRelationship(rel)
		if _, seen := m.relationships[k]; seen {
			continue
		}
		m.relationships[k] = struct{}{}
		m.result.Relationships = append(m.result.Relationships, rel)
	}
}

func (m *Merger) Result() schema.Result {
	out := schema.Result{
		Entities:      make([]schema.Entity, len(m.result.Entities)),
		Relationships: make([]schema.Relationship, len(m.result.Relationships)),
	}
	copy(out.Entities, m.result.Entities)
	copy(out.Relationships, m.result.Relationships)
	return out
}

func Merge(results ...schema.Result) schema.Result {
	m := NewMerger()
	for _, r := range results {
		m.Add(r)
	}
	return m.Result()
}
