package consensus

import (
	"fmt"
	"sort"

	"github.com/langextract/backend/internal/schema"
)

// Agreement is the Jaccard similarity of the two entity identity sets. Two
// empty sets agree fully; exactly one empty set scores zero.
func Agreement(first, second []schema.Entity) float64 {
	a := entityKeys(first)
	b := entityKeys(second)

	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// EntityConflicts lists entities found by only one model, rendered as
// "name (type)". First-model conflicts come first; each list keeps the
// model's own order.
func EntityConflicts(first, second []schema.Entity) []string {
	a := entityKeys(first)
	b := entityKeys(second)

	out := []string{}
	out = appendMissing(out, first, b)
	out = appendMissing(out, second, a)
	return out
}

func appendMissing(out []string, entities []schema.Entity, other map[schema.EntityKey]struct{}) []string {
	listed := make(map[schema.EntityKey]struct{})
	for _, e := range entities {
		k := schema.KeyOfEntity(e)
		if _, ok := other[k]; ok {
			continue
		}
		if _, ok := listed[k]; ok {
			continue
		}
		listed[k] = struct{}{}
		out = append(out, fmt.Sprintf("%s (%s)", e.Name, e.Type))
	}
	return out
}

// RelationshipConflicts lists relationship identities in the symmetric
// difference, rendered as "source -> target (type)" and sorted.
func RelationshipConflicts(first, second []schema.Relationship) []string {
	a := relationshipKeys(first)
	b := relationshipKeys(second)

	out := []string{}
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, renderRelationship(k))
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out = append(out, renderRelationship(k))
		}
	}
	sort.Strings(out)
	return out
}

func renderRelationship(k schema.RelationshipKey) string {
	return fmt.Sprintf("%s -> %s (%s)", k.Source, k.Target, k.Type)
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
