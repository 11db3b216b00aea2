package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/langextract/backend/pkg/logger"
)

// Normalize coerces raw model output into a Result. It never fails: output
// that cannot be recovered as a JSON object yields an empty Result.
func Normalize(raw string) Result {
	return NormalizeValue(decode(raw))
}

// NormalizeValue coerces an already decoded JSON value. Anything other than
// an object yields an empty Result.
func NormalizeValue(v any) Result {
	out := NewResult()

	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}

	if items, ok := obj["entities"].([]any); ok {
		for _, item := range items {
			if e, ok := toEntity(item); ok {
				out.Entities = append(out.Entities, e)
			}
		}
	}
	if items, ok := obj["relationships"].([]any); ok {
		for _, item := range items {
			if r, ok := toRelationship(item); ok {
				out.Relationships = append(out.Relationships, r)
			}
		}
	}
	return out
}

func decode(raw string) any {
	if v, ok := parse(raw); ok {
		return v
	}

	if block := trailingBlock(raw); block != "" {
		if v, ok := parse(block); ok {
			return v
		}
	}

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		logger.Debug("Model output contains no JSON object", zap.Int("length", len(raw)))
		return map[string]any{}
	}
	end := strings.LastIndexByte(raw, '}')
	if end > start {
		if v, ok := parse(raw[start : end+1]); ok {
			return v
		}
	}

	// Truncated output: let jsonrepair close open strings, arrays and objects.
	candidates := []string{raw[start:]}
	if end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	for _, candidate := range candidates {
		if v, ok := repair(candidate); ok {
			logger.Debug("Recovered malformed model output", zap.Int("length", len(raw)))
			return v
		}
	}

	logger.Debug("Discarding unrecoverable model output", zap.Int("length", len(raw)))
	return map[string]any{}
}

func parse(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

// maxRepairBytes bounds the input handed to jsonrepair, whose cost grows
// faster than linearly with size.
const maxRepairBytes = 256 << 10

func repair(s string) (v any, ok bool) {
	if len(s) > maxRepairBytes {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			v, ok = nil, false
		}
	}()

	fixed, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	v, ok = parse(fixed)
	if _, isObject := v.(map[string]any); !isObject {
		return nil, false
	}
	return v, ok
}

// trailingBlock returns the last brace-balanced {...} block when it ends at
// the end of the string (ignoring trailing whitespace), or "".
func trailingBlock(s string) string {
	trimmed := bytes.TrimRight([]byte(s), " \t\r\n")
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != '}' {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	blockStart, lastStart, lastEnd := -1, -1, -1

	for i, c := range trimmed {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				blockStart = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				lastStart, lastEnd = blockStart, i
			}
		}
	}

	if lastEnd != len(trimmed)-1 {
		return ""
	}
	return string(trimmed[lastStart : lastEnd+1])
}

func toEntity(v any) (Entity, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Entity{}, false
	}

	name, _ := scalarString(m["name"])
	typ, _ := scalarString(m["type"])
	name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
	if name == "" || typ == "" {
		return Entity{}, false
	}

	id, _ := scalarString(m["id"])
	return Entity{
		ID:         id,
		Name:       name,
		Type:       typ,
		StartIndex: intPtr(m["start_index"]),
		EndIndex:   intPtr(m["end_index"]),
		Attributes: attributes(m["attributes"]),
	}, true
}

func toRelationship(v any) (Relationship, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Relationship{}, false
	}

	src, _ := scalarString(m["source_entity_id"])
	dst, _ := scalarString(m["target_entity_id"])
	typ, _ := scalarString(m["type"])
	src, dst, typ = strings.TrimSpace(src), strings.TrimSpace(dst), strings.TrimSpace(typ)
	if src == "" || dst == "" || typ == "" {
		return Relationship{}, false
	}

	id, _ := scalarString(m["id"])
	return Relationship{
		ID:             id,
		SourceEntityID: src,
		TargetEntityID: dst,
		Type:           typ,
		Attributes:     attributes(m["attributes"]),
	}, true
}

// scalarString stringifies JSON scalars. Objects, arrays and null are rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

func intPtr(v any) *int {
	var n int
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return nil
			}
			i = int64(f)
		}
		n = int(i)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return nil
		}
		n = int(t)
	case int:
		n = t
	case int64:
		n = int(t)
	default:
		return nil
	}
	return &n
}

func attributes(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
