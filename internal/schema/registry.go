package schema

import "sort"

const DefaultSchema = "general"

var schemas = map[string]string{
	"general": "Schema: {\n" +
		"  \"entities\": [ { \"name\": string, \"type\": string, \"start_index\"?: int, \"end_index\"?: int, \"attributes\"?: object } ],\n" +
		"  \"relationships\": [ { \"source_entity_id\": string, \"target_entity_id\": string, \"type\": string, \"attributes\"?: object } ]\n" +
		"}\n",
}

// Instructions returns the literal shape description for a schema. Unknown
// names resolve to the general schema.
func Instructions(name string) string {
	if s, ok := schemas[name]; ok {
		return s
	}
	return schemas[DefaultSchema]
}

func ListSchemas() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Known(name string) bool {
	_, ok := schemas[name]
	return ok
}
