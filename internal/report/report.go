// Package report renders an extraction as a standalone HTML document with the
// entity mentions highlighted in the source text.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/langextract/backend/internal/schema"
)

type Input struct {
	SourceText string
	Result     schema.Result
	Language   string
	Model      string
}

type Segment struct {
	Text string
	// Type is set when the segment is a highlighted entity mention.
	Type string
}

type span struct {
	start, end int
	typ        string
}

// Highlight splits text into plain and highlighted segments. An entity uses
// its start/end rune offsets when they are in range and do not overlap an
// earlier span; otherwise the first free occurrence of its name.
func Highlight(text string, entities []schema.Entity) []Segment {
	runes := []rune(text)
	var spans []span

	overlaps := func(s, e int) bool {
		for _, sp := range spans {
			if s < sp.end && sp.start < e {
				return true
			}
		}
		return false
	}

	for _, ent := range entities {
		if ent.StartIndex != nil && ent.EndIndex != nil {
			s, e := *ent.StartIndex, *ent.EndIndex
			if s >= 0 && s < e && e <= len(runes) && !overlaps(s, e) {
				spans = append(spans, span{start: s, end: e, typ: ent.Type})
				continue
			}
		}

		name := []rune(ent.Name)
		if len(name) == 0 {
			continue
		}
		for from := 0; from+len(name) <= len(runes); {
			idx := indexRunes(runes[from:], name)
			if idx < 0 {
				break
			}
			s := from + idx
			e := s + len(name)
			if !overlaps(s, e) {
				spans = append(spans, span{start: s, end: e, typ: ent.Type})
				break
			}
			from = s + 1
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var segments []Segment
	pos := 0
	for _, sp := range spans {
		if sp.start > pos {
			segments = append(segments, Segment{Text: string(runes[pos:sp.start])})
		}
		segments = append(segments, Segment{Text: string(runes[sp.start:sp.end]), Type: sp.typ})
		pos = sp.end
	}
	if pos < len(runes) {
		segments = append(segments, Segment{Text: string(runes[pos:])})
	}
	return segments
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

type entityRow struct {
	Name       string
	Type       string
	Attributes string
}

type relationshipRow struct {
	Source     string
	Type       string
	Target     string
	Attributes string
}

type page struct {
	Language      string
	Dir           string
	Model         string
	Segments      []Segment
	Entities      []entityRow
	Relationships []relationshipRow
}

func Render(w io.Writer, in Input) error {
	p := page{
		Language: in.Language,
		Dir:      "ltr",
		Model:    in.Model,
		Segments: Highlight(in.SourceText, in.Result.Entities),
	}
	if strings.HasPrefix(strings.ToLower(in.Language), "fa") {
		p.Dir = "rtl"
	}
	for _, e := range in.Result.Entities {
		p.Entities = append(p.Entities, entityRow{Name: e.Name, Type: e.Type, Attributes: attributesJSON(e.Attributes)})
	}
	for _, r := range in.Result.Relationships {
		p.Relationships = append(p.Relationships, relationshipRow{
			Source:     r.SourceEntityID,
			Type:       r.Type,
			Target:     r.TargetEntityID,
			Attributes: attributesJSON(r.Attributes),
		})
	}

	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func attributesJSON(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "{}"
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(data)
}

var pageTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="{{.Language}}" dir="{{.Dir}}">
<head>
<meta charset="utf-8" />
<title>LangExtract Report</title>
<style>
body { font-family: system-ui, sans-serif; margin: 24px; }
mark.entity { background: #ffef99; padding: 0 2px; border-radius: 2px; }
table { border-collapse: collapse; width: 100%; margin-top: 16px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: start; }
th { background: #f7f7f7; }
small { color: #666; }
</style>
</head>
<body>
<h1>Extraction Report</h1>
<small id="model">Model: {{.Model}}</small>
<h2>Source Text</h2>
<p id="source">{{range .Segments}}{{if .Type}}<mark class="entity" title="{{.Type}}">{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}</p>
<h2>Entities</h2>
<table id="entities">
  <thead><tr><th>Name</th><th>Type</th><th>Attributes</th></tr></thead>
  <tbody>
  {{range .Entities}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td><pre>{{.Attributes}}</pre></td></tr>
  {{end}}</tbody>
</table>
<h2>Relationships</h2>
<table id="relationships">
  <thead><tr><th>Source</th><th>Type</th><th>Target</th><th>Attributes</th></tr></thead>
  <tbody>
  {{range .Relationships}}<tr><td>{{.Source}}</td><td>{{.Type}}</td><td>{{.Target}}</td><td><pre>{{.Attributes}}</pre></td></tr>
  {{end}}</tbody>
</table>
</body>
</html>
`))
