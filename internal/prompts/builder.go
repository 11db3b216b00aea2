// Package prompts assembles the system, user and referee prompts sent to the
// model gateway. Every function here is pure.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/langextract/backend/internal/schema"
)

func BuildSystemPrompt(language, schemaName, domainName string) string {
	d := lookupDomain(domainName)

	var b strings.Builder
	b.WriteString(d.persona.in(language))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Focus on these entity types: %s\n", strings.Join(d.entityTypes, ", "))
	b.WriteString("Output only minified JSON that conforms to the schema. ")
	b.WriteString("Do not include any explanations or extra text.\n\n")
	b.WriteString(schema.Instructions(schemaName))
	return b.String()
}

// BuildUserPrompt renders the extraction request. When examples is empty the
// built-in few-shot set for the domain and language is used.
func BuildUserPrompt(text, language string, examples []Example, domainName string) string {
	if len(examples) == 0 {
		examples = DefaultExamples(language, domainName)
	}
	d := lookupDomain(domainName)

	shots := make([]string, 0, len(examples))
	for _, ex := range examples {
		shots = append(shots, fmt.Sprintf("TEXT:\n%s\nJSON:\n%s", ex.Text, renderExtraction(ex.Entities, ex.Relationships)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "LANGUAGE: %s\n", language)
	b.WriteString("Return JSON with keys: entities, relationships. Entities need name and type.\n")
	b.WriteString(d.inference.in(language))
	b.WriteString("\n")
	b.WriteString("If unsure, leave arrays empty.\n\n")
	fmt.Fprintf(&b, "FEW-SHOTS:\n%s\n\n", strings.Join(shots, "\n\n"))
	fmt.Fprintf(&b, "NOW EXTRACT FROM THIS TEXT:\n%s\n", text)
	return b.String()
}

// BuildRefereePrompt asks a third model to reconcile two prior analyses of
// the same text into one final extraction.
func BuildRefereePrompt(text, language string, first, second schema.ModelAnalysis, domainName string) string {
	d := lookupDomain(domainName)
	context := d.refereeContext.in(language)

	note := d.refereeNote.in(language)
	if note != "" {
		note = "\n" + note
	}

	if isPersian(language) {
		return fmt.Sprintf(`شما یک داور متخصص برای %s هستید. دو تحلیل زیر را بررسی کنید و بهترین تحلیل نهایی را ارائه دهید.%s

متن اصلی:
%s

تحلیل مدل اول:
موجودیت‌ها: %s
روابط: %s

تحلیل مدل دوم:
موجودیت‌ها: %s
روابط: %s

لطفاً:
1. موجودیت‌ها و روابط هر دو تحلیل را بررسی کنید
2. موارد مشترک و متفاوت را شناسایی کنید
3. بهترین ترکیب را انتخاب کنید یا تحلیل بهتری ارائه دهید
4. استنتاج‌های منطقی و احتمالات را در نظر بگیرید
5. فقط JSON خروجی بدهید، بدون توضیح اضافی

خروجی نهایی:`, context, note, text,
			renderEntities(first.Entities), renderRelationships(first.Relationships),
			renderEntities(second.Entities), renderRelationships(second.Relationships))
	}

	return fmt.Sprintf(`You are an expert referee for %s. Review the two analyses below and provide the best final analysis.%s

Original text:
%s

First model analysis:
Entities: %s
Relationships: %s

Second model analysis:
Entities: %s
Relationships: %s

Please:
1. Review entities and relationships from both analyses
2. Identify common and different items
3. Select the best combination or provide better analysis
4. Consider logical inferences and probabilities
5. Output only JSON, no additional explanations

Final output:`, context, note, text,
		renderEntities(first.Entities), renderRelationships(first.Relationships),
		renderEntities(second.Entities), renderRelationships(second.Relationships))
}

type shotEntity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type shotRelationship struct {
	Source     string         `json:"source_entity_id"`
	Target     string         `json:"target_entity_id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func renderExtraction(entities []schema.Entity, relationships []schema.Relationship) string {
	return fmt.Sprintf(`{"entities":%s,"relationships":%s}`, renderEntities(entities), renderRelationships(relationships))
}

func renderEntities(entities []schema.Entity) string {
	out := make([]shotEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, shotEntity{Name: e.Name, Type: e.Type, Attributes: e.Attributes})
	}
	return marshal(out)
}

func renderRelationships(relationships []schema.Relationship) string {
	out := make([]shotRelationship, 0, len(relationships))
	for _, r := range relationships {
		out = append(out, shotRelationship{Source: r.SourceEntityID, Target: r.TargetEntityID, Type: r.Type, Attributes: r.Attributes})
	}
	return marshal(out)
}

func marshal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
