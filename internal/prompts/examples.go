package prompts

import "github.com/langextract/backend/internal/schema"

// Example is a few-shot (text, entities, relationships) triple rendered
// literally into the user prompt.
type Example struct {
	Text          string                `json:"text"`
	Entities      []schema.Entity       `json:"entities"`
	Relationships []schema.Relationship `json:"relationships"`
}

func ent(name, typ string) schema.Entity {
	return schema.Entity{Name: name, Type: typ}
}

func rel(src, dst, typ string) schema.Relationship {
	return schema.Relationship{SourceEntityID: src, TargetEntityID: dst, Type: typ}
}

var fewShotFA = []Example{
	{
		Text: "علی در تهران زندگی می‌کند و در شرکت دیجی‌کالا کار می‌کند.",
		Entities: []schema.Entity{
			ent("علی", "PERSON"),
			ent("تهران", "LOCATION"),
			ent("دیجی‌کالا", "ORGANIZATION"),
		},
		Relationships: []schema.Relationship{
			rel("PERSON:علی", "ORGANIZATION:دیجی‌کالا", "EMPLOYED_AT"),
			rel("PERSON:علی", "LOCATION:تهران", "LIVES_IN"),
		},
	},
}

var fewShotEN = []Example{
	{
		Text: "Sara moved to Berlin in 2019 and works at Google.",
		Entities: []schema.Entity{
			ent("Sara", "PERSON"),
			ent("Berlin", "LOCATION"),
			ent("2019", "DATE"),
			ent("Google", "ORGANIZATION"),
		},
		Relationships: []schema.Relationship{
			rel("PERSON:Sara", "LOCATION:Berlin", "MOVED_TO"),
			rel("PERSON:Sara", "ORGANIZATION:Google", "EMPLOYED_AT"),
		},
	},
}

var fewShotPoliceFA = []Example{
	{
		Text: "شخصی با نام احمد رضایی وارد مغازه شد، کالایی برداشت و بدون پرداخت خارج شد.",
		Entities: []schema.Entity{
			ent("احمد رضایی", "SUSPECT"),
			ent("مغازه", "LOCATION"),
			ent("کالا برداشتن بدون پرداخت", "SUSPICIOUS_BEHAVIOR"),
			ent("احتمال سرقت", "CRIMINAL_INFERENCE"),
		},
		Relationships: []schema.Relationship{
			rel("SUSPECT:احمد رضایی", "LOCATION:مغازه", "ENTERED"),
			rel("SUSPECT:احمد رضایی", "SUSPICIOUS_BEHAVIOR:کالا برداشتن بدون پرداخت", "PERFORMED"),
			rel("SUSPICIOUS_BEHAVIOR:کالا برداشتن بدون پرداخت", "CRIMINAL_INFERENCE:احتمال سرقت", "INDICATES"),
		},
	},
}

var fewShotPoliceEN = []Example{
	{
		Text: "A man named John Carter entered the store, took an item and left without paying.",
		Entities: []schema.Entity{
			ent("John Carter", "SUSPECT"),
			ent("store", "LOCATION"),
			ent("took an item without paying", "SUSPICIOUS_BEHAVIOR"),
			ent("possible theft", "CRIMINAL_INFERENCE"),
		},
		Relationships: []schema.Relationship{
			rel("SUSPECT:John Carter", "LOCATION:store", "ENTERED"),
			rel("SUSPECT:John Carter", "SUSPICIOUS_BEHAVIOR:took an item without paying", "PERFORMED"),
			rel("SUSPICIOUS_BEHAVIOR:took an item without paying", "CRIMINAL_INFERENCE:possible theft", "INDICATES"),
		},
	},
}

// DefaultExamples returns the built-in few-shot set for a domain and language.
func DefaultExamples(language, domain string) []Example {
	switch {
	case domain == DomainPolice && isPersian(language):
		return fewShotPoliceFA
	case domain == DomainPolice:
		return fewShotPoliceEN
	case isPersian(language):
		return fewShotFA
	default:
		return fewShotEN
	}
}
