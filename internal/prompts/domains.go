package prompts

import "strings"

const (
	DomainGeneral = "general"
	DomainLegal   = "legal"
	DomainMedical = "medical"
	DomainPolice  = "police"
)

type localized struct {
	fa string
	en string
}

func (l localized) in(language string) string {
	if isPersian(language) {
		return l.fa
	}
	return l.en
}

type domain struct {
	persona     localized
	entityTypes []string
	inference   localized
	// refereeContext names the kind of analysis the referee arbitrates.
	refereeContext localized
	refereeNote    localized
}

var domainOrder = []string{DomainGeneral, DomainLegal, DomainMedical, DomainPolice}

var domains = map[string]domain{
	DomainGeneral: {
		persona: localized{
			fa: "شما یک موتور استخراج اطلاعات دقیق هستید. متن‌های عمومی را تحلیل کنید و موجودیت‌ها، روابط و استنتاج‌های منطقی را شناسایی کنید. احتمالات و ریسک‌ها را ارزیابی کنید.",
			en: "You are a precise information extraction engine for general texts. Identify important entities, relationships, and logical inferences. Assess probabilities and risks.",
		},
		entityTypes: []string{"PERSON", "ORGANIZATION", "LOCATION", "DATE", "TIME", "EVENT", "PRODUCT", "MONEY", "INFERENCE", "RISK_ASSESSMENT"},
		inference: localized{
			fa: "علاوه بر موجودیت‌ها و روابط مستقیم، استنتاج‌های منطقی و احتمالات را نیز شناسایی کنید.",
			en: "In addition to direct entities and relationships, identify logical inferences and probabilities.",
		},
		refereeContext: localized{fa: "تحلیل عمومی متن", en: "general text analysis"},
	},
	DomainLegal: {
		persona: localized{
			fa: "شما یک متخصص حقوقی هستید که متن‌های قانونی را تحلیل می‌کنید. بر اشخاص، نهادهای حقوقی، قوانین، مواد قانونی، دادگاه‌ها، قراردادها و روابط حقوقی تمرکز کنید. احتمال نقض قوانین و خطرات حقوقی را ارزیابی کنید.",
			en: "You are a legal expert analyzing legal texts. Focus on persons, legal entities, laws, legal articles, courts, contracts, and legal relationships. Assess probability of law violations and legal risks.",
		},
		entityTypes: []string{"PERSON", "LEGAL_ENTITY", "COURT", "LAW", "LEGAL_ARTICLE", "CONTRACT", "CASE_NUMBER", "DATE", "LOCATION", "FINE", "SENTENCE", "LEGAL_INFERENCE", "VIOLATION_RISK"},
		inference: localized{
			fa: "ویژه: احتمال نقض قوانین، خطرات حقوقی و استنتاج‌های قانونی را شناسایی کنید.",
			en: "Special: Identify probability of law violations, legal risks, and legal inferences.",
		},
		refereeContext: localized{fa: "تحلیل متن حقوقی", en: "legal text analysis"},
		refereeNote: localized{
			fa: "توجه ویژه: احتمال نقض قوانین و خطرات حقوقی را ارزیابی کنید.",
			en: "Special attention: assess the probability of law violations and legal risks.",
		},
	},
	DomainMedical: {
		persona: localized{
			fa: "شما یک متخصص پزشکی هستید که اسناد پزشکی را تحلیل می‌کنید. بر بیماران، پزشکان، بیماری‌ها، علائم، درمان‌ها، داروها، آزمایش‌ها و روابط پزشکی تمرکز کنید. خطرات سلامتی و احتمالات تشخیصی را ارزیابی کنید.",
			en: "You are a medical expert analyzing medical documents. Focus on patients, doctors, diseases, symptoms, treatments, medications, tests, and medical relationships. Assess health risks and diagnostic probabilities.",
		},
		entityTypes: []string{"PATIENT", "DOCTOR", "HOSPITAL", "DISEASE", "SYMPTOM", "TREATMENT", "MEDICATION", "TEST", "BODY_PART", "DATE", "DOSAGE", "MEDICAL_INFERENCE", "HEALTH_RISK"},
		inference: localized{
			fa: "ویژه: خطرات سلامتی، احتمالات تشخیصی و استنتاج‌های پزشکی را شناسایی کنید.",
			en: "Special: Identify health risks, diagnostic probabilities, and medical inferences.",
		},
		refereeContext: localized{fa: "تحلیل متن پزشکی", en: "medical text analysis"},
		refereeNote: localized{
			fa: "توجه ویژه: خطرات سلامتی و احتمالات تشخیصی را در نظر بگیرید.",
			en: "Special attention: consider health risks and diagnostic probabilities.",
		},
	},
	DomainPolice: {
		persona: localized{
			fa: "شما یک تحلیلگر امنیتی هستید که اسناد پلیسی و امنیتی را بررسی می‌کنید. بر مظنونان، مجرمان، جرائم، شاهدان، مکان‌های وقوع، زمان، شواهد و روابط جرمی تمرکز کنید. رفتارهای مشکوک، انگیزه‌های احتمالی، و سطح تهدید را تحلیل و استنتاج کنید. احتمال وقوع جرم را ارزیابی کنید.",
			en: "You are a security analyst reviewing police and security documents. Focus on suspects, criminals, crimes, witnesses, locations, times, evidence, and criminal relationships. Analyze and infer suspicious behaviors, potential motives, and threat levels. Assess crime probability.",
		},
		entityTypes: []string{"SUSPECT", "VICTIM", "WITNESS", "CRIME", "LOCATION", "DATE", "TIME", "EVIDENCE", "WEAPON", "VEHICLE", "CASE_NUMBER", "OFFICER", "CRIMINAL_INFERENCE", "THREAT_LEVEL", "MOTIVE", "SUSPICIOUS_BEHAVIOR"},
		inference: localized{
			fa: "ویژه: رفتارهای مشکوک، احتمال وقوع جرم، انگیزه‌های احتمالی و سطح تهدید را تحلیل و استنتاج کنید. اگر متن حاکی از احتمال جرم است، آن را به عنوان CRIMINAL_INFERENCE یا SUSPICIOUS_BEHAVIOR شناسایی کنید.",
			en: "Special: Analyze and infer suspicious behaviors, crime probability, potential motives, and threat levels. If the text suggests possible crime, identify it as CRIMINAL_INFERENCE or SUSPICIOUS_BEHAVIOR.",
		},
		refereeContext: localized{fa: "تحلیل متن امنیتی/پلیسی", en: "police/security text analysis"},
		refereeNote: localized{
			fa: "توجه ویژه: رفتارهای مشکوک، احتمالات جرمی، انگیزه‌ها و استنتاج‌های امنیتی را در نظر بگیرید.",
			en: "Special attention: consider suspicious behaviors, crime probabilities, motives, and threat-level inferences.",
		},
	},
}

func lookupDomain(name string) domain {
	if d, ok := domains[name]; ok {
		return d
	}
	return domains[DomainGeneral]
}

// ListDomains returns the supported domains in a stable order.
func ListDomains() []string {
	out := make([]string, len(domainOrder))
	copy(out, domainOrder)
	return out
}

func KnownDomain(name string) bool {
	_, ok := domains[name]
	return ok
}

// EntityTypes returns the controlled type vocabulary for a domain. Unknown
// domains get the general vocabulary.
func EntityTypes(name string) []string {
	types := lookupDomain(name).entityTypes
	out := make([]string, len(types))
	copy(out, types)
	return out
}

func isPersian(language string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(language)), "fa")
}
