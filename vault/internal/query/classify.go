// Package query answers natural-language questions over processed documents,
// switching the assistant's persona based on what kind of question it is.
package query

import "strings"

// Persona is the answering style used for a question.
type Persona string

const (
	PersonaCalculator Persona = "calculator"
	PersonaAnalyst    Persona = "analyst"
	PersonaFinder     Persona = "finder"
	PersonaAdvisor    Persona = "advisor"
	PersonaAuditor    Persona = "auditor"
	PersonaForecaster Persona = "forecaster"
	PersonaAssistant  Persona = "assistant"
)

// classifyRules is checked in order; the first rule with a matching keyword
// wins. Keywords match as substrings of the lowercased question, which also
// catches inflected forms ("calculate", "calculating"). French keywords are
// kept alongside English ones.
var classifyRules = []struct {
	persona  Persona
	keywords []string
}{
	{PersonaCalculator, []string{
		"combien", "total", "somme", "calcul", "moyenne", "pourcentage", "%",
		"sum", "calculate", "average", "count",
	}},
	{PersonaAnalyst, []string{
		"compar", "versus", "vs", "différence", "plus grand", "plus petit",
		"meilleur", "compare", "difference",
	}},
	{PersonaFinder, []string{
		"liste", "montre", "affiche", "tous", "quels",
		"show", "list", "display", "all", "find", "search",
	}},
	{PersonaAnalyst, []string{
		"analys", "tendance", "insight", "recommand", "conseil",
		"suggest", "trend", "pattern", "overview",
	}},
	{PersonaAdvisor, []string{
		"budget", "dépense", "économ", "optimis", "réduire", "coût",
		"spend", "save", "cost", "expensive",
	}},
	{PersonaAuditor, []string{
		"manque", "manquant", "erreur", "problème", "vérif", "audit",
		"missing", "error", "check", "validate", "issue",
	}},
	{PersonaForecaster, []string{
		"prévision", "futur", "projection", "estim",
		"forecast", "predict", "future", "will", "next",
	}},
}

// Classify maps a question to a persona. Deterministic: same question, same
// persona.
func Classify(question string) Persona {
	q := strings.ToLower(question)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.persona
			}
		}
	}
	return PersonaAssistant
}
