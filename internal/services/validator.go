package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

// StepKind selects the normalization and advancement rule for a flow step.
type StepKind int

const (
	KindGeneric StepKind = iota
	KindName
	KindClassification
	KindFreeText
	KindBoolean
)

// Synonym maps a set of keywords onto one canonical label. Keywords are
// matched accent- and case-insensitively as substrings.
type Synonym struct {
	Label    string
	Keywords []string
}

// Validator normalizes free-text answers and decides whether they are good
// enough to advance the flow. All keyword tables are plain data so they can
// be replaced or localized without touching the rules.
type Validator struct {
	Kinds   map[int]StepKind
	Classes []Synonym

	YesLabel, NoLabel string
	YesWords, NoWords []string

	MinRunes    map[StepKind]int
	Hints       map[int]string
	DefaultHint string

	Locale language.Tag
}

// DefaultValidator returns the legal-intake tables: name, area of law,
// situation and scheduling preference for steps 1 to 4.
func DefaultValidator() *Validator {
	return &Validator{
		Kinds: map[int]StepKind{
			domain.StepName:       KindName,
			domain.StepArea:       KindClassification,
			domain.StepSituation:  KindFreeText,
			domain.StepScheduling: KindBoolean,
		},
		Classes: []Synonym{
			{Label: "Penal", Keywords: []string{"penal", "criminal", "crime"}},
			{Label: "Civil", Keywords: []string{"civil", "civel"}},
			{Label: "Trabalhista", Keywords: []string{"trabalhista", "trabalho", "trabalhador"}},
			{Label: "Família", Keywords: []string{"familia", "divorcio", "casamento"}},
			{Label: "Empresarial", Keywords: []string{"empresarial", "empresa", "comercial", "negocio"}},
		},
		YesLabel: "Sim",
		NoLabel:  "Não",
		YesWords: []string{"sim", "yes", "quero", "gostaria", "aceito", "ok", "pode", "claro"},
		NoWords:  []string{"nao", "no", "nope"},
		MinRunes: map[StepKind]int{
			KindClassification: 3,
			KindFreeText:       5,
			KindBoolean:        1,
			KindGeneric:        2,
		},
		Hints: map[int]string{
			domain.StepName:       "Por favor, informe seu nome completo (nome e sobrenome).",
			domain.StepArea:       "Por favor, escolha uma das áreas: Penal, Civil, Trabalhista, Família ou Empresarial.",
			domain.StepSituation:  "Por favor, descreva sua situação com mais detalhes (mínimo 5 caracteres).",
			domain.StepScheduling: "Por favor, responda com 'Sim' ou 'Não'.",
		},
		DefaultHint: "Por favor, forneça uma resposta válida.",
		Locale:      language.BrazilianPortuguese,
	}
}

// Kind returns the rule set used for stepID.
func (v *Validator) Kind(stepID int) StepKind {
	if k, ok := v.Kinds[stepID]; ok {
		return k
	}
	return KindGeneric
}

// Normalize trims the answer and maps classification and boolean steps onto
// their canonical labels. Unmatched classification input is title-cased;
// unmatched boolean input passes through unchanged.
func (v *Validator) Normalize(answer string, stepID int) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	switch v.Kind(stepID) {
	case KindClassification:
		folded := foldText(answer)
		for _, c := range v.Classes {
			for _, kw := range c.Keywords {
				if strings.Contains(folded, foldText(kw)) {
					return c.Label
				}
			}
		}
		return cases.Title(v.Locale).String(answer)
	case KindBoolean:
		words := strings.FieldsFunc(foldText(answer), func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		// Negatives win so that "não quero" is read as a refusal.
		if containsWord(words, v.NoWords) {
			return v.NoLabel
		}
		if containsWord(words, v.YesWords) {
			return v.YesLabel
		}
		return answer
	default:
		return answer
	}
}

// ShouldAdvance reports whether a normalized answer is acceptable for stepID.
func (v *Validator) ShouldAdvance(normalized string, stepID int) bool {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return false
	}
	kind := v.Kind(stepID)
	if kind == KindName {
		tokens := strings.Fields(normalized)
		if len(tokens) < 2 {
			return false
		}
		for _, t := range tokens {
			if utf8.RuneCountInString(t) < 2 {
				return false
			}
		}
		return true
	}
	return utf8.RuneCountInString(normalized) >= v.MinRunes[kind]
}

// Hint returns the re-prompt prefix for stepID.
func (v *Validator) Hint(stepID int) string {
	if h, ok := v.Hints[stepID]; ok {
		return h
	}
	return v.DefaultHint
}

// foldText lowercases s and strips combining marks ("Divórcio" -> "divorcio").
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func containsWord(words, set []string) bool {
	for _, w := range words {
		for _, s := range set {
			if w == foldText(s) {
				return true
			}
		}
	}
	return false
}
