package services

import (
	"testing"

	"github.com/tbourn/go-intake-bot/internal/domain"
)

func TestNormalize_Area(t *testing.T) {
	v := DefaultValidator()
	cases := []struct{ in, want string }{
		{"divorcio", "Família"},
		{"Preciso de um DIVÓRCIO urgente", "Família"},
		{"problema no trabalho", "Trabalhista"},
		{"crime", "Penal"},
		{"direito cível", "Civil"},
		{"minha empresa", "Empresarial"},
		{"  direito do consumidor  ", "Direito Do Consumidor"},
		{"previdenciário", "Previdenciário"},
	}
	for _, c := range cases {
		if got := v.Normalize(c.in, domain.StepArea); got != c.want {
			t.Errorf("Normalize(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Boolean(t *testing.T) {
	v := DefaultValidator()
	cases := []struct{ in, want string }{
		{"sim", "Sim"},
		{"Claro!", "Sim"},
		{"gostaria sim", "Sim"},
		{"não", "Não"},
		{"nao quero", "Não"},
		{"Não quero agora", "Não"},
		{"talvez depois", "talvez depois"},
		{"  ", ""},
	}
	for _, c := range cases {
		if got := v.Normalize(c.in, domain.StepScheduling); got != c.want {
			t.Errorf("Normalize(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_PassThroughTrims(t *testing.T) {
	v := DefaultValidator()
	if got := v.Normalize("  Maria Silva \n", domain.StepName); got != "Maria Silva" {
		t.Fatalf("got %q", got)
	}
	if got := v.Normalize(" qualquer ", 42); got != "qualquer" {
		t.Fatalf("generic step: got %q", got)
	}
}

func TestShouldAdvance(t *testing.T) {
	v := DefaultValidator()
	cases := []struct {
		name   string
		answer string
		step   int
		want   bool
	}{
		{"empty", "", domain.StepName, false},
		{"whitespace", "   ", domain.StepSituation, false},
		{"single token name", "Maria", domain.StepName, false},
		{"two tokens", "Maria Silva", domain.StepName, true},
		{"short token", "Maria S", domain.StepName, false},
		{"accented tokens", "Zé Araújo", domain.StepName, true},
		{"area too short", "ab", domain.StepArea, false},
		{"area ok", "Penal", domain.StepArea, true},
		{"situation short", "abcd", domain.StepSituation, false},
		{"situation ok", "fui demitido", domain.StepSituation, true},
		{"boolean single rune", "s", domain.StepScheduling, true},
		{"generic one rune", "x", 9, false},
		{"generic two runes", "ok", 9, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := v.ShouldAdvance(c.answer, c.step); got != c.want {
				t.Fatalf("ShouldAdvance(%q, %d) = %v; want %v", c.answer, c.step, got, c.want)
			}
		})
	}
}

func TestHint(t *testing.T) {
	v := DefaultValidator()
	if v.Hint(domain.StepName) == v.DefaultHint {
		t.Fatalf("name step should have its own hint")
	}
	if v.Hint(77) != v.DefaultHint {
		t.Fatalf("unknown step should use default hint")
	}
}

func TestValidator_SubstitutedTables(t *testing.T) {
	v := DefaultValidator()
	v.Classes = []Synonym{{Label: "Tributário", Keywords: []string{"imposto"}}}
	if got := v.Normalize("dúvida sobre IMPOSTO de renda", domain.StepArea); got != "Tributário" {
		t.Fatalf("custom table not used: %q", got)
	}
	if got := v.Normalize("divorcio", domain.StepArea); got != "Divorcio" {
		t.Fatalf("default table should be gone: %q", got)
	}
}

func TestFoldText(t *testing.T) {
	if got := foldText("Família CÍVEL ação"); got != "familia civel acao" {
		t.Fatalf("foldText = %q", got)
	}
}
