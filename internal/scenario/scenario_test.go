package scenario_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/griotlabs/griot/internal/scenario"
)

const packYAML = `
language: yo
scenarios:
  - id: market-haggle
    title: "Bargaining at Balogun Market"
    description: "Buy fabric without paying tourist prices."
    setting: "A busy fabric stall in Lagos."
    roles:
      learner: customer
      tutor: market trader
    mission: "Negotiate the gele fabric down to a fair price."
    key_vocabulary:
      - term: "Eelo ni?"
        meaning: "How much is it?"
      - term: "O won ju"
        meaning: "It is too expensive"
    cultural_notes:
      - "Greet the trader before asking about prices."
    haggle:
      currency: "₦"
      start_price: 5000
      target_price: 3000
      reserve_price: 2500
  - id: greet-elder
    title: "Greeting an Elder"
    setting: "A family compound in Ibadan."
    roles:
      learner: visitor
      tutor: elder
    mission: "Greet the elder with proper respect."
`

func TestLoadPackFromReader(t *testing.T) {
	t.Parallel()
	p, err := scenario.LoadPackFromReader(strings.NewReader(packYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Scenarios) != 2 {
		t.Fatalf("scenarios = %d, want 2", len(p.Scenarios))
	}

	sc := p.Scenarios[0]
	if sc.Language != "yo" {
		t.Errorf("language = %q, want yo", sc.Language)
	}
	if sc.Roles.Tutor != "market trader" {
		t.Errorf("tutor role = %q, want market trader", sc.Roles.Tutor)
	}
	if sc.Haggle == nil || sc.Haggle.StartPrice != 5000 {
		t.Errorf("haggle = %+v, want start_price 5000", sc.Haggle)
	}
	if len(sc.KeyVocabulary) != 2 {
		t.Errorf("key_vocabulary = %d entries, want 2", len(sc.KeyVocabulary))
	}
	if p.Scenarios[1].Haggle != nil {
		t.Errorf("greet-elder should have no haggle settings")
	}
}

func TestLoadPackFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
language: yo
scenarios:
  - id: s1
    title: T
    mission: M
    bogus_field: nope
`
	if _, err := scenario.LoadPackFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestScenarioValidate_HagglePriceOrdering(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		haggle  scenario.HaggleSettings
		wantErr string
	}{
		{
			name:   "valid ordering",
			haggle: scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000, ReservePrice: 2500},
		},
		{
			name:    "target at start",
			haggle:  scenario.HaggleSettings{StartPrice: 3000, TargetPrice: 3000, ReservePrice: 1000},
			wantErr: "target_price",
		},
		{
			name:    "reserve above target",
			haggle:  scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000, ReservePrice: 3500},
			wantErr: "reserve_price",
		},
		{
			name:    "zero start price",
			haggle:  scenario.HaggleSettings{StartPrice: 0, TargetPrice: 0, ReservePrice: 0},
			wantErr: "start_price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sc := scenario.Scenario{
				ID:      "s1",
				Title:   "T",
				Mission: "M",
				Haggle:  &tt.haggle,
			}
			err := sc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLibrary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "yo.yaml"), packYAML)
	writeFile(t, filepath.Join(dir, "ha.yaml"), `
language: ha
scenarios:
  - id: taxi-kano
    title: "Taking a Taxi in Kano"
    mission: "Direct the driver to Kurmi Market."
`)

	lib, err := scenario.LoadLibrary(dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lib.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", lib.Len())
	}
	if sc := lib.ByID("taxi-kano"); sc == nil || sc.Language != "ha" {
		t.Errorf("ByID(taxi-kano) = %+v, want ha scenario", sc)
	}
	if got := len(lib.ByLanguage("yo")); got != 2 {
		t.Errorf("ByLanguage(yo) = %d scenarios, want 2", got)
	}
	if langs := lib.Languages(); len(langs) != 2 || langs[0] != "ha" || langs[1] != "yo" {
		t.Errorf("Languages() = %v, want [ha yo]", langs)
	}
}

func TestLoadLibrary_LanguageFilter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "yo.yaml"), packYAML)
	writeFile(t, filepath.Join(dir, "ig.yaml"), `
language: ig
scenarios:
  - id: enugu-greeting
    title: "Visiting Enugu"
    mission: "Introduce yourself."
`)

	lib, err := scenario.LoadLibrary(dir, []string{"yo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lib.ByID("enugu-greeting") != nil {
		t.Error("ig scenario loaded despite language filter")
	}
	if lib.ByID("market-haggle") == nil {
		t.Error("yo scenario missing")
	}
}

func TestLoadLibrary_DuplicateID(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), `
language: yo
scenarios:
  - id: dup
    title: A
    mission: M
`)
	writeFile(t, filepath.Join(dir, "b.yaml"), `
language: ha
scenarios:
  - id: dup
    title: B
    mission: M
`)

	if _, err := scenario.LoadLibrary(dir, nil); err == nil {
		t.Fatal("expected error for duplicate scenario ID, got nil")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
