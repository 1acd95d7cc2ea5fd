// Package scenario provides the scenario content schema, YAML pack loader,
// and the in-memory library the server answers scenario queries from.
//
// A scenario is a roleplay situation a learner can practise: bargaining at a
// Lagos market, directing a taxi in Kano, greeting an elder in Enugu. Packs
// are plain YAML files, one per language, checked into the content directory.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is the top-level structure of a scenario pack YAML file.
//
// Example:
//
//	language: yo
//	scenarios:
//	  - id: market-haggle
//	    title: "Bargaining at Balogun Market"
//	    setting: "A busy fabric stall in Lagos."
type Pack struct {
	// Language is the BCP-47 code all scenarios in this pack teach.
	Language string `yaml:"language"`

	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario describes a single roleplay situation.
type Scenario struct {
	// ID uniquely identifies the scenario across all packs (e.g., "market-haggle").
	ID string `yaml:"id"`

	// Language is filled from the pack at load time and is not set in YAML.
	Language string `yaml:"-"`

	// Title is the learner-facing display name.
	Title string `yaml:"title"`

	// Description is a short summary shown on the scenario picker.
	Description string `yaml:"description"`

	// Setting is the scene description injected into the tutor prompt.
	Setting string `yaml:"setting"`

	// Roles names the two parties in the roleplay.
	Roles Roles `yaml:"roles"`

	// Mission is what the learner must accomplish to win the scenario.
	Mission string `yaml:"mission"`

	// KeyVocabulary lists the words and phrases the scenario is built to
	// exercise. Vocabulary hits are detected phonetically, so learners get
	// credit for close pronunciations.
	KeyVocabulary []VocabEntry `yaml:"key_vocabulary"`

	// CulturalNotes lists etiquette rules the tutor enforces (e.g., greet
	// before asking prices). Violations cost patience.
	CulturalNotes []string `yaml:"cultural_notes"`

	// Haggle configures price negotiation for bargaining scenarios.
	// Nil for scenarios without a price mechanic.
	Haggle *HaggleSettings `yaml:"haggle"`

	// Voice is the provider-specific TTS voice ID for the tutor character.
	// Empty falls back to the deployment default.
	Voice string `yaml:"voice"`
}

// Roles names the two parties in a scenario.
type Roles struct {
	// Learner is the role the learner plays (e.g., "customer").
	Learner string `yaml:"learner"`

	// Tutor is the role the AI plays (e.g., "market trader").
	Tutor string `yaml:"tutor"`
}

// VocabEntry is a single target word or phrase with its English meaning.
type VocabEntry struct {
	Term    string `yaml:"term"`
	Meaning string `yaml:"meaning"`
}

// HaggleSettings configures the price negotiation mechanic.
// Prices are in the scenario's local currency, whole units.
type HaggleSettings struct {
	// Currency is the display currency symbol or code (e.g., "₦").
	Currency string `yaml:"currency"`

	// StartPrice is the trader's opening ask.
	StartPrice int `yaml:"start_price"`

	// TargetPrice is the price at or below which the learner wins.
	TargetPrice int `yaml:"target_price"`

	// ReservePrice is the floor below which the trader never goes.
	ReservePrice int `yaml:"reserve_price"`
}

// Validate checks a scenario for structural problems. The pack loader calls
// it for every scenario and refuses packs with invalid entries.
func (s *Scenario) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if s.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if s.Mission == "" {
		errs = append(errs, errors.New("mission is required"))
	}
	if h := s.Haggle; h != nil {
		if h.StartPrice <= 0 {
			errs = append(errs, fmt.Errorf("haggle.start_price %d must be positive", h.StartPrice))
		}
		if h.TargetPrice <= 0 {
			errs = append(errs, fmt.Errorf("haggle.target_price %d must be positive", h.TargetPrice))
		}
		if h.TargetPrice >= h.StartPrice {
			errs = append(errs, fmt.Errorf("haggle.target_price %d must be below start_price %d", h.TargetPrice, h.StartPrice))
		}
		if h.ReservePrice > h.TargetPrice {
			errs = append(errs, fmt.Errorf("haggle.reserve_price %d must not exceed target_price %d", h.ReservePrice, h.TargetPrice))
		}
	}
	return errors.Join(errs...)
}

// LoadPackFromReader parses scenario pack YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadPackFromReader(r io.Reader) (*Pack, error) {
	var p Pack
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("scenario: decode pack yaml: %w", err)
	}
	if p.Language == "" {
		return nil, errors.New("scenario: pack language is required")
	}
	for i := range p.Scenarios {
		p.Scenarios[i].Language = p.Language
		if err := p.Scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("scenario: pack %q scenario %q: %w", p.Language, p.Scenarios[i].ID, err)
		}
	}
	return &p, nil
}

// LoadPackFile reads and parses a scenario pack YAML file from disk.
func LoadPackFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: open pack file %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadPackFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("scenario: parse pack file %q: %w", path, err)
	}
	return p, nil
}

// Library is an immutable in-memory index of all loaded scenarios.
type Library struct {
	byID   map[string]*Scenario
	byLang map[string][]*Scenario
}

// LoadLibrary loads every .yaml/.yml pack under dir into a [Library].
// When languages is non-empty, packs in other languages are skipped.
// Duplicate scenario IDs across packs are an error.
func LoadLibrary(dir string, languages []string) (*Library, error) {
	lib := &Library{
		byID:   make(map[string]*Scenario),
		byLang: make(map[string][]*Scenario),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		pack, err := LoadPackFile(path)
		if err != nil {
			return err
		}
		if len(languages) > 0 && !slices.Contains(languages, pack.Language) {
			return nil
		}
		for i := range pack.Scenarios {
			sc := &pack.Scenarios[i]
			if _, ok := lib.byID[sc.ID]; ok {
				return fmt.Errorf("scenario: duplicate scenario ID %q in %q", sc.ID, path)
			}
			lib.byID[sc.ID] = sc
			lib.byLang[sc.Language] = append(lib.byLang[sc.Language], sc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// ByID returns the scenario with the given ID, or nil if unknown.
func (l *Library) ByID(id string) *Scenario {
	return l.byID[id]
}

// ByLanguage returns all scenarios for a language in load order.
// The returned slice is shared; callers must not modify it.
func (l *Library) ByLanguage(lang string) []*Scenario {
	return l.byLang[lang]
}

// Languages returns the sorted list of languages with at least one scenario.
func (l *Library) Languages() []string {
	langs := make([]string, 0, len(l.byLang))
	for lang := range l.byLang {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Len returns the total number of loaded scenarios.
func (l *Library) Len() int {
	return len(l.byID)
}
