// Package wisdom provides the proverb content schema, YAML pack loader, and
// the loot rule that rewards strong scenario performances.
//
// Finishing a scenario with at least two stars earns the learner one random
// proverb they do not own yet, building a collectible deck of traditional
// sayings in the language they are studying.
package wisdom

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinStarsForLoot is the star rating threshold at which finishing a scenario
// grants a proverb.
const MinStarsForLoot = 2

// Pack is the top-level structure of a proverb pack YAML file.
type Pack struct {
	// Language is the BCP-47 code all proverbs in this pack belong to.
	Language string `yaml:"language"`

	Proverbs []Proverb `yaml:"proverbs"`
}

// Proverb is a single collectible saying.
type Proverb struct {
	// ID uniquely identifies the proverb across all packs.
	ID string `yaml:"id"`

	// Language is filled from the pack at load time and is not set in YAML.
	Language string `yaml:"-"`

	// Text is the proverb in the target language.
	Text string `yaml:"text"`

	// Translation is the literal English rendering.
	Translation string `yaml:"translation"`

	// Meaning explains when the proverb is used.
	Meaning string `yaml:"meaning"`
}

// LoadPackFromReader parses proverb pack YAML from an [io.Reader].
func LoadPackFromReader(r io.Reader) (*Pack, error) {
	var p Pack
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("wisdom: decode pack yaml: %w", err)
	}
	if p.Language == "" {
		return nil, errors.New("wisdom: pack language is required")
	}
	for i := range p.Proverbs {
		pv := &p.Proverbs[i]
		pv.Language = p.Language
		if pv.ID == "" {
			return nil, fmt.Errorf("wisdom: pack %q proverb %d: id is required", p.Language, i)
		}
		if pv.Text == "" {
			return nil, fmt.Errorf("wisdom: pack %q proverb %q: text is required", p.Language, pv.ID)
		}
	}
	return &p, nil
}

// LoadPackFile reads and parses a proverb pack YAML file from disk.
func LoadPackFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wisdom: open pack file %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadPackFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("wisdom: parse pack file %q: %w", path, err)
	}
	return p, nil
}

// Library is an immutable in-memory index of all loaded proverbs.
type Library struct {
	byID   map[string]*Proverb
	byLang map[string][]*Proverb
}

// LoadLibrary loads every .yaml/.yml pack under dir into a [Library].
// When languages is non-empty, packs in other languages are skipped.
func LoadLibrary(dir string, languages []string) (*Library, error) {
	lib := &Library{
		byID:   make(map[string]*Proverb),
		byLang: make(map[string][]*Proverb),
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
		for i := range pack.Proverbs {
			pv := &pack.Proverbs[i]
			if _, ok := lib.byID[pv.ID]; ok {
				return fmt.Errorf("wisdom: duplicate proverb ID %q in %q", pv.ID, path)
			}
			lib.byID[pv.ID] = pv
			lib.byLang[pv.Language] = append(lib.byLang[pv.Language], pv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// ByID returns the proverb with the given ID, or nil if unknown.
func (l *Library) ByID(id string) *Proverb {
	return l.byID[id]
}

// ByLanguage returns all proverbs for a language in load order.
// The returned slice is shared; callers must not modify it.
func (l *Library) ByLanguage(lang string) []*Proverb {
	return l.byLang[lang]
}

// Len returns the total number of loaded proverbs.
func (l *Library) Len() int {
	return len(l.byID)
}

// Loot picks a random proverb in the given language that the learner does not
// own yet. It returns nil when stars is below [MinStarsForLoot] or when the
// learner already owns every proverb for the language.
func (l *Library) Loot(rng *rand.Rand, lang string, stars int, owned map[string]bool) *Proverb {
	if stars < MinStarsForLoot {
		return nil
	}
	pool := l.byLang[lang]
	candidates := make([]*Proverb, 0, len(pool))
	for _, pv := range pool {
		if !owned[pv.ID] {
			candidates = append(candidates, pv)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rng.Intn(len(candidates))]
}
