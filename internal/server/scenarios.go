package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/griotlabs/griot/internal/scenario"
)

// scenarioSummary is the list-view shape; the full scenario (vocabulary,
// cultural notes, haggle settings) comes from the detail endpoint.
type scenarioSummary struct {
	ID          string `json:"id"`
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Haggling    bool   `json:"haggling"`
}

// handleListScenarios lists scenarios, optionally filtered by language.
//
//	GET /api/v1/scenarios?language=yo
func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	var scenarios []*scenario.Scenario
	if lang := r.URL.Query().Get("language"); lang != "" {
		scenarios = s.scenarios.ByLanguage(lang)
	} else {
		for _, l := range s.scenarios.Languages() {
			scenarios = append(scenarios, s.scenarios.ByLanguage(l)...)
		}
	}

	summaries := make([]scenarioSummary, len(scenarios))
	for i, scn := range scenarios {
		summaries[i] = scenarioSummary{
			ID:          scn.ID,
			Language:    scn.Language,
			Title:       scn.Title,
			Description: scn.Description,
			Haggling:    scn.Haggle != nil,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"scenarios": summaries})
}

// scenarioDetail is the JSON detail-view shape of a scenario. The scenario
// type itself carries YAML tags for pack loading, so the wire form is mapped
// explicitly here.
type scenarioDetail struct {
	ID            string        `json:"id"`
	Language      string        `json:"language"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Setting       string        `json:"setting,omitempty"`
	LearnerRole   string        `json:"learner_role,omitempty"`
	TutorRole     string        `json:"tutor_role,omitempty"`
	Mission       string        `json:"mission"`
	KeyVocabulary []vocabDetail `json:"key_vocabulary,omitempty"`
	CulturalNotes []string      `json:"cultural_notes,omitempty"`
	Haggle        *haggleDetail `json:"haggle,omitempty"`
}

type vocabDetail struct {
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}

type haggleDetail struct {
	Currency    string `json:"currency"`
	StartPrice  int    `json:"start_price"`
	TargetPrice int    `json:"target_price"`
}

// handleGetScenario returns one scenario in full. The trader's reserve price
// stays server-side.
//
//	GET /api/v1/scenarios/{id}
func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	scn := s.scenarios.ByID(mux.Vars(r)["id"])
	if scn == nil {
		respondError(w, http.StatusNotFound, "unknown scenario")
		return
	}

	detail := scenarioDetail{
		ID:            scn.ID,
		Language:      scn.Language,
		Title:         scn.Title,
		Description:   scn.Description,
		Setting:       scn.Setting,
		LearnerRole:   scn.Roles.Learner,
		TutorRole:     scn.Roles.Tutor,
		Mission:       scn.Mission,
		CulturalNotes: scn.CulturalNotes,
	}
	for _, v := range scn.KeyVocabulary {
		detail.KeyVocabulary = append(detail.KeyVocabulary, vocabDetail{Term: v.Term, Meaning: v.Meaning})
	}
	if scn.Haggle != nil {
		detail.Haggle = &haggleDetail{
			Currency:    scn.Haggle.Currency,
			StartPrice:  scn.Haggle.StartPrice,
			TargetPrice: scn.Haggle.TargetPrice,
		}
	}
	respondJSON(w, http.StatusOK, detail)
}
