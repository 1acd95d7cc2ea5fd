// Package agent implements the AI tutor character: it turns a transcribed
// learner utterance plus the scenario context into the tutor's structured
// reply using a language model.
//
// The model is instructed to answer with a single JSON object carrying the
// in-character reply and the scoring signals (sentiment, grammar, price,
// cultural flag) the session scoring engine consumes. Responses wrapped in
// Markdown code fences are tolerated; anything else that fails to parse is
// an error the caller can retry.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/pkg/provider/llm"
)

// Proficiency selects how much the tutor adapts to the learner's level.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
)

// IsValid reports whether p is a recognised proficiency tier.
func (p Proficiency) IsValid() bool {
	switch p {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced:
		return true
	}
	return false
}

// Exchange is one past learner/tutor pair fed back as conversation history.
type Exchange struct {
	Learner string
	Tutor   string
}

// TurnContext carries everything the tutor needs to answer one turn.
type TurnContext struct {
	// Scenario is the active roleplay scenario. Must not be nil.
	Scenario *scenario.Scenario

	// Proficiency is the learner's declared level. Empty defaults to beginner.
	Proficiency Proficiency

	// History lists the previous exchanges of this conversation in order.
	History []Exchange

	// Transcription is the learner's latest utterance.
	Transcription string

	// CurrentPrice is the running negotiated price in haggling scenarios,
	// nil otherwise.
	CurrentPrice *int
}

// Reply is the tutor's structured answer for one turn.
type Reply struct {
	// Text is the tutor's reply in the target language.
	Text string `json:"ai_text"`

	// TextEnglish is the English rendering of Text.
	TextEnglish string `json:"ai_text_english"`

	// Correction suggests a fix for the learner's utterance, empty when the
	// utterance was fine.
	Correction string `json:"correction"`

	// GrammarScore rates the utterance 0-10.
	GrammarScore *float64 `json:"grammar_score"`

	// SentimentScore is the tutor's reaction in [-1.0, 1.0].
	SentimentScore *float64 `json:"sentiment_score"`

	// NegotiatedPrice is the trader's updated price offer, nil outside
	// haggling scenarios or when the price did not move.
	NegotiatedPrice *int `json:"negotiated_price"`

	// CulturalFlag marks an etiquette violation in the learner's utterance.
	CulturalFlag bool `json:"cultural_flag"`

	// CulturalFeedback explains the violation.
	CulturalFeedback string `json:"cultural_feedback"`
}

// Option is a functional option for configuring a Tutor.
type Option func(*Tutor)

// WithTemperature sets the sampling temperature. Default: 0.7.
func WithTemperature(t float64) Option {
	return func(a *Tutor) {
		a.temperature = t
	}
}

// WithMaxTokens caps the reply length. Default: 1024.
func WithMaxTokens(n int) Option {
	return func(a *Tutor) {
		a.maxTokens = n
	}
}

// Tutor generates in-character turn replies. It is safe for concurrent use.
type Tutor struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// New creates a Tutor backed by the given language model provider.
func New(provider llm.Provider, opts ...Option) (*Tutor, error) {
	if provider == nil {
		return nil, errors.New("agent: provider must not be nil")
	}
	a := &Tutor{
		provider:    provider,
		temperature: 0.7,
		maxTokens:   1024,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Respond produces the tutor's reply for one learner utterance.
func (a *Tutor) Respond(ctx context.Context, tc TurnContext) (*Reply, error) {
	if tc.Scenario == nil {
		return nil, errors.New("agent: scenario must not be nil")
	}
	if strings.TrimSpace(tc.Transcription) == "" {
		return nil, errors.New("agent: transcription must not be empty")
	}

	req := llm.CompletionRequest{
		SystemPrompt: buildSystemPrompt(tc),
		Messages:     buildMessages(tc),
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		JSONOnly:     a.provider.Capabilities().SupportsJSONMode,
	}

	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent: completion: %w", err)
	}

	reply, err := parseReply(resp.Content)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// buildSystemPrompt assembles the persona, scene, scoring contract, and
// output schema for the model.
func buildSystemPrompt(tc TurnContext) string {
	sc := tc.Scenario
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s in a %s language practice roleplay.\n", orDefault(sc.Roles.Tutor, "conversation partner"), sc.Language)
	fmt.Fprintf(&b, "The learner plays: %s.\n", orDefault(sc.Roles.Learner, "themselves"))
	if sc.Setting != "" {
		fmt.Fprintf(&b, "Scene: %s\n", sc.Setting)
	}
	fmt.Fprintf(&b, "The learner's mission: %s\n", sc.Mission)

	prof := tc.Proficiency
	if !prof.IsValid() {
		prof = ProficiencyBeginner
	}
	switch prof {
	case ProficiencyBeginner:
		b.WriteString("The learner is a beginner: use short, simple sentences and common vocabulary.\n")
	case ProficiencyIntermediate:
		b.WriteString("The learner is intermediate: use natural everyday speech with occasional idioms.\n")
	case ProficiencyAdvanced:
		b.WriteString("The learner is advanced: speak naturally, including proverbs and colloquialisms.\n")
	}

	if len(sc.KeyVocabulary) > 0 {
		b.WriteString("Work these expressions into the conversation where natural:\n")
		for _, v := range sc.KeyVocabulary {
			fmt.Fprintf(&b, "  - %s (%s)\n", v.Term, v.Meaning)
		}
	}

	if len(sc.CulturalNotes) > 0 {
		b.WriteString("Etiquette you enforce. Set cultural_flag to true and explain in cultural_feedback when the learner violates one:\n")
		for _, n := range sc.CulturalNotes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}

	if h := sc.Haggle; h != nil {
		price := h.StartPrice
		if tc.CurrentPrice != nil {
			price = *tc.CurrentPrice
		}
		fmt.Fprintf(&b, "You are haggling over a price. Your current offer is %s%d.\n", h.Currency, price)
		fmt.Fprintf(&b, "Concede gradually when the learner bargains well, but never go below %s%d.\n", h.Currency, h.ReservePrice)
		b.WriteString("Report your updated offer in negotiated_price on every turn where a price is discussed.\n")
	}

	b.WriteString(`
React in character. Rate the learner each turn: sentiment_score in [-1.0, 1.0]
reflects how their words land on you, grammar_score in [0, 10] rates their
language quality, and correction holds a fixed version of their sentence when
it needs one (empty string otherwise).

Respond with a single JSON object and nothing else:
{"ai_text": "...", "ai_text_english": "...", "correction": "", "grammar_score": 7,
"sentiment_score": 0.3, "negotiated_price": null, "cultural_flag": false,
"cultural_feedback": ""}`)

	return b.String()
}

// buildMessages converts the history and latest utterance into chat messages.
func buildMessages(tc TurnContext) []llm.Message {
	msgs := make([]llm.Message, 0, len(tc.History)*2+1)
	for _, ex := range tc.History {
		if ex.Learner != "" {
			msgs = append(msgs, llm.Message{Role: "user", Content: ex.Learner})
		}
		if ex.Tutor != "" {
			msgs = append(msgs, llm.Message{Role: "assistant", Content: ex.Tutor})
		}
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: tc.Transcription})
	return msgs
}

// parseReply decodes the model output, tolerating Markdown code fences.
func parseReply(content string) (*Reply, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return nil, errors.New("agent: empty model response")
	}

	var reply Reply
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("agent: parse model response: %w", err)
	}
	if strings.TrimSpace(reply.Text) == "" {
		return nil, errors.New("agent: model response has no ai_text")
	}
	return &reply, nil
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop a language tag like "json" on the fence line.
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
