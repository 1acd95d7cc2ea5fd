// Package tutor defines the remote tutor service contract: the turn exchange
// a conversation session performs against a backend, and the result shape a
// single spoken turn produces.
//
// The session controller consumes this contract; the server package produces
// it. HTTPClient is the REST implementation used when the session core runs
// against a remote deployment.
package tutor

import "fmt"

// TurnResult is one completed exchange: the learner's transcribed utterance
// and everything the tutor sent back for it.
type TurnResult struct {
	// TurnNumber is a positive integer, strictly increasing within a
	// conversation. It is the turn's identity key: a resubmitted turn number
	// replaces the earlier entry.
	TurnNumber int `json:"turn_number"`

	// Transcription is the text derived from the learner's audio.
	Transcription string `json:"transcription"`

	// TutorText is the tutor's reply in the target language.
	TutorText string `json:"tutor_text"`

	// TutorTextEnglish is an optional English rendering of TutorText.
	TutorTextEnglish string `json:"tutor_text_english,omitempty"`

	// TutorAudioURL points at the synthesised tutor audio. Empty when
	// synthesis failed; AudioError then carries the reason code.
	TutorAudioURL string `json:"tutor_audio_url,omitempty"`

	// AudioError is a reason code explaining a missing TutorAudioURL.
	// A turn with AudioError set is a partial success, not a failure.
	AudioError string `json:"audio_error,omitempty"`

	// Correction is an optional suggested fix for the learner's utterance.
	Correction string `json:"correction,omitempty"`

	// GrammarScore rates the learner's utterance on a 0-10 scale.
	GrammarScore *float64 `json:"grammar_score,omitempty"`

	// SentimentScore is the tutor's reaction polarity in [-1.0, 1.0].
	SentimentScore *float64 `json:"sentiment_score,omitempty"`

	// NegotiatedPrice is the running price in haggling scenarios.
	NegotiatedPrice *int `json:"negotiated_price,omitempty"`

	// CulturalFlag marks an etiquette violation detected in this turn.
	CulturalFlag bool `json:"cultural_flag,omitempty"`

	// CulturalFeedback explains the violation to the learner.
	CulturalFeedback string `json:"cultural_feedback,omitempty"`

	// VocabularyHits lists the scenario key-vocabulary terms the learner used
	// in this turn.
	VocabularyHits []string `json:"vocabulary_hits,omitempty"`
}

// Reward is a collectible granted for finishing a scenario well.
type Reward struct {
	ID          string `json:"id"`
	Language    string `json:"language"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Meaning     string `json:"meaning"`
}

// FinishResult is the server's response to completing a scenario.
type FinishResult struct {
	// Stars is the rating recorded for this run (the server keeps the best
	// across runs).
	Stars int `json:"stars"`

	// Reward is the proverb granted for this run, nil when none was earned.
	Reward *Reward `json:"reward,omitempty"`
}

// TransportError wraps network and protocol failures talking to the tutor
// service. Callers use it to distinguish retryable transport problems from
// domain outcomes such as a missing audio track.
type TransportError struct {
	// Op names the failed operation (e.g., "submit turn").
	Op string

	// StatusCode is the HTTP status when the server answered, 0 otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tutor: %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tutor: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
