package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/griotlabs/griot/internal/agent"
	"github.com/griotlabs/griot/internal/observe"
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
	"github.com/griotlabs/griot/internal/vocab"
	"github.com/griotlabs/griot/internal/wisdom"
	"github.com/griotlabs/griot/pkg/provider/stt"
	"github.com/griotlabs/griot/pkg/provider/tts"
)

// audioErrNoSpeech marks a turn whose upload contained no recognisable
// speech; audioErrSynthesis marks a turn whose tutor reply could not be
// voiced.
const (
	audioErrNoSpeech  = "no_speech_detected"
	audioErrSynthesis = "synthesis_failed"
)

// ErrTranscriptRequired is returned when a turn arrives without a transcript
// and no transcription provider is configured.
var ErrTranscriptRequired = errors.New("pipeline: turn requires a transcript when no transcription provider is configured")

// TurnInput is one learner utterance: a recorded audio clip, or
// pre-transcribed text for deployments without a transcription provider.
// A non-empty Transcript takes precedence over Audio.
type TurnInput struct {
	Audio      []byte
	MIMEType   string
	Transcript string
}

// Pipeline runs the full turn exchange: transcribe the learner's audio,
// detect vocabulary use, generate the tutor's reply, synthesise it, and
// persist the result. It also settles finished scenarios.
//
// STT and TTS may be nil: without STT every turn must carry a transcript,
// without TTS turns complete text-only with AudioError set.
//
// ProcessTurn and FinishScenario are safe for concurrent use; turns on the
// same conversation are serialized internally.
type Pipeline struct {
	STT       stt.Provider
	Tutor     *agent.Tutor
	TTS       tts.Provider
	Detector  *vocab.Detector
	Store     store.Store
	Scenarios *scenario.Library
	Proverbs  *wisdom.Library
	Metrics   *observe.Metrics

	// AudioDir is where synthesised tutor audio files are written.
	AudioDir string

	// PublicBaseURL prefixes the audio URLs handed to clients.
	PublicBaseURL string

	// DefaultVoice is used when a scenario does not pin a TTS voice.
	DefaultVoice string

	rngMu sync.Mutex
	rng   *rand.Rand

	turnMu    sync.Mutex
	turnLocks map[string]*sync.Mutex
}

// NewPipeline wires a Pipeline and seeds its loot source.
func NewPipeline(p Pipeline) *Pipeline {
	p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	p.turnLocks = make(map[string]*sync.Mutex)
	return &p
}

// conversationLock returns the mutex serializing turns on one conversation.
func (p *Pipeline) conversationLock(conversationID string) *sync.Mutex {
	p.turnMu.Lock()
	defer p.turnMu.Unlock()
	mu := p.turnLocks[conversationID]
	if mu == nil {
		mu = &sync.Mutex{}
		p.turnLocks[conversationID] = mu
	}
	return mu
}

// ProcessTurn executes one turn of conv against the provider chain and
// stores the outcome. A TTS failure degrades the turn (AudioError set)
// instead of failing it; STT and LLM failures fail the whole turn.
func (p *Pipeline) ProcessTurn(ctx context.Context, conv *store.Conversation, in TurnInput) (*tutor.TurnResult, error) {
	start := time.Now()

	scn := p.Scenarios.ByID(conv.ScenarioID)
	if scn == nil {
		return nil, fmt.Errorf("pipeline: unknown scenario %q", conv.ScenarioID)
	}

	// Concurrent submissions on one conversation would race on the turn
	// number and overwrite each other through the upsert.
	mu := p.conversationLock(conv.ID)
	mu.Lock()
	defer mu.Unlock()

	prior, err := p.Store.Turns(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load history: %w", err)
	}

	text, err := p.transcribe(ctx, scn, in)
	if err != nil {
		return nil, err
	}

	result := &tutor.TurnResult{
		TurnNumber:    len(prior) + 1,
		Transcription: text,
	}

	if text == "" {
		result.AudioError = audioErrNoSpeech
		if err := p.storeTurn(ctx, conv.ID, result); err != nil {
			return nil, err
		}
		p.Metrics.RecordTurn(ctx, conv.Language, "no_speech")
		return result, nil
	}

	// Vocabulary detection runs on the transcription, before the tutor
	// reply, so a model failure cannot lose the learner's word credit.
	terms := make([]string, len(scn.KeyVocabulary))
	for i, v := range scn.KeyVocabulary {
		terms[i] = v.Term
	}
	hits := p.Detector.Detect(text, terms)
	for _, h := range hits {
		result.VocabularyHits = append(result.VocabularyHits, h.Term)
		if err := p.Store.RecordVocabulary(ctx, conv.UserID, conv.Language, h.Term, h.Heard); err != nil {
			slog.Warn("record vocabulary", "term", h.Term, "err", err)
		}
	}

	// Tutor reply.
	llmStart := time.Now()
	reply, err := p.Tutor.Respond(ctx, agent.TurnContext{
		Scenario:      scn,
		History:       historyFromTurns(prior),
		Transcription: text,
		CurrentPrice:  lastPrice(prior, scn),
	})
	p.Metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		p.Metrics.RecordProviderError(ctx, "llm", "respond")
		return nil, fmt.Errorf("pipeline: tutor reply: %w", err)
	}

	result.TutorText = reply.Text
	result.TutorTextEnglish = reply.TextEnglish
	result.Correction = reply.Correction
	result.GrammarScore = reply.GrammarScore
	result.SentimentScore = reply.SentimentScore
	result.NegotiatedPrice = reply.NegotiatedPrice
	result.CulturalFlag = reply.CulturalFlag
	result.CulturalFeedback = reply.CulturalFeedback

	// Synthesise. Failure or a missing TTS provider degrades the turn
	// rather than failing it; the client still gets the text reply.
	if p.TTS == nil {
		result.AudioError = audioErrSynthesis
	} else {
		ttsStart := time.Now()
		url, synthErr := p.synthesize(ctx, reply.Text, scn)
		p.Metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
		if synthErr != nil {
			p.Metrics.RecordProviderError(ctx, "tts", "synthesize")
			slog.Warn("tutor audio synthesis failed", "conversation_id", conv.ID, "err", synthErr)
			result.AudioError = audioErrSynthesis
		} else {
			result.TutorAudioURL = url
		}
	}

	if err := p.storeTurn(ctx, conv.ID, result); err != nil {
		return nil, err
	}

	p.Metrics.RecordTurn(ctx, conv.Language, "ok")
	p.Metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	return result, nil
}

// transcribe resolves the learner's utterance text: a provided transcript
// wins, otherwise the audio goes through the STT chain.
func (p *Pipeline) transcribe(ctx context.Context, scn *scenario.Scenario, in TurnInput) (string, error) {
	if in.Transcript != "" {
		return in.Transcript, nil
	}
	if p.STT == nil {
		return "", ErrTranscriptRequired
	}

	sttStart := time.Now()
	transcript, err := p.STT.Transcribe(ctx, stt.AudioClip{
		Data:     in.Audio,
		MIMEType: in.MIMEType,
		Language: scn.Language,
	})
	p.Metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		p.Metrics.RecordProviderError(ctx, "stt", "transcribe")
		return "", fmt.Errorf("pipeline: transcribe: %w", err)
	}
	return transcript.Text, nil
}

func (p *Pipeline) storeTurn(ctx context.Context, conversationID string, result *tutor.TurnResult) error {
	err := p.Store.UpsertTurn(ctx, store.StoredTurn{
		ConversationID: conversationID,
		TurnResult:     *result,
	})
	if err != nil {
		return fmt.Errorf("pipeline: store turn: %w", err)
	}
	return nil
}

// synthesize voices text and writes the audio file under AudioDir, returning
// its public URL.
func (p *Pipeline) synthesize(ctx context.Context, text string, scn *scenario.Scenario) (string, error) {
	voiceID := scn.Voice
	if voiceID == "" {
		voiceID = p.DefaultVoice
	}
	audio, err := p.TTS.Synthesize(ctx, text, tts.VoiceProfile{
		ID:       voiceID,
		Language: scn.Language,
	})
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + extForMIME(audio.MIMEType)
	path := filepath.Join(p.AudioDir, name)
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return p.PublicBaseURL + "/audio/" + name, nil
}

// FinishScenario settles a completed run: records best-of stars, rolls the
// proverb loot, and grants it to the learner's deck.
func (p *Pipeline) FinishScenario(ctx context.Context, uid, scenarioID string, stars int) (*tutor.FinishResult, error) {
	scn := p.Scenarios.ByID(scenarioID)
	if scn == nil {
		return nil, fmt.Errorf("pipeline: unknown scenario %q", scenarioID)
	}
	if stars < 1 || stars > 3 {
		return nil, fmt.Errorf("pipeline: stars %d out of range", stars)
	}

	if _, err := p.Store.RecordScenarioResult(ctx, uid, scenarioID, stars); err != nil {
		return nil, fmt.Errorf("pipeline: record result: %w", err)
	}

	res := &tutor.FinishResult{Stars: stars}

	ownedIDs, err := p.Store.OwnedProverbs(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load deck: %w", err)
	}
	owned := make(map[string]bool, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = true
	}

	p.rngMu.Lock()
	loot := p.Proverbs.Loot(p.rng, scn.Language, stars, owned)
	p.rngMu.Unlock()

	if loot != nil {
		if err := p.Store.GrantProverb(ctx, uid, loot.ID); err != nil {
			return nil, fmt.Errorf("pipeline: grant proverb: %w", err)
		}
		res.Reward = &tutor.Reward{
			ID:          loot.ID,
			Language:    loot.Language,
			Text:        loot.Text,
			Translation: loot.Translation,
			Meaning:     loot.Meaning,
		}
	}

	p.Metrics.RecordScenarioFinished(ctx, scn.Language, stars)
	return res, nil
}

// historyFromTurns converts stored turns into tutor conversation history,
// skipping turns that never produced a reply.
func historyFromTurns(turns []store.StoredTurn) []agent.Exchange {
	history := make([]agent.Exchange, 0, len(turns))
	for _, t := range turns {
		if t.TutorText == "" {
			continue
		}
		history = append(history, agent.Exchange{
			Learner: t.Transcription,
			Tutor:   t.TutorText,
		})
	}
	return history
}

// lastPrice returns the running negotiated price: the most recent turn that
// moved it, else the scenario's opening price, else nil outside haggling.
func lastPrice(turns []store.StoredTurn, scn *scenario.Scenario) *int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].NegotiatedPrice != nil {
			price := *turns[i].NegotiatedPrice
			return &price
		}
	}
	if scn.Haggle != nil {
		price := scn.Haggle.StartPrice
		return &price
	}
	return nil
}

// extForMIME maps a TTS output MIME type to a file extension.
func extForMIME(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
