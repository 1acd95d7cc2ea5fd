package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/griotlabs/griot/internal/agent"
	"github.com/griotlabs/griot/internal/health"
	"github.com/griotlabs/griot/internal/observe"
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/store/memstore"
	"github.com/griotlabs/griot/internal/tutor"
	"github.com/griotlabs/griot/internal/vocab"
	"github.com/griotlabs/griot/internal/wisdom"
	"github.com/griotlabs/griot/pkg/provider/llm"
	llmmock "github.com/griotlabs/griot/pkg/provider/llm/mock"
	"github.com/griotlabs/griot/pkg/provider/stt"
	sttmock "github.com/griotlabs/griot/pkg/provider/stt/mock"
	"github.com/griotlabs/griot/pkg/provider/tts"
	ttsmock "github.com/griotlabs/griot/pkg/provider/tts/mock"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const scenarioYAML = `language: yo
scenarios:
  - id: market-haggle
    title: "Haggling at Balogun Market"
    description: "Buy fabric without paying oyinbo price."
    setting: "A crowded Lagos fabric stall."
    roles:
      learner: customer
      tutor: market trader
    mission: "Negotiate the fabric down to a fair price."
    key_vocabulary:
      - term: "ẹ kú àárọ̀"
        meaning: "good morning"
      - term: "ó wọ́n jù"
        meaning: "it is too expensive"
    cultural_notes:
      - "Greet the trader before discussing prices."
    haggle:
      currency: "₦"
      start_price: 5000
      target_price: 3000
      reserve_price: 2500
`

const proverbYAML = `language: yo
proverbs:
  - id: yo-patience
    text: "Sùúrù ni baba ìwà."
    translation: "Patience is the father of character."
    meaning: "Lasting things are built slowly."
`

const tutorReplyJSON = `{
	"ai_text": "Ẹ kú àárọ̀! Ẹ fẹ́ ra aṣọ?",
	"ai_text_english": "Good morning! You want to buy fabric?",
	"correction": "",
	"grammar_score": 8.5,
	"sentiment_score": 0.6,
	"negotiated_price": 4500,
	"cultural_flag": false,
	"cultural_feedback": ""
}`

type testEnv struct {
	server   *Server
	router   http.Handler
	pipeline *Pipeline
	stt      *sttmock.Provider
	llm      *llmmock.Provider
	tts      *ttsmock.Provider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	contentDir := t.TempDir()
	writeFile(t, filepath.Join(contentDir, "scenarios", "yo.yaml"), scenarioYAML)
	writeFile(t, filepath.Join(contentDir, "proverbs", "yo.yaml"), proverbYAML)

	scenarios, err := scenario.LoadLibrary(filepath.Join(contentDir, "scenarios"), nil)
	if err != nil {
		t.Fatalf("load scenarios: %v", err)
	}
	proverbs, err := wisdom.LoadLibrary(filepath.Join(contentDir, "proverbs"), nil)
	if err != nil {
		t.Fatalf("load proverbs: %v", err)
	}

	sttProv := &sttmock.Provider{Transcript: &stt.Transcript{Text: "ẹ kú àárọ̀, elo ni aṣọ yi?", Confidence: 0.93}}
	llmProv := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: tutorReplyJSON}}
	ttsProv := &ttsmock.Provider{Audio: &tts.Audio{Data: []byte("mp3-bytes"), MIMEType: "audio/mpeg"}}

	tut, err := agent.New(llmProv)
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	st := memstore.New()
	pipeline := NewPipeline(Pipeline{
		STT:           sttProv,
		Tutor:         tut,
		TTS:           ttsProv,
		Detector:      vocab.New(),
		Store:         st,
		Scenarios:     scenarios,
		Proverbs:      proverbs,
		Metrics:       metrics,
		AudioDir:      t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
	})

	auth := NewAuth("test-secret-key", 0, st)
	srv := New(auth, pipeline, health.New())
	return &testEnv{
		server:   srv,
		router:   srv.Router(),
		pipeline: pipeline,
		stt:      sttProv,
		llm:      llmProv,
		tts:      ttsProv,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// doJSON performs a JSON request against the router.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a fresh user and returns a bearer token.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "correcthorse"}
	if rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", rec.Code, rec.Body)
	}
	rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

// createConversation opens a conversation and returns its ID.
func (e *testEnv) createConversation(t *testing.T, token string) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/api/v1/conversations/start", token, map[string]string{"scenario_id": "market-haggle"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create conversation: status %d: %s", rec.Code, rec.Body)
	}
	var conv struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatal(err)
	}
	return conv.ID
}

// submitTurn uploads an audio clip to the turn endpoint.
func (e *testEnv) submitTurn(t *testing.T, token, conversationID string) *httptest.ResponseRecorder {
	t.Helper()
	return e.submitTurnFields(t, token, conversationID, []byte("fake-webm-audio"), "")
}

// submitTurnFields posts a multipart turn with the given audio and/or
// transcript field.
func (e *testEnv) submitTurnFields(t *testing.T, token, conversationID string, audio []byte, transcript string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if audio != nil {
		part, err := mw.CreateFormFile("audio", "clip.webm")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatal(err)
		}
	}
	if transcript != "" {
		if err := mw.WriteField("transcript", transcript); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+conversationID+"/turns", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "a", "password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	creds := map[string]string{"username": "adaeze", "password": "correcthorse"}
	if rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status %d", rec.Code)
	}
	if rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", creds); rec.Code != http.StatusConflict {
		t.Fatalf("second register: status %d, want 409", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.signup(t, "adaeze")
	rec := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "adaeze", "password": "wrongwrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	rec := e.doJSON(t, http.MethodGet, "/api/v1/scenarios", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = e.doJSON(t, http.MethodGet, "/api/v1/scenarios", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestListAndGetScenarios(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	rec := e.doJSON(t, http.MethodGet, "/api/v1/scenarios?language=yo", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list struct {
		Scenarios []scenarioSummary `json:"scenarios"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Scenarios) != 1 || list.Scenarios[0].ID != "market-haggle" {
		t.Fatalf("scenarios = %+v", list.Scenarios)
	}
	if !list.Scenarios[0].Haggling {
		t.Error("expected haggling flag")
	}

	rec = e.doJSON(t, http.MethodGet, "/api/v1/scenarios/market-haggle", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail: status %d", rec.Code)
	}
	var detail scenarioDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	if detail.Haggle == nil || detail.Haggle.StartPrice != 5000 {
		t.Fatalf("haggle = %+v", detail.Haggle)
	}
	if len(detail.KeyVocabulary) != 2 {
		t.Fatalf("key vocabulary = %+v", detail.KeyVocabulary)
	}
}

func TestSubmitTurnFullPipeline(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurn(t, token, convID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var turn tutor.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatal(err)
	}
	if turn.TurnNumber != 1 {
		t.Errorf("turn number = %d, want 1", turn.TurnNumber)
	}
	if turn.TutorText != "Ẹ kú àárọ̀! Ẹ fẹ́ ra aṣọ?" {
		t.Errorf("tutor text = %q", turn.TutorText)
	}
	if turn.NegotiatedPrice == nil || *turn.NegotiatedPrice != 4500 {
		t.Errorf("negotiated price = %v, want 4500", turn.NegotiatedPrice)
	}
	if turn.TutorAudioURL == "" || turn.AudioError != "" {
		t.Errorf("audio url = %q, audio error = %q", turn.TutorAudioURL, turn.AudioError)
	}
	if len(turn.VocabularyHits) == 0 {
		t.Error("expected vocabulary hits for the greeting")
	}

	// The greeting must land in the notebook.
	rec = e.doJSON(t, http.MethodGet, "/api/v1/vocabulary?language=yo", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("words: status %d", rec.Code)
	}
	var words struct {
		Words []struct {
			Term string `json:"term"`
		} `json:"words"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&words); err != nil {
		t.Fatal(err)
	}
	if len(words.Words) == 0 {
		t.Fatal("notebook is empty after a turn with hits")
	}
}

func TestSubmitTurnTTSFailureIsPartialSuccess(t *testing.T) {
	e := newTestEnv(t)
	e.tts.Audio = nil
	e.tts.SynthesizeErr = errors.New("voice server down")

	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurn(t, token, convID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite synthesis failure", rec.Code)
	}
	var turn tutor.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatal(err)
	}
	if turn.AudioError != audioErrSynthesis {
		t.Errorf("audio error = %q, want %q", turn.AudioError, audioErrSynthesis)
	}
	if turn.TutorAudioURL != "" {
		t.Errorf("audio url = %q, want empty", turn.TutorAudioURL)
	}
	if turn.TutorText == "" {
		t.Error("text reply must survive a synthesis failure")
	}
}

func TestSubmitTurnSTTFailureFailsTurn(t *testing.T) {
	e := newTestEnv(t)
	e.stt.Transcript = nil
	e.stt.Err = errors.New("transcription backend unreachable")

	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurn(t, token, convID)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	// Nothing may be stored for a failed turn.
	list := e.doJSON(t, http.MethodGet, "/api/v1/conversations/"+convID+"/turns", token, nil)
	var body struct {
		Turns []tutor.TurnResult `json:"turns"`
	}
	if err := json.NewDecoder(list.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Turns) != 0 {
		t.Fatalf("stored %d turns after a failed submission", len(body.Turns))
	}
}

func TestSubmitTurnWithoutTTSProviderIsTextOnly(t *testing.T) {
	e := newTestEnv(t)
	e.pipeline.TTS = nil

	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurn(t, token, convID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without a TTS provider: %s", rec.Code, rec.Body)
	}
	var turn tutor.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatal(err)
	}
	if turn.AudioError != audioErrSynthesis {
		t.Errorf("audio error = %q, want %q", turn.AudioError, audioErrSynthesis)
	}
	if turn.TutorAudioURL != "" {
		t.Errorf("audio url = %q, want empty", turn.TutorAudioURL)
	}
	if turn.TutorText == "" {
		t.Error("text reply must survive a missing TTS provider")
	}
}

func TestSubmitTurnTranscriptWithoutSTTProvider(t *testing.T) {
	e := newTestEnv(t)
	e.pipeline.STT = nil

	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurnFields(t, token, convID, nil, "ẹ kú àárọ̀, elo ni aṣọ yi?")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a pre-transcribed turn: %s", rec.Code, rec.Body)
	}
	var turn tutor.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatal(err)
	}
	if turn.Transcription != "ẹ kú àárọ̀, elo ni aṣọ yi?" {
		t.Errorf("transcription = %q, want the submitted transcript", turn.Transcription)
	}
	if len(turn.VocabularyHits) == 0 {
		t.Error("vocabulary detection must run on submitted transcripts")
	}
	if len(e.stt.Calls) != 0 {
		t.Errorf("transcribe calls = %d, want 0", len(e.stt.Calls))
	}
}

func TestSubmitTurnWithoutSTTProviderRequiresTranscript(t *testing.T) {
	e := newTestEnv(t)
	e.pipeline.STT = nil

	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	rec := e.submitTurn(t, token, convID)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 when audio cannot be transcribed", rec.Code)
	}
}

func TestConcurrentTurnSubmissionsKeepDistinctNumbers(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")
	convID := e.createConversation(t, token)

	const workers = 4
	var wg sync.WaitGroup
	codes := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.submitTurn(t, token, convID).Code
		}(i)
	}
	wg.Wait()
	for i, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("submission %d: status = %d", i, code)
		}
	}

	list := e.doJSON(t, http.MethodGet, "/api/v1/conversations/"+convID+"/turns", token, nil)
	var body struct {
		Turns []tutor.TurnResult `json:"turns"`
	}
	if err := json.NewDecoder(list.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Turns) != workers {
		t.Fatalf("stored %d turns, want %d", len(body.Turns), workers)
	}
	for i, turn := range body.Turns {
		if turn.TurnNumber != i+1 {
			t.Errorf("turn[%d].TurnNumber = %d, want %d", i, turn.TurnNumber, i+1)
		}
	}
}

func TestConversationOwnershipIsEnforced(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "adaeze")
	intruder := e.signup(t, "tunde")
	convID := e.createConversation(t, owner)

	rec := e.doJSON(t, http.MethodGet, "/api/v1/conversations/"+convID+"/turns", intruder, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for foreign conversation", rec.Code)
	}
}

func TestFinishScenarioGrantsProverb(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	rec := e.doJSON(t, http.MethodPost, "/api/v1/game/finish_scenario", token, map[string]any{
		"scenario_id": "market-haggle",
		"stars":       3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var result tutor.FinishResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Stars != 3 {
		t.Errorf("stars = %d, want 3", result.Stars)
	}
	if result.Reward == nil || result.Reward.ID != "yo-patience" {
		t.Fatalf("reward = %+v, want the single yo proverb", result.Reward)
	}

	// Deck now holds it; a second 3-star run has nothing left to grant.
	deck := e.doJSON(t, http.MethodGet, "/api/v1/game/deck", token, nil)
	var deckBody struct {
		Deck []tutor.Reward `json:"deck"`
	}
	if err := json.NewDecoder(deck.Body).Decode(&deckBody); err != nil {
		t.Fatal(err)
	}
	if len(deckBody.Deck) != 1 {
		t.Fatalf("deck size = %d, want 1", len(deckBody.Deck))
	}

	rec = e.doJSON(t, http.MethodPost, "/api/v1/game/finish_scenario", token, map[string]any{
		"scenario_id": "market-haggle",
		"stars":       3,
	})
	var second tutor.FinishResult
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatal(err)
	}
	if second.Reward != nil {
		t.Errorf("second reward = %+v, want nil when the deck is complete", second.Reward)
	}
}

func TestFinishScenarioOneStarGrantsNothing(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	rec := e.doJSON(t, http.MethodPost, "/api/v1/game/finish_scenario", token, map[string]any{
		"scenario_id": "market-haggle",
		"stars":       1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result tutor.FinishResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Reward != nil {
		t.Errorf("reward = %+v, want nil below the loot threshold", result.Reward)
	}
}

func TestProgressKeepsBestStars(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	for _, stars := range []int{3, 1} {
		rec := e.doJSON(t, http.MethodPost, "/api/v1/game/finish_scenario", token, map[string]any{
			"scenario_id": "market-haggle",
			"stars":       stars,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("finish(%d): status %d", stars, rec.Code)
		}
	}

	rec := e.doJSON(t, http.MethodGet, "/api/v1/game/progress", token, nil)
	var body struct {
		Progress []struct {
			ScenarioID  string `json:"scenario_id"`
			Stars       int    `json:"stars"`
			Completions int    `json:"completions"`
		} `json:"progress"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Progress) != 1 {
		t.Fatalf("progress entries = %d, want 1", len(body.Progress))
	}
	if body.Progress[0].Stars != 3 || body.Progress[0].Completions != 2 {
		t.Errorf("progress = %+v", body.Progress[0])
	}
}

func TestConversationHistoryListsOwnOnly(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signup(t, "adaeze")
	other := e.signup(t, "tunde")
	convID := e.createConversation(t, owner)
	e.createConversation(t, other)

	rec := e.doJSON(t, http.MethodGet, "/api/v1/conversations/history", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Conversations []struct {
			ID         string `json:"id"`
			ScenarioID string `json:"scenario_id"`
		} `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(body.Conversations))
	}
	if body.Conversations[0].ID != convID {
		t.Errorf("conversation id = %q, want %q", body.Conversations[0].ID, convID)
	}
}

func TestVocabularySaveAndDelete(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	rec := e.doJSON(t, http.MethodPost, "/api/v1/vocabulary", token, map[string]string{
		"language": "yo",
		"term":     "ẹ ṣé",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save: status = %d: %s", rec.Code, rec.Body)
	}

	rec = e.doJSON(t, http.MethodGet, "/api/v1/vocabulary", token, nil)
	var body struct {
		Words []struct {
			Term  string `json:"term"`
			Heard string `json:"heard"`
		} `json:"words"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Words) != 1 || body.Words[0].Term != "ẹ ṣé" {
		t.Fatalf("words = %+v", body.Words)
	}
	if body.Words[0].Heard != "ẹ ṣé" {
		t.Errorf("heard = %q, want the term itself when not given", body.Words[0].Heard)
	}

	rec = e.doJSON(t, http.MethodDelete, "/api/v1/vocabulary?language=yo&term="+url.QueryEscape("ẹ ṣé"), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	rec = e.doJSON(t, http.MethodDelete, "/api/v1/vocabulary?language=yo&term="+url.QueryEscape("ẹ ṣé"), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestVocabularySaveRejectsBlankTerm(t *testing.T) {
	e := newTestEnv(t)
	token := e.signup(t, "adaeze")

	rec := e.doJSON(t, http.MethodPost, "/api/v1/vocabulary", token, map[string]string{
		"language": "yo",
		"term":     "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
