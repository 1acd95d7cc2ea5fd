package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Compile-time assertion that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPOption is a functional option for configuring an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) HTTPOption {
	return func(c *HTTPClient) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// HTTPClient is the REST implementation of [Client]. It talks to a Griot
// server's /api/v1 surface.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient for the server at baseURL
// (e.g., "https://griot.example.com"). baseURL must be non-empty.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("tutor: baseURL must not be empty")
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SubmitTurn uploads the audio clip as a multipart form and decodes the
// resulting TurnResult. Failures are wrapped in [TransportError].
func (c *HTTPClient) SubmitTurn(ctx context.Context, conversationID string, audio []byte, mimeType string) (*TurnResult, error) {
	if conversationID == "" {
		return nil, errors.New("tutor: conversationID must not be empty")
	}
	if len(audio) == 0 {
		return nil, errors.New("tutor: audio must not be empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", filenameFor(mimeType))
	if err != nil {
		return nil, fmt.Errorf("tutor: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("tutor: write audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("tutor: close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/conversations/%s/turns", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("tutor: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var result TurnResult
	if err := c.do(req, "submit turn", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Turns fetches the ordered turn history of a conversation.
func (c *HTTPClient) Turns(ctx context.Context, conversationID string) ([]TurnResult, error) {
	if conversationID == "" {
		return nil, errors.New("tutor: conversationID must not be empty")
	}

	endpoint := fmt.Sprintf("%s/api/v1/conversations/%s/turns", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tutor: create request: %w", err)
	}
	c.authorize(req)

	var result struct {
		Turns []TurnResult `json:"turns"`
	}
	if err := c.do(req, "list turns", &result); err != nil {
		return nil, err
	}
	return result.Turns, nil
}

// FinishScenario posts the final star rating and returns any granted reward.
func (c *HTTPClient) FinishScenario(ctx context.Context, scenarioID string, stars int) (*FinishResult, error) {
	if scenarioID == "" {
		return nil, errors.New("tutor: scenarioID must not be empty")
	}

	payload, err := json.Marshal(map[string]any{
		"scenario_id": scenarioID,
		"stars":       stars,
	})
	if err != nil {
		return nil, fmt.Errorf("tutor: marshal finish payload: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/game/finish_scenario"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tutor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var result FinishResult
	if err := c.do(req, "finish scenario", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes req and decodes a JSON response into out. Network errors and
// non-2xx statuses become [TransportError] values.
func (c *HTTPClient) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(msg))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func filenameFor(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return "turn.webm"
	case "audio/ogg":
		return "turn.ogg"
	case "audio/mpeg":
		return "turn.mp3"
	default:
		return "turn.wav"
	}
}
