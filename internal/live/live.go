// Package live is the WebSocket gateway for running a scenario session
// server-side. A client connects to /api/v1/live/{conversationId}, streams
// audio submissions up, and receives turn results, score updates and play
// prompts as JSON messages.
//
// The gateway hosts one [session.Controller] per connection. Patience decay
// runs while the socket is open and stops when it closes.
package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"

	"github.com/griotlabs/griot/internal/observe"
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/session"
	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
)

// writeTimeout bounds a single outbound message write.
const writeTimeout = 10 * time.Second

// ClientFactory builds a [tutor.Client] bound to one authenticated user.
// The gateway calls it once per connection.
type ClientFactory func(userID string) tutor.Client

// UserIDFunc extracts the authenticated user ID from a request context.
type UserIDFunc func(ctx context.Context) string

// Gateway upgrades live session requests to WebSocket connections.
type Gateway struct {
	conversations store.ConversationStore
	scenarios     *scenario.Library
	clients       ClientFactory
	userID        UserIDFunc
	metrics       *observe.Metrics
}

// NewGateway creates a Gateway. All arguments are required.
func NewGateway(conversations store.ConversationStore, scenarios *scenario.Library, clients ClientFactory, userID UserIDFunc, metrics *observe.Metrics) *Gateway {
	return &Gateway{
		conversations: conversations,
		scenarios:     scenarios,
		clients:       clients,
		userID:        userID,
		metrics:       metrics,
	}
}

// clientMessage is one inbound WebSocket frame.
type clientMessage struct {
	// Type is one of "audio", "recording", "finish".
	Type string `json:"type"`

	// Audio is the base64-encoded clip for "audio" messages.
	Audio []byte `json:"audio,omitempty"`

	// MIMEType describes the clip encoding, e.g. "audio/webm".
	MIMEType string `json:"mime_type,omitempty"`

	// Active toggles the recording drain rate for "recording" messages.
	Active bool `json:"active,omitempty"`
}

// scoreMessage is the wire form of a [session.ScoreState].
type scoreMessage struct {
	Patience      float64  `json:"patience"`
	CurrentPrice  *int     `json:"current_price,omitempty"`
	LastSentiment *float64 `json:"last_sentiment,omitempty"`
	Status        string   `json:"status"`
	Stars         int      `json:"stars,omitempty"`
}

// serverMessage is one outbound WebSocket frame.
type serverMessage struct {
	// Type is one of "turn", "score", "status", "play_audio", "finished",
	// "error".
	Type string `json:"type"`

	AudioURL string              `json:"audio_url,omitempty"`
	Score    *scoreMessage       `json:"score,omitempty"`
	Turn     *tutor.TurnResult   `json:"turn,omitempty"`
	Result   *tutor.FinishResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Register adds the live session route to r. The router must already apply
// the caller's auth middleware.
func (g *Gateway) Register(r *mux.Router) {
	r.HandleFunc("/live/{conversationId}", g.handleSession).Methods(http.MethodGet)
}

func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := g.userID(ctx)
	conversationID := mux.Vars(r)["conversationId"]

	conv, err := g.conversations.Conversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
		} else {
			slog.Error("load conversation", "conversation_id", conversationID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	if conv.UserID != uid {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	scn := g.scenarios.ByID(conv.ScenarioID)
	if scn == nil {
		http.Error(w, "scenario no longer available", http.StatusGone)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session aborted")

	g.metrics.ActiveLiveSessions.Add(ctx, 1)
	defer g.metrics.ActiveLiveSessions.Add(ctx, -1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := session.NewController(g.clients(uid))
	if err := ctrl.Restore(ctx, conversationID, scn); err != nil {
		slog.Error("restore session", "conversation_id", conversationID, "err", err)
		conn.Close(websocket.StatusInternalError, "restore failed")
		return
	}
	defer ctrl.Stop()

	// Single writer goroutine; controller events and command replies both
	// funnel through out.
	out := make(chan serverMessage, 32)
	go g.writeLoop(ctx, cancel, conn, out)
	go pumpEvents(ctx, ctrl.Events(), out)

	g.readLoop(ctx, conn, ctrl, out)
	conn.Close(websocket.StatusNormalClosure, "session closed")
}

// readLoop processes inbound frames until the socket or context closes.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, out chan<- serverMessage) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}

		switch msg.Type {
		case "audio":
			turn, err := ctrl.Submit(ctx, msg.Audio, msg.MIMEType)
			if err != nil {
				send(ctx, out, serverMessage{Type: "error", Error: submitErrorCode(err)})
				continue
			}
			send(ctx, out, serverMessage{Type: "turn", Turn: turn})

		case "recording":
			ctrl.SetRecording(msg.Active)

		case "finish":
			result, err := ctrl.Finish(ctx)
			if err != nil {
				send(ctx, out, serverMessage{Type: "error", Error: "finish_failed"})
				continue
			}
			if result == nil {
				send(ctx, out, serverMessage{Type: "error", Error: "not_won"})
				continue
			}
			send(ctx, out, serverMessage{Type: "finished", Result: result})

		default:
			send(ctx, out, serverMessage{Type: "error", Error: "unknown_message_type"})
		}
	}
}

// writeLoop is the only goroutine writing to conn.
func (g *Gateway) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan serverMessage) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, msg)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

// pumpEvents translates controller events into outbound frames.
func pumpEvents(ctx context.Context, events <-chan session.Event, out chan<- serverMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			msg := serverMessage{Score: scoreFromState(ev.State)}
			switch ev.Kind {
			case session.EventPlayAudio:
				msg.Type = "play_audio"
				msg.AudioURL = ev.AudioURL
			case session.EventScore:
				msg.Type = "score"
			case session.EventStatus:
				msg.Type = "status"
			default:
				continue
			}
			send(ctx, out, msg)
		}
	}
}

func send(ctx context.Context, out chan<- serverMessage, msg serverMessage) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

func scoreFromState(st session.ScoreState) *scoreMessage {
	return &scoreMessage{
		Patience:      st.Patience,
		CurrentPrice:  st.CurrentPrice,
		LastSentiment: st.LastSentiment,
		Status:        string(st.Status),
		Stars:         st.Stars,
	}
}

// submitErrorCode maps controller submission errors to wire codes.
func submitErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInFlight):
		return "turn_in_flight"
	case errors.Is(err, session.ErrNotActive):
		return "session_not_active"
	case errors.Is(err, session.ErrStaleResponse):
		return "stale_response"
	default:
		return "turn_failed"
	}
}
