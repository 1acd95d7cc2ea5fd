// Package server is the griot REST and WebSocket surface. It mounts the
// versioned API under /api/v1, health probes at /healthz and /readyz, the
// Prometheus scrape endpoint at /metrics, and synthesised tutor audio under
// /audio/.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/griotlabs/griot/internal/health"
	"github.com/griotlabs/griot/internal/live"
	"github.com/griotlabs/griot/internal/observe"
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
	"github.com/griotlabs/griot/internal/wisdom"
)

// Server wires the HTTP handlers over the turn pipeline and storage.
type Server struct {
	auth      *Auth
	pipeline  *Pipeline
	store     store.Store
	scenarios *scenario.Library
	proverbs  *wisdom.Library
	metrics   *observe.Metrics
	health    *health.Handler
	audioDir  string
}

// New assembles a Server. The pipeline's store, scenario and proverb
// libraries are reused for the read endpoints.
func New(auth *Auth, pipeline *Pipeline, checker *health.Handler) *Server {
	return &Server{
		auth:      auth,
		pipeline:  pipeline,
		store:     pipeline.Store,
		scenarios: pipeline.Scenarios,
		proverbs:  pipeline.Proverbs,
		metrics:   pipeline.Metrics,
		health:    checker,
		audioDir:  pipeline.AudioDir,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(observe.Middleware(s.metrics))

	s.health.Register(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/audio/").Handler(
		http.StripPrefix("/audio/", http.FileServer(http.Dir(s.audioDir))),
	).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", s.auth.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.auth.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(mux.MiddlewareFunc(s.auth.Middleware))

	authed.HandleFunc("/scenarios", s.handleListScenarios).Methods(http.MethodGet)
	authed.HandleFunc("/scenarios/{id}", s.handleGetScenario).Methods(http.MethodGet)

	authed.HandleFunc("/conversations/start", s.handleCreateConversation).Methods(http.MethodPost)
	authed.HandleFunc("/conversations/history", s.handleHistory).Methods(http.MethodGet)
	authed.HandleFunc("/conversations/{id}/turns", s.handleSubmitTurn).Methods(http.MethodPost)
	authed.HandleFunc("/conversations/{id}/turns", s.handleListTurns).Methods(http.MethodGet)

	authed.HandleFunc("/game/finish_scenario", s.handleFinishScenario).Methods(http.MethodPost)
	authed.HandleFunc("/game/progress", s.handleProgress).Methods(http.MethodGet)
	authed.HandleFunc("/game/deck", s.handleDeck).Methods(http.MethodGet)

	authed.HandleFunc("/vocabulary", s.handleWords).Methods(http.MethodGet)
	authed.HandleFunc("/vocabulary", s.handleSaveWord).Methods(http.MethodPost)
	authed.HandleFunc("/vocabulary", s.handleDeleteWord).Methods(http.MethodDelete)

	gateway := live.NewGateway(
		s.store,
		s.scenarios,
		func(uid string) tutor.Client { return &pipelineClient{pipeline: s.pipeline, userID: uid} },
		func(ctx context.Context) string { return userID(ctx) },
		s.metrics,
	)
	gateway.Register(authed)

	return r
}
