// Package http exposes a read-only inspection API over a running flow:
// health, Prometheus metrics, recorded trails, the flow graph and a
// server-sent event stream of finished nodes.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/aretw0/switchboard/pkg/observability"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
)

// Server serves the inspection endpoints.
type Server struct {
	Flow     *flow.Definition
	Trails   ports.TrailStore
	Gatherer prometheus.Gatherer
	Streams  *StreamManager
	Version  string
}

// NewHandler creates the HTTP handler. A nil gatherer disables /metrics.
// Requests are checked against the embedded OpenAPI document.
func NewHandler(s *Server) http.Handler {
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	router, err := apiRouter()
	if err != nil {
		// The document is embedded at build time; api tests keep it valid.
		panic(fmt.Sprintf("inspection api: %v", err))
	}
	r := chi.NewRouter()
	r.Use(validateRequests(router))

	r.Get("/health", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/info", s.GetInfo)
	if s.Gatherer != nil {
		r.Handle("/metrics", observability.Handler(s.Gatherer))
	}
	r.Get("/flow", s.GetFlow)
	r.Get("/flow/graph", s.GetGraph)
	r.Get("/sessions", s.ListSessions)
	r.Get("/sessions/{id}/trail", s.GetTrail)
	r.Get("/sessions/{id}/events", s.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"app":     "switchboard",
		"version": strings.TrimSpace(s.Version),
		"entry":   s.Flow.Entry,
	})
}

// FlowSummary is the JSON view of a loaded flow.
type FlowSummary struct {
	Entry string   `json:"entry"`
	Nodes []string `json:"nodes"`
	Rules []string `json:"rules"`
}

// GetFlow handles the GET /flow request.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	summary := FlowSummary{Entry: s.Flow.Entry, Nodes: []string{}, Rules: []string{}}
	for _, n := range s.Flow.Nodes {
		summary.Nodes = append(summary.Nodes, n.Name)
	}
	for _, rule := range s.Flow.Rules {
		summary.Rules = append(summary.Rules, describeRule(rule))
	}
	writeJSON(w, summary)
}

func describeRule(r flow.RuleDef) string {
	on := r.On
	if r.Input != nil {
		on = fmt.Sprintf("%s input=%q", on, *r.Input)
	}
	var action string
	switch {
	case r.Jump != "":
		action = "jump " + r.Jump
	case r.JumpExpr != "":
		action = "jump_expr " + r.JumpExpr
	case r.JumpAfterEval != "":
		action = "jump_after_eval " + r.JumpAfterEval
	case r.Execute != "":
		action = "execute " + r.Execute
	case r.Hangup != "":
		action = "hangup " + r.Hangup
	}
	return fmt.Sprintf("%s on %s -> %s", r.Node, on, action)
}

// GraphParams are the query parameters of GET /flow/graph.
type GraphParams struct {
	Format  *string
	Session *string
}

// GetGraph handles the GET /flow/graph request. The format query parameter
// selects mermaid (default) or dot; session overlays the recorded trail.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var params GraphParams
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format parameter: %v", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "session", r.URL.Query(), &params.Session); err != nil {
		http.Error(w, fmt.Sprintf("Invalid session parameter: %v", err), http.StatusBadRequest)
		return
	}

	format := "mermaid"
	if params.Format != nil {
		format = *params.Format
	}
	switch format {
	case "mermaid":
		var overlay *graph.Overlay
		if params.Session != nil && *params.Session != "" {
			id := *params.Session
			trail, err := s.Trails.Trail(r.Context(), id)
			if err != nil {
				http.Error(w, fmt.Sprintf("Trail error: %v", err), http.StatusInternalServerError)
				slog.Error("Trail lookup failed", "session_id", id, "error", err)
				return
			}
			overlay = &graph.Overlay{}
			for _, v := range trail {
				overlay.VisitedNodes = append(overlay.VisitedNodes, v.Node)
			}
			if len(trail) > 0 {
				overlay.CurrentNode = trail[len(trail)-1].Node
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, graph.GenerateMermaid(s.Flow, overlay))
	case "dot":
		dot, err := graph.GenerateDOT(s.Flow)
		if err != nil {
			http.Error(w, fmt.Sprintf("Graph error: %v", err), http.StatusInternalServerError)
			slog.Error("DOT export failed", "error", err)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		fmt.Fprint(w, dot)
	default:
		http.Error(w, fmt.Sprintf("Unknown format %q", format), http.StatusBadRequest)
	}
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Trails.Sessions(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Sessions error: %v", err), http.StatusInternalServerError)
		slog.Error("Listing sessions failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	writeJSON(w, map[string][]string{"sessions": ids})
}

// bindSessionID binds the {id} path parameter.
func bindSessionID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return id, nil
}

// GetTrail handles the GET /sessions/{id}/trail request.
func (s *Server) GetTrail(w http.ResponseWriter, r *http.Request) {
	id, err := bindSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trail, err := s.Trails.Trail(r.Context(), id)
	if err != nil {
		http.Error(w, fmt.Sprintf("Trail error: %v", err), http.StatusInternalServerError)
		slog.Error("Trail lookup failed", "session_id", id, "error", err)
		return
	}
	if len(trail) == 0 {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, trail)
}

// StreamManager fans finished-node visits out to SSE clients per session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- domain.Visit]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- domain.Visit]struct{}),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (<-chan domain.Visit, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.Visit, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- domain.Visit]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, visit domain.Visit) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- visit:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping visit", "session_id", sessionID, "node", visit.Node)
		}
	}
}

// NodeFinished lets the manager be registered as a controller observer.
func (sm *StreamManager) NodeFinished(ctx context.Context, sessionID string, n *node.Node, d time.Duration) {
	sm.Broadcast(sessionID, domain.Visit{
		Node:     n.Name(),
		State:    n.State().String(),
		Input:    n.Input(),
		Attempts: n.AttemptsUsed(),
		At:       time.Now().UTC(),
		Duration: d,
	})
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID, err := bindSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	slog.Info("SSE: Subscribing to session visits", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case visit, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(visit)
			if err != nil {
				slog.Error("SSE: visit encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: visit\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
