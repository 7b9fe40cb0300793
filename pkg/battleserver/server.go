// Package battleserver exposes battles over HTTP.
//
// Routes:
//
//	GET  /healthz         liveness
//	GET  /graph           node and edge table
//	POST /battles         run a battle to completion, respond with its Result
//	GET  /battles/stream  websocket; one event per executed node, then the Result
package battleserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/haivivi/emailbattle/pkg/battle"
)

// StartRequest selects what to run. Zero values select defaults.
type StartRequest struct {
	Script    string `json:"script,omitempty"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

// Battle is a prepared battle: a fresh engine and the state it will own.
type Battle struct {
	Engine     *battle.Engine
	State      *battle.State
	Script     string
	Evaluator  battle.Persona
	Respondent battle.Persona
}

// Starter prepares one battle per request.
type Starter interface {
	Start(req StartRequest) (*Battle, error)
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(req StartRequest) (*Battle, error)

func (f StarterFunc) Start(req StartRequest) (*Battle, error) { return f(req) }

// Config configures a Server.
type Config struct {
	Starter Starter

	// AllowedOrigins is passed to CORS and the websocket origin check.
	// Empty allows every origin.
	AllowedOrigins []string

	Logger *slog.Logger
	Clock  func() time.Time
}

// Server serves battles.
type Server struct {
	starter  Starter
	log      *slog.Logger
	clock    func() time.Time
	router   *http.ServeMux
	handler  http.Handler
	upgrader websocket.Upgrader
}

// Event is one websocket message.
type Event struct {
	Type   EventType       `json:"type"`
	Node   battle.NodeName `json:"node,omitempty"`
	Update *battle.Update  `json:"update,omitempty"`
	State  *battle.State   `json:"state,omitempty"`
	Result *battle.Result  `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type EventType string

const (
	EventStep   EventType = "step"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

func New(cfg Config) (*Server, error) {
	if cfg.Starter == nil {
		return nil, errors.New("battleserver: starter is required")
	}
	s := &Server{
		starter: cfg.Starter,
		log:     cfg.Logger,
		clock:   cfg.Clock,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(cfg.AllowedOrigins) == 0 || c.OriginAllowed(r)
		},
	}

	s.router = http.NewServeMux()
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /graph", s.handleGraph)
	s.router.HandleFunc("POST /battles", s.handleRun)
	s.router.HandleFunc("GET /battles/stream", s.handleStream)
	s.handler = c.Handler(s.router)
	return s, nil
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve serves on l until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Graph is the /graph response body.
type Graph struct {
	Start battle.NodeName   `json:"start" yaml:"start" msgpack:"start"`
	Nodes []battle.NodeName `json:"nodes" yaml:"nodes" msgpack:"nodes"`
	Edges []battle.Edge     `json:"edges" yaml:"edges" msgpack:"edges"`
}

// NewGraph describes the battle graph.
func NewGraph() Graph {
	return Graph{
		Start: battle.StartNode,
		Nodes: battle.Nodes,
		Edges: battle.Edges(),
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewGraph())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	b, err := s.starter.Start(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	started := s.clock()
	st, err := b.Engine.Run(r.Context(), b.State)
	res := s.result(b, st, started)
	if err != nil {
		s.log.Warn("battle failed", "id", res.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseStartQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b, err := s.starter.Start(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing; reading only notices it going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("websocket closed", "error", err)
				}
				return
			}
		}
	}()

	started := s.clock()
	for step, err := range b.Engine.Stream(ctx, b.State) {
		ev := Event{Type: EventStep, Node: step.Node, Update: &step.Update, State: step.State}
		if err != nil {
			ev.Type = EventError
			ev.Error = err.Error()
		}
		if werr := conn.WriteJSON(ev); werr != nil {
			s.log.Debug("websocket write failed", "error", werr)
			return
		}
	}
	if err := conn.WriteJSON(Event{Type: EventResult, Result: s.result(b, b.State, started)}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *Server) result(b *Battle, st *battle.State, started time.Time) *battle.Result {
	res := battle.NewResult(st, b.Evaluator, b.Respondent, started, s.clock())
	res.Script = b.Script
	return res
}

func parseStartQuery(r *http.Request) (StartRequest, error) {
	q := r.URL.Query()
	req := StartRequest{Script: q.Get("script")}
	if v := q.Get("max_rounds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid max_rounds %q", v)
		}
		req.MaxRounds = n
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
