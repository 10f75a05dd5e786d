// Package http exposes the ordering assistant over a JSON API: inbound
// messages, operator signals and session maintenance.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/balcao"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the conversation core the server fronts.
type Engine interface {
	ProcessMessage(ctx context.Context, phone, text string) (*balcao.Reply, error)
	Signal(ctx context.Context, phone string, trigger domain.Trigger) (*balcao.Reply, error)
	Sessions() *session.Manager
}

// Server holds the HTTP surface over the Engine.
type Server struct {
	engine Engine
}

// NewHandler builds the router for the engine.
func NewHandler(engine Engine) http.Handler {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/messages", s.postMessage)
	r.Post("/signals", s.postSignal)
	r.Get("/sessions/{phone}", s.getSession)
	r.Patch("/sessions/{phone}/context", s.patchSessionContext)
	r.Delete("/sessions/{phone}", s.deleteSession)
	r.Get("/stats", s.getStats)
	r.Get("/health", s.getHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type messageRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type replyResponse struct {
	Reply      string  `json:"reply"`
	State      string  `json:"state"`
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// postMessage handles one inbound chat message.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}

	reply, err := s.engine.ProcessMessage(r.Context(), body.Phone, body.Text)
	if err != nil {
		// The customer-facing apology still went out; surface the
		// storage failure to the caller as well.
		writeJSON(w, http.StatusServiceUnavailable, replyResponse{
			Reply: reply.Text,
			State: string(reply.State),
		})
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{
		Reply:      reply.Text,
		State:      string(reply.State),
		Intent:     string(reply.Intent),
		Confidence: reply.Confidence,
	})
}

type signalRequest struct {
	Phone   string `json:"phone"`
	Trigger string `json:"trigger"`
}

// postSignal applies an operator trigger, such as PAYMENT_VERIFIED.
func (s *Server) postSignal(w http.ResponseWriter, r *http.Request) {
	var body signalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Phone == "" || body.Trigger == "" {
		http.Error(w, "phone and trigger are required", http.StatusBadRequest)
		return
	}

	reply, err := s.engine.Signal(r.Context(), body.Phone, domain.Trigger(body.Trigger))
	if err != nil {
		if errors.Is(err, domain.ErrNoTransition) {
			http.Error(w, fmt.Sprintf("Signal rejected: %v", err), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("Signal error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply.Text, State: string(reply.State)})
}

type sessionResponse struct {
	Phone        string         `json:"phone"`
	State        string         `json:"state"`
	CustomerID   string         `json:"customer_id,omitempty"`
	LastActivity string         `json:"last_activity"`
	Context      domain.Context `json:"context"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	sess, err := s.engine.Sessions().Peek(r.Context(), phone)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Lookup error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// contextPatch is the set of context fields operators may adjust.
// Decoding goes through mapstructure so partial, loosely typed JSON
// bodies map cleanly onto the typed patch.
type contextPatch struct {
	CustomerName *string `mapstructure:"customer_name"`
	PaymentRef   *string `mapstructure:"payment_ref"`
	OrderID      *string `mapstructure:"order_id"`
}

func (s *Server) patchSessionContext(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var patch contextPatch
	if err := mapstructure.Decode(raw, &patch); err != nil {
		http.Error(w, fmt.Sprintf("Invalid patch: %v", err), http.StatusBadRequest)
		return
	}

	sess, err := s.engine.Sessions().Mutate(r.Context(), phone, func(_ context.Context, sess *domain.ConversationSession) error {
		if patch.CustomerName != nil {
			sess.Context.CustomerName = *patch.CustomerName
		}
		if patch.PaymentRef != nil {
			sess.Context.PaymentRef = *patch.PaymentRef
		}
		if patch.OrderID != nil {
			sess.Context.OrderID = *patch.OrderID
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Patch error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	if err := s.engine.Sessions().Delete(r.Context(), phone); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	TotalSessions   int            `json:"total_sessions"`
	SessionsByState map[string]int `json:"sessions_by_state"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Sessions().GetStats(r.Context())
	resp := statsResponse{
		TotalSessions:   stats.TotalSessions,
		SessionsByState: make(map[string]int, len(stats.SessionsByState)),
	}
	for state, n := range stats.SessionsByState {
		resp.SessionsByState[string(state)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toSessionResponse(sess *domain.ConversationSession) sessionResponse {
	return sessionResponse{
		Phone:        sess.Phone,
		State:        string(sess.State),
		CustomerID:   sess.CustomerID,
		LastActivity: sess.LastActivity.Format(time.RFC3339),
		Context:      sess.Context,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("Response encode error: %v\n", err)
	}
}
