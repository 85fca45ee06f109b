// Package api exposes the materials store over HTTP/JSON. It is the
// daemon-side counterpart of the remotestore client: find, save,
// history and rate, all gated behind a shared bearer token and scoped
// to the owner named in the request.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/medfocus/medgenie/internal/material"
	"github.com/medfocus/medgenie/internal/remotestore"
)

// ownerHeader names the account a request operates on. Token auth
// itself is out of scope; the daemon checks the shared token and
// trusts the owner header.
const ownerHeader = "X-Medgenie-Owner"

// Config holds configuration for the API server.
type Config struct {
	// ListenAddr is the address to listen on.
	ListenAddr string

	// Token is the shared bearer token. Required: the store is only
	// reachable for authenticated callers.
	Token string
}

// DefaultConfig returns a Config with sensible defaults. The token
// must still be supplied by the operator.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:8590",
	}
}

// Server serves the materials HTTP API.
type Server struct {
	cfg   Config
	store *remotestore.SQLStore
	log   *slog.Logger

	httpServer *http.Server
}

// NewServer creates an API server over the given store.
func NewServer(cfg Config, store *remotestore.SQLStore,
	log *slog.Logger) *Server {

	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:   cfg,
		store: store,
		log:   log.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Route("/v1/materials", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/find", s.handleFind)
		r.Post("/", s.handleSave)
		r.Get("/history", s.handleHistory)
		r.Post("/{recordID}/rate", s.handleRate)
	})

	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("Materials API listening", "addr", s.cfg.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requireAuth checks the shared bearer token and the owner header.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {

		if s.cfg.Token == "" {
			http.Error(w, "store not configured for access",
				http.StatusServiceUnavailable)
			return
		}

		auth := r.Header.Get("Authorization")
		want := "Bearer " + s.cfg.Token
		if subtle.ConstantTimeCompare(
			[]byte(auth), []byte(want),
		) != 1 {

			http.Error(w, "unauthorized",
				http.StatusUnauthorized)
			return
		}

		if r.Header.Get(ownerHeader) == "" {
			http.Error(w, "missing owner header",
				http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func owner(r *http.Request) string {
	return r.Header.Get(ownerHeader)
}

// handleFind serves GET /v1/materials/find.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	yearLevel, err := strconv.Atoi(r.URL.Query().Get("yearLevel"))
	if err != nil {
		http.Error(w, "invalid yearLevel", http.StatusBadRequest)
		return
	}

	key := material.MaterialKey{
		InstitutionID: r.URL.Query().Get("institutionId"),
		SubjectName:   r.URL.Query().Get("subjectName"),
		YearLevel:     yearLevel,
	}
	if err := key.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.store.Find(r.Context(), owner(r), key)
	if err != nil {
		s.log.Error("Find failed", "error", err)
		http.Error(w, "internal error",
			http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, remotestore.NewEntryPayload(entry))
}

// handleSave serves POST /v1/materials.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req remotestore.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body",
			http.StatusBadRequest)
		return
	}

	key := material.MaterialKey{
		InstitutionID: req.InstitutionID,
		SubjectName:   req.SubjectName,
		YearLevel:     req.YearLevel,
	}
	if err := key.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Content.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	research := optionFromPtr(req.Research)
	recordID, err := s.store.Save(
		r.Context(), owner(r), key, req.InstitutionName,
		req.Content, research,
	)
	if err != nil {
		s.log.Error("Save failed", "error", err)
		http.Error(w, "internal error",
			http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, remotestore.SaveResponse{
		RecordID: recordID,
	})
}

// handleHistory serves GET /v1/materials/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit",
				http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := s.store.ListRecent(r.Context(), owner(r), limit)
	if err != nil {
		s.log.Error("History failed", "error", err)
		http.Error(w, "internal error",
			http.StatusInternalServerError)
		return
	}

	payload := make([]remotestore.HistoryItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(
			payload, remotestore.NewHistoryItemPayload(item),
		)
	}

	s.writeJSON(w, http.StatusOK, payload)
}

// handleRate serves POST /v1/materials/{recordID}/rate.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	var req remotestore.RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body",
			http.StatusBadRequest)
		return
	}

	err := s.store.Rate(r.Context(), owner(r), recordID, req.Score)
	switch {
	case errors.Is(err, remotestore.ErrRecordNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return

	case err != nil:
		s.log.Error("Rate failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func optionFromPtr(s *string) fn.Option[string] {
	if s == nil {
		return fn.None[string]()
	}

	return fn.Some(*s)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}
