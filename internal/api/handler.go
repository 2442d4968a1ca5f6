package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/mnemo/internal/extraction"
	"github.com/nidhogg/mnemo/internal/graphquery"
	"github.com/nidhogg/mnemo/internal/relation"
	"go.uber.org/zap"
)

// GraphService is the read path exposed over HTTP.
type GraphService interface {
	Related(ctx context.Context, name string) ([]relation.Related, error)
	Neighborhood(ctx context.Context, name string, maxHops int) ([]relation.NeighborhoodEntry, error)
	Search(ctx context.Context, query string, limit int) ([]graphquery.EntityMatch, error)
}

// JobRunner triggers one batch extraction run.
type JobRunner interface {
	Run(ctx context.Context) (*extraction.Result, error)
}

// LogIngester accepts raw session logs.
type LogIngester interface {
	InsertLog(ctx context.Context, source, summary string) (string, error)
}

// ExchangeNotifier receives live conversational exchanges. The call must not
// block on extraction work.
type ExchangeNotifier interface {
	OnExchange(userText, assistantText string)
}

// Handler holds dependencies for HTTP handlers. Any dependency may be nil
// when its backend is unconfigured; the route then answers 503.
type Handler struct {
	graph  GraphService
	job    JobRunner
	logs   LogIngester
	live   ExchangeNotifier
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(graph GraphService, job JobRunner, logs LogIngester, live ExchangeNotifier, logger *zap.Logger) *Handler {
	return &Handler{graph: graph, job: job, logs: logs, live: live, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/logs", h.ingestLog)
		r.Post("/exchange", h.notifyExchange)
		r.Post("/extraction/run", h.runExtraction)
		r.Get("/graph/related/{name}", h.related)
		r.Get("/graph/neighborhood/{name}", h.neighborhood)
		r.Get("/graph/search", h.searchEntities)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"backends": map[string]bool{
			"graph":      h.graph != nil,
			"extraction": h.job != nil,
			"logs":       h.logs != nil,
			"live":       h.live != nil,
		},
	})
}

type ingestRequest struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

func (h *Handler) ingestLog(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		respondError(w, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" || req.Summary == "" {
		respondError(w, http.StatusBadRequest, "source and summary are required")
		return
	}

	id, err := h.logs.InsertLog(r.Context(), req.Source, req.Summary)
	if err != nil {
		h.logger.Error("ingest log", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store log")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type exchangeRequest struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

func (h *Handler) notifyExchange(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		respondError(w, http.StatusServiceUnavailable, "live extraction unavailable")
		return
	}
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.live.OnExchange(req.User, req.Assistant)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) runExtraction(w http.ResponseWriter, r *http.Request) {
	if h.job == nil {
		respondError(w, http.StatusServiceUnavailable, "extraction job unavailable")
		return
	}
	result, err := h.job.Run(r.Context())
	if err != nil {
		h.logger.Error("extraction run", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "extraction run failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) related(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		respondError(w, http.StatusServiceUnavailable, "graph unavailable")
		return
	}
	name := chi.URLParam(r, "name")
	related, err := h.graph.Related(r.Context(), name)
	if err != nil {
		h.logger.Error("related query", zap.String("name", name), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "graph query failed")
		return
	}
	if related == nil {
		related = []relation.Related{}
	}
	respondJSON(w, http.StatusOK, related)
}

func (h *Handler) neighborhood(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		respondError(w, http.StatusServiceUnavailable, "graph unavailable")
		return
	}
	name := chi.URLParam(r, "name")
	hops := 2
	if v := r.URL.Query().Get("hops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "hops must be an integer")
			return
		}
		hops = n
	}

	entries, err := h.graph.Neighborhood(r.Context(), name, hops)
	if err != nil {
		h.logger.Error("neighborhood query", zap.String("name", name), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "graph query failed")
		return
	}
	if entries == nil {
		entries = []relation.NeighborhoodEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) searchEntities(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		respondError(w, http.StatusServiceUnavailable, "graph unavailable")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	matches, err := h.graph.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("entity search", zap.String("q", query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if matches == nil {
		matches = []graphquery.EntityMatch{}
	}
	respondJSON(w, http.StatusOK, matches)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
