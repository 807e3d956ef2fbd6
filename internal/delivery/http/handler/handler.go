package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/delivery/http/response"
	"github.com/user/stay-harvester/internal/usecase"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RunStarter launches a background harvest.
type RunStarter interface {
	Start(source string) error
}

type Handler struct {
	listings usecase.ListingQuery
	runs     RunStarter
	checks   map[string]Pinger
	logger   *zap.Logger
}

func NewHandler(listings usecase.ListingQuery, runs RunStarter, checks map[string]Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		listings: listings,
		runs:     runs,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.listings.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load run history", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.RunsResponse{Runs: runs})
}

// HandleStartRun starts a harvest in the background. Its outcome shows up
// in /api/runs once it finishes.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	err := h.runs.Start(usecase.TriggerAPI)
	switch {
	case err == nil:
		h.logger.Info("Harvest started on request", zap.String("request_id", middleware.GetReqID(r.Context())))
		h.writeJSON(w, http.StatusAccepted, response.StartRunResponse{Status: "started"})
	case errors.Is(err, usecase.ErrRunInProgress):
		h.writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.Canceled):
		h.writeJSONError(w, "server is shutting down", http.StatusServiceUnavailable)
	default:
		h.logger.Error("Failed to start harvest", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	if listingID == "" {
		h.writeJSONError(w, "listing id is required", http.StatusBadRequest)
		return
	}

	view, err := h.listings.GetListing(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, usecase.ErrListingNotFound) {
			h.writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get listing", zap.String("listing_id", listingID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
