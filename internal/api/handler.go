package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stock-hub/config"
	"stock-hub/internal/app"
	"stock-hub/jobs"
	"stock-hub/marketdata"
	"stock-hub/services"

	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleIndex answers the liveness probe.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]string{"status": "ok"})
}

// HandleStatus reports cache, queue, storage and circuit breaker health.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Status(r.Context()))
}

// HandleGetStock returns the latest price, previous close and daily history
// for a symbol.
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	stock, err := h.app.GetStock(r.Context(), symbol)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, stock)
}

// HandleGetTimeseries returns the daily series restricted to a symbolic
// range given by the "range" query parameter.
func (h *Handler) HandleGetTimeseries(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	rng, err := marketdata.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		h.jsonError(w, fmt.Sprintf("invalid range, valid values: %v", marketdata.ValidRanges()), http.StatusBadRequest)
		return
	}

	series, err := h.app.GetTimeseries(r.Context(), symbol, rng)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"symbol": symbol,
		"range":  rng,
		"points": series,
	})
}

// HandleGetIntraday returns the session-clamped intraday series for the most
// recent trading day with data.
func (h *Handler) HandleGetIntraday(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	series, err := h.app.GetIntraday(r.Context(), symbol)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, series)
}

// HandleGetOverview returns descriptive company metrics for a symbol.
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	stats, err := h.app.GetOverview(r.Context(), symbol)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, stats)
}

// HandleGetNews returns merged, de-duplicated news articles.
func (h *Handler) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		h.jsonError(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := h.ParseLimitParam(r, app.DefaultNewsLimit)

	articles, err := h.app.GetNews(r.Context(), symbol, limit)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"symbol":      symbol,
		"articles":    articles,
		"refreshedAt": time.Now().UTC(),
	})
}

// HandleGetPrediction serves a forecast. A cached or inline result answers
// with 200; a queued job answers 202 with the job handle.
func (h *Handler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	result, handle, err := h.app.GetPrediction(r.Context(), symbol)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	if handle != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(handle)
		return
	}

	h.jsonResponse(w, result)
}

// HandleGetJob returns the state of a previously enqueued prediction job.
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	job, err := h.app.JobStatus(r.Context(), jobID)
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	h.jsonResponse(w, job)
}

// HandlePrecompute enqueues prediction jobs for a comma-separated symbol
// list. Gated by the admin API key.
func (h *Handler) HandlePrecompute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbols := splitSymbols(query.Get("symbols"))
	if len(symbols) == 0 {
		h.jsonError(w, "symbols query parameter is required", http.StatusBadRequest)
		return
	}

	handles, err := h.app.Precompute(r.Context(), symbols, query.Get("api_key"))
	if err != nil {
		h.upstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"enqueued": len(handles),
		"jobs":     handles,
	})
}

// Helper functions

// symbolParam extracts and validates the {symbol} path parameter. On failure
// it writes the error response and returns false.
func (h *Handler) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		h.jsonError(w, "symbol is required", http.StatusBadRequest)
		return "", false
	}
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// upstreamError maps orchestrator errors onto HTTP status codes.
func (h *Handler) upstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRateLimited):
		h.jsonError(w, "upstream rate limit exceeded, try again shortly", http.StatusTooManyRequests)
	case errors.Is(err, services.ErrInvalidPayload):
		h.jsonError(w, "symbol not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNoUsableData), errors.Is(err, services.ErrUpstreamUnavailable):
		h.jsonError(w, "market data temporarily unavailable", http.StatusBadGateway)
	case errors.Is(err, services.ErrNotConfigured):
		h.jsonError(w, "no market data provider configured", http.StatusServiceUnavailable)
	case errors.Is(err, jobs.ErrQueueUnavailable):
		h.jsonError(w, "job queue unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, jobs.ErrJobNotFound):
		h.jsonError(w, "job not found", http.StatusNotFound)
	case errors.Is(err, app.ErrUnauthorized):
		h.jsonError(w, "invalid api key", http.StatusUnauthorized)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func splitSymbols(raw string) []string {
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
