package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lucasmora/trendscore/internal/config"
	"github.com/lucasmora/trendscore/internal/engine"
)

var windowDaysEnum = map[int]bool{7: true, 30: true, 90: true, 365: true}

// pinger is satisfied by cache.Cache and store.Store; kept minimal so
// Handlers doesn't need to depend on either package's full surface.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers wires the trend engine and supporting config into the HTTP
// surface.
type Handlers struct {
	engine    *engine.Engine
	countries *config.CountriesFile
	store     pinger
	cache     pinger
	log       zerolog.Logger
}

// NewHandlers builds a Handlers instance.
func NewHandlers(eng *engine.Engine, countries *config.CountriesFile, st pinger, ca pinger, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine:    eng,
		countries: countries,
		store:     st,
		cache:     ca,
		log:       log.With().Str("component", "handlers").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Details:   message,
		RequestID: RequestIDFrom(r.Context()),
	})
}

// SubmitQuery handles POST /trends/query.
func (h *Handlers) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed JSON body")
		return
	}

	params, verr := validateQuery(req, h.countries)
	if verr != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     http.StatusText(http.StatusBadRequest),
			Details:   verr.Error(),
			RequestID: RequestIDFrom(r.Context()),
		})
		return
	}

	requestID := RequestIDFrom(r.Context())
	resp, err := h.engine.Execute(r.Context(), *params, requestID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *engine.ValidationError:
		writeError(w, r, http.StatusBadRequest, e.Error())
	case *engine.DataNotFound:
		writeError(w, r, http.StatusNotFound, e.Error())
	case *engine.ProviderUnavailable:
		writeError(w, r, http.StatusServiceUnavailable, e.Error())
	case *engine.StorageError, *engine.InternalError:
		h.log.Error().Err(err).Msg("internal failure serving query")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	default:
		h.log.Error().Err(err).Msg("unclassified engine error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// validateQuery normalizes and validates a QueryRequest against the
// rules from the TrendQuery contract, returning engine.Params on
// success.
func validateQuery(req QueryRequest, countries *config.CountriesFile) (*engine.Params, *engine.ValidationError) {
	keyword := strings.TrimSpace(req.Keyword)
	if n := utf8.RuneCountInString(keyword); n < 2 || n > 60 {
		return nil, &engine.ValidationError{Field: "keyword", Message: "must be between 2 and 60 characters after trimming"}
	}

	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if countries == nil || !countries.IsSupported(country) {
		return nil, &engine.ValidationError{Field: "country", Message: "must be one of the supported country codes"}
	}

	if !windowDaysEnum[req.WindowDays] {
		return nil, &engine.ValidationError{Field: "window_days", Message: "must be one of 7, 30, 90, 365"}
	}

	if req.BaselineDays < req.WindowDays || req.BaselineDays > 1825 {
		return nil, &engine.ValidationError{Field: "baseline_days", Message: "must be >= window_days and <= 1825"}
	}
	if req.WindowDays+req.BaselineDays > 1825 {
		return nil, &engine.ValidationError{Field: "baseline_days", Message: "window_days + baseline_days must be <= 1825"}
	}

	return &engine.Params{
		Keyword:      keyword,
		Country:      country,
		WindowDays:   req.WindowDays,
		BaselineDays: req.BaselineDays,
	}, nil
}

// Countries handles GET /countries.
func (h *Handlers) Countries(w http.ResponseWriter, r *http.Request) {
	if h.countries == nil {
		writeError(w, r, http.StatusInternalServerError, "countries not configured")
		return
	}
	infos := make([]CountryInfo, len(h.countries.Countries))
	for i, c := range h.countries.Countries {
		infos[i] = CountryInfo{Code: c.Code, DisplayName: c.DisplayName}
	}
	writeJSON(w, http.StatusOK, CountriesResponse{Countries: infos})
}

// Health handles GET /health, probing the cache and store dependencies.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			checks["cache"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["cache"] = "ok"
		}
	}
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			checks["store"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["store"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

// NotFound is the router's catch-all 404 handler.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "the requested endpoint does not exist")
}
