package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevib/family-events/internal/aggregate"
	"github.com/stevib/family-events/internal/event"
)

const dateParamLayout = "2006-01-02"

// Handler holds all HTTP handler dependencies. The engine is reached
// through a getter so a config hot-reload can swap it under a live server.
type Handler struct {
	engine func() *aggregate.Engine
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(engine func() *aggregate.Engine) http.Handler {
	h := &Handler{engine: engine, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /api/events/family", h.familyEvents)
	h.mux.HandleFunc("GET /api/locations", h.locations)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// GET /api/events/family — aggregate events for one location.
func (h *Handler) familyEvents(w http.ResponseWriter, r *http.Request) {
	locName := r.URL.Query().Get("location")
	if locName == "" {
		writeError(w, http.StatusBadRequest, "location parameter is required")
		return
	}

	window, err := parseWindow(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.engine().FamilyEvents(r.Context(), locName, window)
	if !res.Success {
		// Unknown location is the only request-level failure the engine
		// produces; source failures come back degraded with Success set.
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/locations — the locations the engine serves.
func (h *Handler) locations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": h.engine().Locations(),
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseWindow builds a collection window from optional date parameters.
// Both dates must come as YYYY-MM-DD; the end date is inclusive.
func parseWindow(startStr, endStr string) (event.DateRange, error) {
	if startStr == "" && endStr == "" {
		return event.DateRange{}, nil
	}
	if startStr == "" || endStr == "" {
		return event.DateRange{}, errors.New("start_date and end_date must be provided together")
	}

	start, err := time.Parse(dateParamLayout, startStr)
	if err != nil {
		return event.DateRange{}, fmt.Errorf("invalid start_date %q: want YYYY-MM-DD", startStr)
	}
	end, err := time.Parse(dateParamLayout, endStr)
	if err != nil {
		return event.DateRange{}, fmt.Errorf("invalid end_date %q: want YYYY-MM-DD", endStr)
	}
	if end.Before(start) {
		return event.DateRange{}, errors.New("end_date precedes start_date")
	}

	return event.DateRange{
		Start: start.UTC(),
		End:   end.UTC().Add(24*time.Hour - time.Second),
	}, nil
}
