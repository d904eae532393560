package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/api/middleware"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
	"github.com/dvloznov/coffee-dashboard/internal/loader"
	"github.com/dvloznov/coffee-dashboard/internal/logger"
)

// DashboardHandler serves the JSON API over rendered pages.
type DashboardHandler struct {
	renderer *dashboard.Renderer
}

// NewDashboardHandler creates a new dashboard API handler.
func NewDashboardHandler(renderer *dashboard.Renderer) *DashboardHandler {
	return &DashboardHandler{renderer: renderer}
}

// ListPages handles GET /api/pages
func (h *DashboardHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages := dashboard.Pages()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pages": pages,
		"count": len(pages),
	})
}

// GetPage handles GET /api/pages/{slug}
func (h *DashboardHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)
	slug := mux.Vars(r)["slug"]

	view := dashboard.ParseViewState(slug, r.URL.Query(), sess.DefaultSelection())
	out, err := h.renderer.Render(ctx, sess, view)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("page", slug).Msg("Page render failed")
		middleware.WriteError(w, statusFor(err), messageFor(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, out)
}

// Filters handles GET /api/filters
func (h *DashboardHandler) Filters(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	sel := sess.DefaultSelection()

	resp := map[string]interface{}{
		"locations":  sel.Locations,
		"categories": categories(sess),
	}
	if sel.Start.IsValid() {
		resp["start"] = sel.Start.String()
	}
	if sel.End.IsValid() {
		resp["end"] = sel.End.String()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// SessionError answers API requests when the data sources cannot be loaded.
func (h *DashboardHandler) SessionError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to start session")
	middleware.WriteError(w, statusFor(err), messageFor(err))
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var pageErr *dashboard.PageError
	var loadErr *loader.LoadError
	switch {
	case errors.Is(err, dashboard.ErrPageNotFound), errors.Is(err, dashboard.ErrPanelNotFound):
		return http.StatusNotFound
	case errors.As(err, &pageErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &loadErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// messageFor strips pipeline step prefixes from user-facing messages.
func messageFor(err error) string {
	var pageErr *dashboard.PageError
	var loadErr *loader.LoadError
	switch {
	case errors.As(err, &pageErr):
		return pageErr.Error()
	case errors.As(err, &loadErr):
		return loadErr.Error()
	case errors.Is(err, dashboard.ErrPageNotFound):
		return "Page not found"
	case errors.Is(err, dashboard.ErrPanelNotFound):
		return "Panel not found"
	}
	return "Internal server error"
}

// categories lists product categories from both sources, transactions first.
func categories(sess *dashboard.Session) []string {
	out := sess.Transactions.Values(analytics.ColProductCategory)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range sess.Enriched.Values(analytics.ColCategory) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
