package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/coffee-dashboard/internal/api/middleware"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
	"github.com/dvloznov/coffee-dashboard/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// PagesHandler serves the HTML dashboard and its chart images.
type PagesHandler struct {
	renderer *dashboard.Renderer
	currency string
	tmpl     *template.Template
	log      zerolog.Logger
}

type pageData struct {
	View       *dashboard.PageView
	Locations  []string
	ChartQuery template.URL
	Error      string
}

type errorData struct {
	Title   string
	Message string
}

// NewPagesHandler parses the page templates.
func NewPagesHandler(renderer *dashboard.Renderer, currency string, log zerolog.Logger) (*PagesHandler, error) {
	funcs := template.FuncMap{
		"money":   func(d decimal.Decimal) string { return charts.MoneyDecimal(d, currency) },
		"integer": func(n int) string { return charts.Integer(float64(n)) },
		"date":    formatDate,
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("NewPagesHandler: parse templates: %w", err)
	}
	return &PagesHandler{
		renderer: renderer,
		currency: currency,
		tmpl:     tmpl,
		log:      log,
	}, nil
}

// Index handles GET /
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/pages/"+dashboard.DefaultPage, http.StatusFound)
}

// ShowPage handles GET /pages/{slug}
func (h *PagesHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)
	slug := mux.Vars(r)["slug"]

	defaults := sess.DefaultSelection()
	view := dashboard.ParseViewState(slug, r.URL.Query(), defaults)

	status := http.StatusOK
	data := pageData{Locations: defaults.Locations}

	out, err := h.renderer.Render(ctx, sess, view)
	if err != nil {
		status = statusFor(err)
		if status == http.StatusNotFound {
			h.renderError(w, status, "Page not found", fmt.Sprintf("There is no dashboard page called %q.", slug))
			return
		}
		out = fallbackView(slug, view)
		data.Error = messageFor(err)
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("page", slug).Int("status", status).Msg("Page rendered with error")
	}
	data.View = out
	data.ChartQuery = template.URL(out.State.Query().Encode())

	h.execute(w, status, "page.html", data)
}

// Chart handles GET /charts/{slug}/{panel}.svg
func (h *PagesHandler) Chart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFrom(ctx)
	vars := mux.Vars(r)

	view := dashboard.ParseViewState(vars["slug"], r.URL.Query(), sess.DefaultSelection())
	panel, err := h.renderer.RenderPanel(ctx, sess, view, vars["panel"])
	if err != nil {
		middleware.WriteError(w, statusFor(err), messageFor(err))
		return
	}

	var buf bytes.Buffer
	if err := charts.RenderSVG(&buf, panel.Config, charts.DefaultWidth, charts.DefaultHeight, charts.RenderOptions{Currency: h.currency}); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("page", vars["slug"]).Str("panel", vars["panel"]).Msg("Failed to draw chart")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to draw chart")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// SessionError answers page requests when the data sources cannot be loaded.
func (h *PagesHandler) SessionError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to start session")
	h.renderError(w, statusFor(err), "Could not load sales data", messageFor(err))
}

func (h *PagesHandler) renderError(w http.ResponseWriter, status int, title, message string) {
	h.execute(w, status, "error.html", errorData{Title: title, Message: message})
}

func (h *PagesHandler) execute(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error().Err(err).Str("template", name).Msg("Failed to execute template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func formatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}

// fallbackView keeps the sidebar usable when a page cannot be rendered.
func fallbackView(slug string, view dashboard.ViewState) *dashboard.PageView {
	out := &dashboard.PageView{
		Nav:       dashboard.Navigation(slug),
		State:     view,
		Selection: view.Selection,
		Warnings:  view.Warnings,
	}
	if page, ok := dashboard.LookupPage(slug); ok {
		out.Page = dashboard.PageInfo{Slug: page.Slug, Title: page.Title, Icon: page.Icon, Description: page.Description}
	}
	return out
}
