// Package api wires the dashboard's HTTP surface.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/api/handlers"
	"github.com/dvloznov/coffee-dashboard/internal/api/middleware"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Sessions middleware.SessionAcquirer
	Renderer *dashboard.Renderer
	Currency string
	Log      zerolog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(deps Deps) (http.Handler, error) {
	pages, err := handlers.NewPagesHandler(deps.Renderer, deps.Currency, deps.Log)
	if err != nil {
		return nil, fmt.Errorf("NewRouter: %w", err)
	}
	dash := handlers.NewDashboardHandler(deps.Renderer)

	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	r.HandleFunc("/", pages.Index).Methods(http.MethodGet)
	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.CORS)
	api.HandleFunc("/pages", dash.ListPages).Methods(http.MethodGet, http.MethodOptions)

	apiSession := api.NewRoute().Subrouter()
	apiSession.Use(middleware.Session(deps.Sessions, dash.SessionError))
	apiSession.HandleFunc("/pages/{slug}", dash.GetPage).Methods(http.MethodGet)
	apiSession.HandleFunc("/filters", dash.Filters).Methods(http.MethodGet)

	html := r.NewRoute().Subrouter()
	html.Use(middleware.Session(deps.Sessions, pages.SessionError))
	html.HandleFunc("/pages/{slug}", pages.ShowPage).Methods(http.MethodGet)
	html.HandleFunc("/charts/{slug}/{panel}.svg", pages.Chart).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	handler := middleware.Recovery(deps.Log)(
		middleware.RequestID(
			middleware.Logger(deps.Log)(r),
		),
	)
	return handler, nil
}
