// Package app assembles the loader, session and rendering components from
// a Config. Both binaries build on it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/config"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
	infraBQ "github.com/dvloznov/coffee-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/coffee-dashboard/internal/insights"
	"github.com/dvloznov/coffee-dashboard/internal/loader"
	"github.com/dvloznov/coffee-dashboard/internal/storage"
)

// App holds the long-lived components.
type App struct {
	Config   *config.Config
	Loader   *loader.Loader
	Sessions *dashboard.Manager
	Renderer *dashboard.Renderer

	closers []func() error
	log     zerolog.Logger
}

// New connects optional cloud backends and builds the pipeline. Cloud
// clients are only created when a source URI needs them.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	opts := loader.Options{CacheSize: cfg.CacheSize, Logger: log}

	if cfg.UsesGCS() {
		gcs, err := storage.NewGCS(ctx)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		opts.Objects = gcs
	}

	if cfg.UsesBigQuery() {
		wh, err := infraBQ.NewSalesWarehouse(ctx, cfg.BigQueryProject)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, wh.Close)
		opts.Warehouse = wh
	}

	l, err := loader.New(opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Loader = l

	store := dashboard.NewSessionStore(cfg.SessionTTL)
	a.Sessions = dashboard.NewManager(l, a.Sources(), store, log)
	a.Renderer = dashboard.NewRenderer(NewNarrator(ctx, cfg, log), log)
	return a, nil
}

// Sources returns the configured source URIs.
func (a *App) Sources() dashboard.Sources {
	return dashboard.Sources{
		Transactions: a.Config.TransactionsURI,
		Enriched:     a.Config.EnrichedURI,
	}
}

// NewSession loads both sources into a fresh session outside the store.
func (a *App) NewSession(ctx context.Context) (*dashboard.Session, error) {
	return dashboard.NewSession(ctx, a.Loader, a.Sources())
}

// Close releases cloud clients.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// NewNarrator returns a Gemini-backed narrator when an API key is
// configured, otherwise the template narrator.
func NewNarrator(ctx context.Context, cfg *config.Config, log zerolog.Logger) insights.Narrator {
	if cfg.GeminiAPIKey == "" {
		return insights.NewTemplateNarrator(cfg.Currency)
	}
	n, err := insights.NewGeminiNarrator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Currency, log)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini unavailable, using template summaries")
		return insights.NewTemplateNarrator(cfg.Currency)
	}
	log.Info().Str("model", cfg.GeminiModel).Msg("Gemini summaries enabled")
	return n
}
