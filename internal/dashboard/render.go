package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
	"github.com/dvloznov/coffee-dashboard/internal/insights"
	"github.com/dvloznov/coffee-dashboard/internal/metrics"
)

var (
	// ErrPageNotFound is returned for an unknown page slug.
	ErrPageNotFound = errors.New("page not found")
	// ErrPanelNotFound is returned when a single-panel render names a panel
	// the page does not show.
	ErrPanelNotFound = errors.New("panel not found")
)

// PageError is a page-fatal failure: one of the page's panels asked for
// something its table cannot answer.
type PageError struct {
	Page  string
	Panel string
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %s, panel %s: %v", e.Page, e.Panel, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// PageInfo describes the page being shown.
type PageInfo struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// NavItem is one sidebar entry.
type NavItem struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

// Navigation lists every page, marking active as the current one.
func Navigation(active string) []NavItem {
	nav := make([]NavItem, 0, len(pages))
	for _, p := range pages {
		nav = append(nav, NavItem{
			Slug:   p.Slug,
			Title:  p.Title,
			Icon:   p.Icon,
			Active: p.Slug == active,
		})
	}
	return nav
}

// SelectorView is a resolved page selector.
type SelectorView struct {
	Name    string   `json:"name"`
	Param   string   `json:"param"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
	Value   string   `json:"value"`
}

// PanelView is one rendered panel.
type PanelView struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Config *charts.Config    `json:"config"`
	Result *analytics.Result `json:"result"`
}

// PageView is everything needed to present one page.
type PageView struct {
	Page      PageInfo            `json:"page"`
	Nav       []NavItem           `json:"nav"`
	State     ViewState           `json:"state"`
	Selection analytics.Selection `json:"selection"`
	Selectors []SelectorView      `json:"selectors,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	KPIs      *analytics.KPIs     `json:"kpis,omitempty"`
	Narrative string              `json:"narrative,omitempty"`
	Panels    []PanelView         `json:"panels"`
}

// Panel returns the rendered panel with the given id.
func (v *PageView) Panel(id string) (PanelView, bool) {
	for _, p := range v.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return PanelView{}, false
}

// Renderer runs Filter, Aggregate and chart building for a page.
type Renderer struct {
	narrator insights.Narrator
	log      zerolog.Logger
}

// NewRenderer creates a renderer. narrator may be nil to skip the summary.
func NewRenderer(narrator insights.Narrator, log zerolog.Logger) *Renderer {
	return &Renderer{narrator: narrator, log: log}
}

func (r *Renderer) pipeline() *RenderPipeline {
	return NewRenderPipeline(
		&resolvePageStep{},
		&filterStep{},
		&selectorStep{},
		&aggregateStep{},
		&chartStep{},
		&kpiStep{},
		&narrateStep{narrator: r.narrator, log: r.log},
	)
}

// Render builds the full page for view. Every call recomputes from the
// session's tables.
func (r *Renderer) Render(ctx context.Context, sess *Session, view ViewState) (*PageView, error) {
	return r.run(ctx, sess, view, "")
}

// RenderPanel builds a single panel of the page.
func (r *Renderer) RenderPanel(ctx context.Context, sess *Session, view ViewState, panelID string) (*PanelView, error) {
	out, err := r.run(ctx, sess, view, panelID)
	if err != nil {
		return nil, err
	}
	panel, ok := out.Panel(panelID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPanelNotFound, panelID)
	}
	return &panel, nil
}

func (r *Renderer) run(ctx context.Context, sess *Session, view ViewState, panelID string) (*PageView, error) {
	start := time.Now()
	state := &RenderState{
		Session: sess,
		View:    view,
		PanelID: panelID,
		Out: &PageView{
			Warnings: append([]string(nil), view.Warnings...),
			Panels:   []PanelView{},
		},
	}

	err := r.pipeline().Execute(ctx, state)
	status := "ok"
	if err != nil {
		status = "error"
	}
	label := view.Page
	if _, ok := LookupPage(label); !ok {
		label = "unknown"
	}
	metrics.RecordRender(label, status, time.Since(start).Seconds())
	if err != nil {
		r.log.Error().Err(err).Str("page", view.Page).Str("panel", panelID).Msg("render failed")
		return nil, err
	}

	r.log.Debug().
		Str("page", view.Page).
		Str("panel", panelID).
		Int("panels", len(state.Out.Panels)).
		Int("warnings", len(state.Out.Warnings)).
		Dur("duration", time.Since(start)).
		Msg("page rendered")
	return state.Out, nil
}
