package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
	"github.com/dvloznov/coffee-dashboard/internal/insights"
)

// RenderStep is one stage of a page render.
type RenderStep interface {
	Execute(ctx context.Context, state *RenderState) error
}

// RenderState is shared by the steps of one render. It is created fresh
// for every call, so nothing computed survives into the next render.
type RenderState struct {
	Session *Session
	View    ViewState

	// PanelID restricts the render to one panel and skips KPIs and narrative.
	PanelID string

	page     Page
	tables   map[Source]*analytics.Table
	visible  []Panel
	results  []*analytics.Result
	Out      *PageView
}

// RenderPipeline runs steps in order, stopping at the first error.
type RenderPipeline struct {
	steps []RenderStep
}

// NewRenderPipeline creates a pipeline with the given steps.
func NewRenderPipeline(steps ...RenderStep) *RenderPipeline {
	return &RenderPipeline{steps: steps}
}

// Execute runs all steps sequentially.
func (p *RenderPipeline) Execute(ctx context.Context, state *RenderState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("render step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Step 1: resolvePageStep finds the page and builds navigation.
type resolvePageStep struct{}

func (s *resolvePageStep) Execute(_ context.Context, state *RenderState) error {
	page, ok := LookupPage(state.View.Page)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPageNotFound, state.View.Page)
	}
	state.page = page
	state.Out.Page = PageInfo{Slug: page.Slug, Title: page.Title, Icon: page.Icon, Description: page.Description}
	state.Out.Nav = Navigation(page.Slug)
	return nil
}

// Step 2: filterStep applies the selection to both tables. An inverted
// date range leaves empty tables and a warning.
type filterStep struct{}

func (s *filterStep) Execute(_ context.Context, state *RenderState) error {
	state.tables = make(map[Source]*analytics.Table, 2)
	var filterErr error
	for _, src := range []Source{SourceTransactions, SourceEnriched} {
		t, err := state.Session.Table(src)
		if err != nil {
			return err
		}
		filtered, err := analytics.Apply(t, state.View.Selection)
		if err != nil {
			filterErr = err
		}
		state.tables[src] = filtered
	}
	if filterErr != nil {
		state.Out.Warnings = append(state.Out.Warnings, filterErr.Error())
	}
	state.Out.Selection = state.View.Selection
	return nil
}

// Step 3: selectorStep resolves selector options and current values.
// Unknown values fall back to the first option.
type selectorStep struct{}

func (s *selectorStep) Execute(_ context.Context, state *RenderState) error {
	for _, sel := range state.page.Selectors {
		options := sel.Options
		if sel.OptionsFrom != "" {
			t, err := state.Session.Table(sel.Source)
			if err != nil {
				return err
			}
			options = t.Values(sel.OptionsFrom)
		}

		value := state.View.Option(sel.Name)
		if !contains(options, value) {
			if value != "" {
				state.Out.Warnings = append(state.Out.Warnings,
					fmt.Sprintf("unknown %s %q, showing %s", strings.ToLower(sel.Label), value, firstOr(options, "nothing")))
			}
			value = firstOr(options, "")
		}
		state.View.setOption(sel.Name, value)

		state.Out.Selectors = append(state.Out.Selectors, SelectorView{
			Name:    sel.Name,
			Param:   SelectorParam(sel.Name),
			Label:   sel.Label,
			Options: options,
			Value:   value,
		})
	}
	state.Out.State = state.View
	return nil
}

// Step 4: aggregateStep runs every visible panel's query. A query the
// table cannot answer fails the whole page.
type aggregateStep struct{}

func (s *aggregateStep) Execute(_ context.Context, state *RenderState) error {
	for _, panel := range state.page.Panels {
		if !panel.visible(state.View) {
			continue
		}
		if state.PanelID != "" && panel.ID != state.PanelID {
			continue
		}

		t := state.tables[panel.Source]
		if panel.CategoryScoped {
			t = analytics.FilterCategory(t, state.View.Category)
		}
		res, err := analytics.Aggregate(t, panel.Query)
		if err != nil {
			return &PageError{Page: state.page.Slug, Panel: panel.ID, Err: err}
		}
		state.visible = append(state.visible, panel)
		state.results = append(state.results, res)
	}
	if state.PanelID != "" && len(state.visible) == 0 {
		return fmt.Errorf("%w: %q on page %q", ErrPanelNotFound, state.PanelID, state.page.Slug)
	}
	return nil
}

// Step 5: chartStep turns results into chart configs.
type chartStep struct{}

func (s *chartStep) Execute(_ context.Context, state *RenderState) error {
	for i, panel := range state.visible {
		title := panel.Title
		if panel.CategoryScoped {
			title = strings.ReplaceAll(title, "{category}", state.View.Category)
		}
		state.Out.Panels = append(state.Out.Panels, PanelView{
			ID:     panel.ID,
			Title:  title,
			Config: charts.BuildConfig(title, panel.XLabel, panel.YLabel, panel.Chart, state.results[i]),
			Result: state.results[i],
		})
	}
	return nil
}

// Step 6: kpiStep computes headline figures from the filtered transactions.
type kpiStep struct{}

func (s *kpiStep) Execute(_ context.Context, state *RenderState) error {
	if !state.page.ShowKPIs || state.PanelID != "" {
		return nil
	}
	k := analytics.ComputeKPIs(state.tables[SourceTransactions])
	state.Out.KPIs = &k
	return nil
}

// Step 7: narrateStep writes the summary sentence for the KPIs.
type narrateStep struct {
	narrator insights.Narrator
	log      zerolog.Logger
}

func (s *narrateStep) Execute(ctx context.Context, state *RenderState) error {
	if s.narrator == nil || state.Out.KPIs == nil {
		return nil
	}
	text, err := s.narrator.Narrate(ctx, *state.Out.KPIs, state.View.Selection)
	if err != nil {
		s.log.Warn().Err(err).Str("page", state.page.Slug).Msg("narrative unavailable")
		return nil
	}
	state.Out.Narrative = text
	return nil
}

func (p Panel) visible(v ViewState) bool {
	return p.ShowWhen == nil || v.Option(p.ShowWhen.Selector) == p.ShowWhen.Value
}

func (v *ViewState) setOption(name, value string) {
	if name == CategorySelector {
		v.Category = value
		return
	}
	if v.Options == nil {
		v.Options = make(map[string]string)
	}
	v.Options[name] = value
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

func firstOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return items[0]
}
