package main

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
)

const summarySheet = "Summary"

// writeWorkbook saves a Summary sheet with the filters and KPIs, then one
// sheet per panel holding its aggregated groups.
func writeWorkbook(path string, out *dashboard.PageView, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("writeWorkbook: %w", err)
	}
	if err := writeSummary(f, out, currency); err != nil {
		return fmt.Errorf("writeWorkbook: %w", err)
	}

	used := map[string]bool{summarySheet: true}
	for _, panel := range out.Panels {
		name := sheetName(panel.ID, used)
		used[name] = true
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("writeWorkbook: sheet %s: %w", name, err)
		}
		if err := writePanel(f, name, panel); err != nil {
			return fmt.Errorf("writeWorkbook: sheet %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writeWorkbook: save %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, out *dashboard.PageView, currency string) error {
	rows := [][]interface{}{
		{"Page", out.Page.Title},
		{"Locations", strings.Join(out.Selection.Locations, ", ")},
		{"From", dateCell(out.Selection.Start.IsValid(), out.Selection.Start.String())},
		{"To", dateCell(out.Selection.End.IsValid(), out.Selection.End.String())},
		{"Currency", currency},
	}
	for _, s := range out.Selectors {
		rows = append(rows, []interface{}{s.Label, s.Value})
	}
	if k := out.KPIs; k != nil {
		rows = append(rows,
			[]interface{}{"Total revenue", k.TotalRevenue.InexactFloat64()},
			[]interface{}{"Orders", k.TotalOrders},
			[]interface{}{"Average order", k.AverageOrderValue.InexactFloat64()},
			[]interface{}{"Top location", k.TopLocation},
			[]interface{}{"Top product", k.TopProduct},
		)
	}
	for _, w := range out.Warnings {
		rows = append(rows, []interface{}{"Warning", w})
	}
	if out.Narrative != "" {
		rows = append(rows, []interface{}{"Summary", out.Narrative})
	}
	if err := setRows(f, summarySheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 18)
}

func writePanel(f *excelize.File, sheet string, panel dashboard.PanelView) error {
	res := panel.Result
	header := make([]interface{}, 0, len(res.GroupBy)+1)
	for _, dim := range res.GroupBy {
		header = append(header, dim)
	}
	measure := string(res.Reduction)
	if res.Measure != "" {
		measure = fmt.Sprintf("%s(%s)", res.Reduction, res.Measure)
	}
	header = append(header, measure)

	rows := [][]interface{}{{panel.Title}, header}
	for _, g := range res.Groups {
		row := make([]interface{}, 0, len(g.Keys)+1)
		for _, k := range g.Keys {
			row = append(row, k)
		}
		value := g.Value
		if charts.IsMoney(res.Measure) {
			value = analytics.RoundTo2(value)
		}
		rows = append(rows, append(row, value))
	}
	return setRows(f, sheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

// sheetName turns a panel id into a unique worksheet name within the
// 31-character limit.
func sheetName(id string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, id)
	if len(name) > 31 {
		name = name[:31]
	}
	base := name
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		name = trimmed + suffix
	}
	return name
}

func dateCell(valid bool, s string) interface{} {
	if !valid {
		return ""
	}
	return s
}
