package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/app"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
	"github.com/dvloznov/coffee-dashboard/internal/config"
	"github.com/dvloznov/coffee-dashboard/internal/dashboard"
	"github.com/dvloznov/coffee-dashboard/internal/loader"
	"github.com/dvloznov/coffee-dashboard/internal/logger"
	"github.com/dvloznov/coffee-dashboard/internal/storage"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "summary":
		runSummary(log)
	case "render":
		runRender(log)
	case "export":
		runExport(log)
	case "validate":
		runValidate(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Coffee Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  summary   Print headline figures for the current filters")
	fmt.Println("  render    Write one chart as SVG")
	fmt.Println("  export    Write every chart's data on a page to an .xlsx workbook")
	fmt.Println("  validate  Load both data sources and report problems")
	fmt.Println("  upload    Upload a data file to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// filterFlags are the view-state flags shared by summary, render and export.
type filterFlags struct {
	locations string
	start     string
	end       string
	category  string
	options   []string
}

func bindFilterFlags(fs *flag.FlagSet) *filterFlags {
	f := &filterFlags{}
	fs.StringVar(&f.locations, "loc", "", "comma-separated store locations (default: all)")
	fs.StringVar(&f.start, "start", "", "first day, YYYY-MM-DD (default: earliest)")
	fs.StringVar(&f.end, "end", "", "last day, YYYY-MM-DD (default: latest)")
	fs.StringVar(&f.category, "category", "", "product category for category pages")
	fs.Func("option", "page selector as name=value (repeatable)", func(v string) error {
		if !strings.Contains(v, "=") {
			return fmt.Errorf("want name=value, got %q", v)
		}
		f.options = append(f.options, v)
		return nil
	})
	return f
}

// query converts the flags into the same parameters the web UI sends.
func (f *filterFlags) query() url.Values {
	q := url.Values{}
	if f.locations != "" {
		q.Set("loc_set", "1")
		for _, loc := range strings.Split(f.locations, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				q.Add("loc", loc)
			}
		}
	}
	if f.start != "" {
		q.Set("start", f.start)
	}
	if f.end != "" {
		q.Set("end", f.end)
	}
	if f.category != "" {
		q.Set("category", f.category)
	}
	for _, opt := range f.options {
		name, value, _ := strings.Cut(opt, "=")
		q.Set(dashboard.SelectorParam(strings.TrimSpace(name)), strings.TrimSpace(value))
	}
	return q
}

// setup loads config from fs and starts a session over both sources.
func setup(ctx context.Context, fs *flag.FlagSet, log zerolog.Logger) (*app.App, *dashboard.Session) {
	cfg, err := config.Load(fs, os.Args[2:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	sess, err := a.NewSession(ctx)
	if err != nil {
		a.Close()
		log.Fatal().Err(err).Msg("Failed to load data")
	}
	return a, sess
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	filters := bindFilterFlags(fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, sess := setup(ctx, fs, log)
	defer a.Close()

	view := dashboard.ParseViewState(dashboard.DefaultPage, filters.query(), sess.DefaultSelection())
	out, err := a.Renderer.Render(ctx, sess, view)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary failed")
	}

	for _, w := range out.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	printKPIs(out.KPIs, a.Config.Currency)
	if out.Narrative != "" {
		fmt.Printf("\n%s\n", out.Narrative)
	}
}

func printKPIs(k *analytics.KPIs, currency string) {
	if k == nil {
		return
	}
	fmt.Printf("Total revenue:   %s\n", charts.MoneyDecimal(k.TotalRevenue, currency))
	fmt.Printf("Orders:          %s\n", charts.Integer(float64(k.TotalOrders)))
	fmt.Printf("Items sold:      %s\n", charts.Number(k.TotalQuantity))
	fmt.Printf("Average order:   %s\n", charts.MoneyDecimal(k.AverageOrderValue, currency))
	if k.TopLocation != "" {
		fmt.Printf("Top location:    %s (%s)\n", k.TopLocation, charts.MoneyDecimal(k.TopLocationRevenue, currency))
	}
	if k.TopProduct != "" {
		fmt.Printf("Top product:     %s\n", k.TopProduct)
	}
}

func runRender(log zerolog.Logger) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	page := fs.String("page", dashboard.DefaultPage, "page slug")
	panelID := fs.String("panel", "", "panel id on the page")
	outPath := fs.String("out", "", "output .svg path (defaults to <page>-<panel>.svg)")
	filters := bindFilterFlags(fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, sess := setup(ctx, fs, log)
	defer a.Close()

	if *panelID == "" {
		log.Fatal().Msg("Usage: cli render -page SLUG -panel ID [-out FILE]")
	}
	if *outPath == "" {
		*outPath = fmt.Sprintf("%s-%s.svg", *page, *panelID)
	}

	view := dashboard.ParseViewState(*page, filters.query(), sess.DefaultSelection())
	panel, err := a.Renderer.RenderPanel(ctx, sess, view, *panelID)
	if err != nil {
		log.Fatal().Err(err).Msg("Render failed")
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	defer f.Close()

	opts := charts.RenderOptions{Currency: a.Config.Currency}
	if err := charts.RenderSVG(f, panel.Config, charts.DefaultWidth, charts.DefaultHeight, opts); err != nil {
		log.Fatal().Err(err).Msg("Failed to draw chart")
	}

	fmt.Printf("Wrote %s\n", *outPath)
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	page := fs.String("page", dashboard.DefaultPage, "page slug")
	outPath := fs.String("out", "", "output .xlsx path (defaults to <page>.xlsx)")
	filters := bindFilterFlags(fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, sess := setup(ctx, fs, log)
	defer a.Close()

	if *outPath == "" {
		*outPath = *page + ".xlsx"
	}

	view := dashboard.ParseViewState(*page, filters.query(), sess.DefaultSelection())
	out, err := a.Renderer.Render(ctx, sess, view)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	if err := writeWorkbook(*outPath, out, a.Config.Currency); err != nil {
		log.Fatal().Err(err).Msg("Failed to write workbook")
	}

	fmt.Printf("Wrote %d panel(s) to %s\n", len(out.Panels), *outPath)
}

func runValidate(log zerolog.Logger) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load(fs, os.Args[2:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	failed := false
	for _, src := range []struct {
		uri  string
		kind loader.Kind
	}{
		{cfg.TransactionsURI, loader.Transactions},
		{cfg.EnrichedURI, loader.Enriched},
	} {
		t, err := a.Loader.Load(ctx, src.uri, src.kind)
		if err != nil {
			failed = true
			var loadErr *loader.LoadError
			if errors.As(err, &loadErr) && len(loadErr.Columns) > 0 {
				fmt.Printf("FAIL %s (%s): missing %s\n", src.uri, src.kind, strings.Join(loadErr.Columns, ", "))
				if loadErr.Hint != "" {
					fmt.Printf("     %s\n", loadErr.Hint)
				}
				continue
			}
			fmt.Printf("FAIL %s (%s): %v\n", src.uri, src.kind, err)
			continue
		}
		start, end, _ := t.DateSpan()
		fmt.Printf("OK   %s (%s): %d rows, %d locations, %s to %s\n",
			src.uri, src.kind, t.Len(), len(t.Values(analytics.ColLocation)), start, end)
	}

	if failed {
		os.Exit(1)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local .xlsx or .csv file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	gcs, err := storage.NewGCS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer gcs.Close()

	if err := gcs.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}
