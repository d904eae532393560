// Package loader reads coffee sales sources into analytics tables. A
// source is a local .xlsx/.csv file, a gs:// object or a bq:// table.
// Loaded tables are immutable and cached by source version, so sessions
// that open the same unchanged file share one table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/metrics"
)

// DefaultCacheSize is used when Options.CacheSize is not positive.
const DefaultCacheSize = 16

// ObjectStore fetches gs:// objects.
type ObjectStore interface {
	Fetch(ctx context.Context, uri string) ([]byte, int64, error)
	Generation(ctx context.Context, uri string) (int64, error)
}

// Warehouse reads bq:// tables as header-first text records.
type Warehouse interface {
	LastModified(ctx context.Context, uri string) (time.Time, error)
	ReadRecords(ctx context.Context, uri string) ([][]string, error)
}

// Options configures a Loader. Objects and Warehouse may be nil, in which
// case gs:// and bq:// sources fail with a *LoadError.
type Options struct {
	CacheSize int
	Objects   ObjectStore
	Warehouse Warehouse
	Logger    zerolog.Logger
}

type cacheKey struct {
	uri     string
	kind    Kind
	version string
}

// Loader loads and caches source tables. It is safe for concurrent use.
type Loader struct {
	objects   ObjectStore
	warehouse Warehouse
	cache     *lru.Cache[cacheKey, *analytics.Table]
	log       zerolog.Logger
}

// New creates a Loader.
func New(opts Options) (*Loader, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *analytics.Table](size)
	if err != nil {
		return nil, fmt.Errorf("New: create cache: %w", err)
	}
	return &Loader{
		objects:   opts.Objects,
		warehouse: opts.Warehouse,
		cache:     cache,
		log:       opts.Logger,
	}, nil
}

// Load returns the table at uri validated against kind. Every failure is
// a *LoadError.
func (l *Loader) Load(ctx context.Context, uri string, kind Kind) (*analytics.Table, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}

	version, err := l.version(ctx, uri)
	if err != nil {
		return nil, wrapLoadError(uri, err)
	}

	key := cacheKey{uri: uri, kind: kind, version: version}
	if t, ok := l.cache.Get(key); ok {
		metrics.RecordCacheHit()
		l.log.Debug().Str("uri", uri).Str("kind", string(kind)).Msg("source served from cache")
		return t, nil
	}
	metrics.RecordCacheMiss()

	start := time.Now()
	records, err := l.read(ctx, uri)
	if err != nil {
		return nil, wrapLoadError(uri, err)
	}
	t, err := buildTable(uri, schema, records)
	if err != nil {
		return nil, err
	}

	l.cache.Add(key, t)
	l.log.Info().
		Str("uri", uri).
		Str("kind", string(kind)).
		Int("rows", t.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("source loaded")
	return t, nil
}

// Purge drops every cached table.
func (l *Loader) Purge() {
	l.cache.Purge()
}

// version returns a stamp that changes whenever the source content does.
func (l *Loader) version(ctx context.Context, uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		if l.objects == nil {
			return "", fmt.Errorf("no object store configured for %s", uri)
		}
		gen, err := l.objects.Generation(ctx, uri)
		if err != nil {
			return "", err
		}
		return "gen-" + strconv.FormatInt(gen, 10), nil
	case strings.HasPrefix(uri, "bq://"):
		if l.warehouse == nil {
			return "", fmt.Errorf("no BigQuery warehouse configured for %s", uri)
		}
		mod, err := l.warehouse.LastModified(ctx, uri)
		if err != nil {
			return "", err
		}
		return "mod-" + strconv.FormatInt(mod.UnixNano(), 10), nil
	default:
		info, err := os.Stat(uri)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", uri)
		}
		return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
	}
}

// read fetches header-first records for uri.
func (l *Loader) read(ctx context.Context, uri string) ([][]string, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		data, _, err := l.objects.Fetch(ctx, uri)
		if err != nil {
			return nil, err
		}
		return decode(uri, data)
	case strings.HasPrefix(uri, "bq://"):
		return l.warehouse.ReadRecords(ctx, uri)
	default:
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, err
		}
		return decode(uri, data)
	}
}

func wrapLoadError(uri string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	le = &LoadError{URI: uri, Err: err}
	if errors.Is(err, os.ErrNotExist) {
		le.Hint = "check the path or set the source URI"
	}
	return le
}
