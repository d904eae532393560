// Package config resolves dashboard settings from flags, environment
// variables and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings shared by the server and the CLI.
type Config struct {
	Port            string
	TransactionsURI string
	EnrichedURI     string
	Currency        string
	LogLevel        string
	LogFormat       string
	CacheSize       int
	SessionTTL      time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	BigQueryProject string
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("LoadDotEnv: %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (*Config, error) {
	c := &Config{
		Port:            getEnv("PORT", "8080"),
		TransactionsURI: getEnv("TRANSACTIONS_URI", "coffee_shop.xlsx"),
		EnrichedURI:     getEnv("ENRICHED_URI", "New_data.csv"),
		Currency:        getEnv("CURRENCY", "$"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		CacheSize:       16,
		SessionTTL:      30 * time.Minute,
	}

	if v := os.Getenv("CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("FromEnv: CACHE_SIZE %q: %w", v, err)
		}
		c.CacheSize = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FromEnv: SESSION_TTL %q: %w", v, err)
		}
		c.SessionTTL = d
	}
	return c, nil
}

// BindFlags registers flags on fs that override the current values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "HTTP server port (or set PORT env)")
	fs.StringVar(&c.TransactionsURI, "transactions", c.TransactionsURI, "transactions source: .xlsx/.csv path, gs:// or bq:// URI (or set TRANSACTIONS_URI env)")
	fs.StringVar(&c.EnrichedURI, "enriched", c.EnrichedURI, "enriched source: .csv/.xlsx path, gs:// or bq:// URI (or set ENRICHED_URI env)")
	fs.StringVar(&c.Currency, "currency", c.Currency, "currency symbol for money values")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: console or json")
	fs.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "number of loaded tables kept in memory")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "idle time before a session expires")
	fs.StringVar(&c.GeminiAPIKey, "gemini-key", c.GeminiAPIKey, "Gemini API key for narrative summaries (or set GEMINI_API_KEY env)")
	fs.StringVar(&c.GeminiModel, "gemini-model", c.GeminiModel, "Gemini model name")
	fs.StringVar(&c.BigQueryProject, "bq-project", c.BigQueryProject, "BigQuery project for bq:// sources (or set BIGQUERY_PROJECT env)")
}

// Load reads .env, the environment and args (parsed with fs), then
// validates the result.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	c, err := FromEnv()
	if err != nil {
		return nil, err
	}
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Port) == "" {
		problems = append(problems, "port must not be empty")
	} else if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		problems = append(problems, fmt.Sprintf("port %q is not a valid TCP port", c.Port))
	}
	if c.TransactionsURI == "" {
		problems = append(problems, "transactions source must not be empty")
	}
	if c.EnrichedURI == "" {
		problems = append(problems, "enriched source must not be empty")
	}
	if c.CacheSize <= 0 {
		problems = append(problems, "cache size must be positive")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "session TTL must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesBigQuery reports whether either source is a bq:// table.
func (c *Config) UsesBigQuery() bool {
	return strings.HasPrefix(c.TransactionsURI, "bq://") || strings.HasPrefix(c.EnrichedURI, "bq://")
}

// UsesGCS reports whether either source is a gs:// object.
func (c *Config) UsesGCS() bool {
	return strings.HasPrefix(c.TransactionsURI, "gs://") || strings.HasPrefix(c.EnrichedURI, "gs://")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
