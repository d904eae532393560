package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/loader"
)

// TableLoader loads a source table. *loader.Loader implements it.
type TableLoader interface {
	Load(ctx context.Context, uri string, kind loader.Kind) (*analytics.Table, error)
}

// Sources are the URIs of the two tables every session loads.
type Sources struct {
	Transactions string
	Enriched     string
}

// Session is one user's dashboard lifetime: the tables loaded when it
// started. Tables are immutable, so a Session is safe to read concurrently.
type Session struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Transactions *analytics.Table
	Enriched     *analytics.Table
}

// NewSession loads both sources. Any failure is a *loader.LoadError and
// leaves no session behind.
func NewSession(ctx context.Context, l TableLoader, src Sources) (*Session, error) {
	tx, err := l.Load(ctx, src.Transactions, loader.Transactions)
	if err != nil {
		return nil, err
	}
	enriched, err := l.Load(ctx, src.Enriched, loader.Enriched)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:           uuid.New(),
		CreatedAt:    time.Now(),
		Transactions: tx,
		Enriched:     enriched,
	}, nil
}

// Table returns the loaded table for src.
func (s *Session) Table(src Source) (*analytics.Table, error) {
	switch src {
	case SourceTransactions:
		return s.Transactions, nil
	case SourceEnriched:
		return s.Enriched, nil
	}
	return nil, fmt.Errorf("unknown source %q", src)
}

// DefaultSelection selects every location seen in either table and the
// date span covering both.
func (s *Session) DefaultSelection() analytics.Selection {
	sel := analytics.DefaultSelection(s.Enriched)
	seen := make(map[string]bool, len(sel.Locations))
	for _, loc := range sel.Locations {
		seen[loc] = true
	}
	for _, loc := range s.Transactions.Values(analytics.ColLocation) {
		if !seen[loc] {
			seen[loc] = true
			sel.Locations = append(sel.Locations, loc)
		}
	}
	if start, end, ok := s.Transactions.DateSpan(); ok {
		if !sel.Start.IsValid() || start.Before(sel.Start) {
			sel.Start = start
		}
		if !sel.End.IsValid() || end.After(sel.End) {
			sel.End = end
		}
	}
	if sel.Locations == nil {
		sel.Locations = []string{}
	}
	return sel
}

// Manager hands out sessions by id, starting a new one when the id is
// unknown or expired.
type Manager struct {
	loader  TableLoader
	sources Sources
	store   *SessionStore
	log     zerolog.Logger
}

// NewManager creates a session manager.
func NewManager(l TableLoader, src Sources, store *SessionStore, log zerolog.Logger) *Manager {
	return &Manager{loader: l, sources: src, store: store, log: log}
}

// Sources returns the configured source URIs.
func (m *Manager) Sources() Sources { return m.sources }

// Acquire returns the live session with the given id, or loads a new one.
// A load failure returns the *loader.LoadError and stores nothing.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		if sess, err := m.store.Get(id); err == nil {
			return sess, nil
		}
	}

	sess, err := NewSession(ctx, m.loader, m.sources)
	if err != nil {
		m.log.Error().Err(err).Msg("session start failed")
		return nil, err
	}
	if n := m.store.Sweep(); n > 0 {
		m.log.Debug().Int("expired", n).Msg("expired sessions removed")
	}
	if err := m.store.Save(sess); err != nil {
		return nil, fmt.Errorf("Acquire: %w", err)
	}
	m.log.Info().
		Str("session_id", sess.ID.String()).
		Int("transactions", sess.Transactions.Len()).
		Int("enriched", sess.Enriched.Len()).
		Msg("session started")
	return sess, nil
}
