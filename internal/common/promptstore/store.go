// Package promptstore serves versioned prompt templates from Postgres.
package promptstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/generation/prompt"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type entry struct {
	tpl     prompt.Template
	found   bool
	expires time.Time
}

// Store reads the highest active version of a template and caches the
// answer, including misses, for ttl. Errors are never cached.
type Store struct {
	db     *sql.DB
	query  string
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	mu    sync.RWMutex
	cache map[string]entry
}

var _ prompt.Store = (*Store)(nil)

func New(db *sql.DB, table string, ttl time.Duration, log logger.Logger) (*Store, error) {
	if table == "" {
		table = "prompt_versions"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("promptstore: invalid table name %q", table)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		db: db,
		query: fmt.Sprintf(
			`SELECT name, version, body FROM %s WHERE name = $1 AND is_active = true ORDER BY version DESC LIMIT 1`,
			table),
		ttl:    ttl,
		now:    time.Now,
		logger: log,
		cache:  make(map[string]entry),
	}, nil
}

func (s *Store) Lookup(ctx context.Context, name string) (prompt.Template, bool, error) {
	if e, ok := s.cached(name); ok {
		metrics.PromptStoreLookups.WithLabelValues("cache").Inc()
		return e.tpl, e.found, nil
	}

	var tpl prompt.Template
	err := s.db.QueryRowContext(ctx, s.query, name).Scan(&tpl.Name, &tpl.Version, &tpl.Text)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.PromptStoreLookups.WithLabelValues("miss").Inc()
		s.put(name, entry{})
		return prompt.Template{}, false, nil
	case err != nil:
		metrics.PromptStoreLookups.WithLabelValues("error").Inc()
		return prompt.Template{}, false, fmt.Errorf("promptstore: lookup %s: %w", name, err)
	}

	metrics.PromptStoreLookups.WithLabelValues("database").Inc()
	s.logger.Debug("prompt template loaded", map[string]interface{}{
		"name":    tpl.Name,
		"version": tpl.Version,
	})
	s.put(name, entry{tpl: tpl, found: true})
	return tpl, true, nil
}

// Invalidate drops every cached entry.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]entry)
	s.mu.Unlock()
}

func (s *Store) cached(name string) (entry, bool) {
	if s.ttl <= 0 {
		return entry{}, false
	}
	s.mu.RLock()
	e, ok := s.cache[name]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expires) {
		return entry{}, false
	}
	return e, true
}

func (s *Store) put(name string, e entry) {
	if s.ttl <= 0 {
		return
	}
	e.expires = s.now().Add(s.ttl)
	s.mu.Lock()
	s.cache[name] = e
	s.mu.Unlock()
}
