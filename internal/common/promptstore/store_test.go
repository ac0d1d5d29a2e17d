package promptstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation/prompt"
)

var lookupQuery = regexp.QuoteMeta(
	`SELECT name, version, body FROM prompt_versions WHERE name = $1 AND is_active = true ORDER BY version DESC LIMIT 1`)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func createTestStore(t *testing.T, db *sql.DB, ttl time.Duration) *Store {
	s, err := New(db, "", ttl, logger.NewTestLogger(t))
	require.NoError(t, err)
	return s
}

func TestLookup_Found(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(lookupQuery).
		WithArgs("outreach_message").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body"}).
			AddRow("outreach_message", 4, "Write to {{lead}}"))

	tpl, found, err := createTestStore(t, db, time.Minute).Lookup(context.Background(), "outreach_message")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, prompt.Template{Name: "outreach_message", Text: "Write to {{lead}}", Version: 4}, tpl)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_MissIsNotAnError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(lookupQuery).WithArgs("blog_content").WillReturnError(sql.ErrNoRows)

	_, found, err := createTestStore(t, db, time.Minute).Lookup(context.Background(), "blog_content")

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_CachesHitsAndMisses(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(lookupQuery).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body"}).AddRow("a", 2, "text a"))
	mock.ExpectQuery(lookupQuery).WithArgs("b").WillReturnError(sql.ErrNoRows)

	s := createTestStore(t, db, time.Minute)
	for i := 0; i < 3; i++ {
		tpl, found, err := s.Lookup(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 2, tpl.Version)

		_, found, err = s.Lookup(context.Background(), "b")
		require.NoError(t, err)
		assert.False(t, found)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_CacheExpires(t *testing.T) {
	db, mock := setupMockDB(t)
	rows := func(v int) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"name", "version", "body"}).AddRow("a", v, "text")
	}
	mock.ExpectQuery(lookupQuery).WithArgs("a").WillReturnRows(rows(1))
	mock.ExpectQuery(lookupQuery).WithArgs("a").WillReturnRows(rows(2))

	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	s := createTestStore(t, db, time.Minute)
	s.now = func() time.Time { return now }

	tpl, _, err := s.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Version)

	now = now.Add(2 * time.Minute)
	tpl, _, err = s.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, tpl.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_ErrorsAreNotCached(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(lookupQuery).WithArgs("a").WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(lookupQuery).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body"}).AddRow("a", 3, "text"))

	s := createTestStore(t, db, time.Minute)

	_, _, err := s.Lookup(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	tpl, found, err := s.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, tpl.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_WithStore(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(lookupQuery).WithArgs("outreach_message").WillReturnError(errors.New("down"))

	tpl, err := prompt.Resolve(context.Background(), createTestStore(t, db, 0), "outreach_message", "default text")

	assert.Error(t, err)
	assert.Equal(t, 0, tpl.Version)
	assert.Equal(t, "default text", tpl.Text)
}

func TestInvalidate(t *testing.T) {
	db, mock := setupMockDB(t)
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(lookupQuery).WithArgs("a").
			WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body"}).AddRow("a", 1, "text"))
	}

	s := createTestStore(t, db, time.Hour)
	_, _, err := s.Lookup(context.Background(), "a")
	require.NoError(t, err)
	s.Invalidate()
	_, _, err = s.Lookup(context.Background(), "a")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_RejectsBadTableName(t *testing.T) {
	_, err := New(nil, "prompts; DROP TABLE x", time.Minute, nil)
	assert.Error(t, err)
}
