package pairing

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	latestQuery = "SELECT name, version, body, created_at FROM prompt_templates WHERE name = $1 ORDER BY version DESC LIMIT 1"
	saveQuery   = "INSERT INTO prompt_templates (name, version, body) SELECT $1, COALESCE(MAX(version), 0) + 1, $2 FROM prompt_templates WHERE name = $1 RETURNING version"
	countQuery  = "SELECT COUNT(*) FROM prompt_templates WHERE name = $1"
)

func newMockStore(t *testing.T) (*PostgresTemplateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTemplateStore(sqlx.NewDb(db, "postgres"), "sommelier"), mock
}

func TestTemplateStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS prompt_templates")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_Template(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(latestQuery)).
		WithArgs("sommelier").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body", "created_at"}).
			AddRow("sommelier", 3, "Cliente: {{.UserName}}", time.Now()))

	body, err := store.Template(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Cliente: {{.UserName}}", body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_TemplateNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(latestQuery)).
		WithArgs("sommelier").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "body", "created_at"}))

	_, err := store.Template(context.Background())

	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(latestQuery)).
		WithArgs("sommelier").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Latest(context.Background())

	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
		WithArgs("sommelier", "new body").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))

	version, err := store.Save(context.Background(), "new body")

	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SaveRetriesVersionConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
		WithArgs("sommelier", "new body").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
		WithArgs("sommelier", "new body").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))

	version, err := store.Save(context.Background(), "new body")

	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SaveGivesUpAfterConflicts(t *testing.T) {
	store, mock := newMockStore(t)
	for i := 0; i < saveAttempts; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
			WithArgs("sommelier", "new body").
			WillReturnError(&pq.Error{Code: "23505"})
	}

	_, err := store.Save(context.Background(), "new body")

	assert.ErrorContains(t, err, "failed to save prompt template sommelier")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SaveOtherErrorNotRetried(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
		WithArgs("sommelier", "new body").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Save(context.Background(), "new body")

	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SeedEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WithArgs("sommelier").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(saveQuery)).
		WithArgs("sommelier", DefaultTemplate).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	assert.NoError(t, store.Seed(context.Background(), DefaultTemplate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStore_SeedExisting(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WithArgs("sommelier").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	assert.NoError(t, store.Seed(context.Background(), DefaultTemplate))
	assert.NoError(t, mock.ExpectationsWereMet())
}
