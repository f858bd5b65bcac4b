package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrTemplateNotFound is returned when no version of the named template exists.
var ErrTemplateNotFound = errors.New("prompt template not found")

// PromptTemplate is one stored version of a prompt template.
type PromptTemplate struct {
	Name      string    `db:"name"`
	Version   int       `db:"version"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// PostgresTemplateStore keeps versioned prompt templates in PostgreSQL. The
// highest version of the configured name is the active one.
type PostgresTemplateStore struct {
	db   *sqlx.DB
	name string
}

// NewPostgresTemplateStore connects to the database and creates the
// prompt_templates table if needed.
func NewPostgresTemplateStore(dataSourceName, name string) (*PostgresTemplateStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewTemplateStore(db, name)
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewTemplateStore wraps an existing connection.
func NewTemplateStore(db *sqlx.DB, name string) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db, name: name}
}

// EnsureSchema creates the prompt_templates table if not exists.
func (s *PostgresTemplateStore) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompt_templates (
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (name, version)
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create prompt_templates table: %w", err)
	}
	return nil
}

// Latest retrieves the highest version of the template.
func (s *PostgresTemplateStore) Latest(ctx context.Context) (*PromptTemplate, error) {
	var t PromptTemplate
	err := s.db.GetContext(ctx, &t,
		"SELECT name, version, body, created_at FROM prompt_templates WHERE name = $1 ORDER BY version DESC LIMIT 1",
		s.name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get prompt template %s: %w", s.name, err)
	}
	return &t, nil
}

// Template implements TemplateSource.
func (s *PostgresTemplateStore) Template(ctx context.Context) (string, error) {
	t, err := s.Latest(ctx)
	if err != nil {
		return "", err
	}
	return t.Body, nil
}

// saveAttempts bounds retries when a concurrent Save claims the same version.
const saveAttempts = 3

// Save stores body as the next version and returns that version. A save
// that loses the race for a version number is retried.
func (s *PostgresTemplateStore) Save(ctx context.Context, body string) (int, error) {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		var version int
		err = s.db.QueryRowxContext(ctx,
			"INSERT INTO prompt_templates (name, version, body) SELECT $1, COALESCE(MAX(version), 0) + 1, $2 FROM prompt_templates WHERE name = $1 RETURNING version",
			s.name,
			body,
		).Scan(&version)
		if err == nil {
			return version, nil
		}
		if !isUniqueViolation(err) {
			break
		}
		log.WithFields(log.Fields{"name": s.name, "attempt": attempt}).Warn("prompt template version taken, retrying")
	}
	return 0, fmt.Errorf("failed to save prompt template %s: %w", s.name, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Seed stores body as version 1 when the template has no versions yet.
func (s *PostgresTemplateStore) Seed(ctx context.Context, body string) error {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM prompt_templates WHERE name = $1", s.name); err != nil {
		return fmt.Errorf("failed to count prompt templates: %w", err)
	}
	if count > 0 {
		return nil
	}

	version, err := s.Save(ctx, body)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"name": s.name, "version": version}).Info("seeded prompt template")
	return nil
}

// Close closes the underlying connection.
func (s *PostgresTemplateStore) Close() error {
	return s.db.Close()
}
