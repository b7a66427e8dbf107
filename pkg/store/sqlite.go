package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coolbeans/modcat/pkg/catalog"

	_ "modernc.org/sqlite"
)

// ErrNoRun is returned when a run id is not in the database.
var ErrNoRun = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	module_count INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	moduleno TEXT NOT NULL,
	name TEXT NOT NULL,
	ects INTEGER,
	level TEXT,
	type_of_module TEXT,
	expertise TEXT,
	methodological_competence TEXT,
	personal_competence TEXT,
	record TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_modules_moduleno ON modules(moduleno);
`

// Run describes one stored parse.
type Run struct {
	ID          string
	Source      string
	ModuleCount int
	CreatedAt   time.Time
}

// SQLiteStore keeps parse runs and their module records in SQLite.
type SQLiteStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	log     zerolog.Logger
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := NewSQLiteStore(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database.
func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log:     logger,
		now:     time.Now,
	}
}

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores records under a new run id and returns the id. Records keep
// their order through the position column.
func (s *SQLiteStore) SaveRun(ctx context.Context, source string, records []catalog.Record) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query, args, err := s.builder.
		Insert("runs").
		Columns("id", "source", "module_count", "created_at").
		Values(runID, source, len(records), s.now().UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("failed to encode module %s: %w", rec.ModuleNo, err)
		}

		query, args, err := s.builder.
			Insert("modules").
			Columns(
				"run_id",
				"position",
				"moduleno",
				"name",
				"ects",
				"level",
				"type_of_module",
				"expertise",
				"methodological_competence",
				"personal_competence",
				"record",
			).
			Values(
				runID,
				i,
				rec.ModuleNo,
				rec.Name,
				nullInt(rec.ECTS),
				nullString(rec.Level),
				nullString(rec.TypeOfModule),
				nullString(rec.LearningOutcomes.Expertise),
				nullString(rec.LearningOutcomes.MethodologicalCompetence),
				nullString(rec.LearningOutcomes.PersonalCompetence),
				string(payload),
			).
			ToSql()
		if err != nil {
			return "", fmt.Errorf("failed to build module insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("failed to insert module %s: %w", rec.ModuleNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	s.log.Debug().Str("run", runID).Str("source", source).Int("modules", len(records)).Msg("saved run")
	return runID, nil
}

// GetRun returns the run with the given id, or ErrNoRun.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	query, args, err := s.builder.
		Select("id", "source", "module_count", "created_at").
		From("runs").
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run query: %w", err)
	}

	var (
		run     Run
		created string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.Source, &run.ModuleCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("invalid created_at for run %s: %w", runID, err)
	}
	return &run, nil
}

// Modules returns the records of a run in their original order.
func (s *SQLiteStore) Modules(ctx context.Context, runID string) ([]catalog.Record, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query, args, err := s.builder.
		Select("record").
		From("modules").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build module query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		var rec catalog.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode module: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read modules: %w", err)
	}
	return records, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
