package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/zero-day-ai/lab/llm"
	"github.com/zero-day-ai/lab/trial"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore is the reference Store implementation, a single sqlite
// database file. A lone writer connection keeps sqlite's single-writer
// model from surfacing as busy errors under concurrent trials.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateExperiment persists a new experiment.
func (s *SQLiteStore) CreateExperiment(ctx context.Context, exp *trial.Experiment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, description, base_prompt, created_at) VALUES (?, ?, ?, ?)`,
		exp.ID.String(), exp.Description, exp.BasePrompt, exp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create experiment %s: %w", exp.ID, err)
	}
	return nil
}

// CreateTrial persists a new trial under its experiment.
func (s *SQLiteStore) CreateTrial(ctx context.Context, tr *trial.Trial) error {
	tools, err := json.Marshal(tr.ToolNames)
	if err != nil {
		return fmt.Errorf("failed to encode tool names for trial %s: %w", tr.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trials (id, experiment_id, system_prompt, mutation_id, persona_name,
		                     tool_names, description, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID.String(), tr.ExperimentID.String(), tr.SystemPrompt, tr.MutationID,
		tr.PersonaName, string(tools), tr.Description, tr.StartedAt, tr.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create trial %s: %w", tr.ID, err)
	}
	return nil
}

// CompleteTrial records the trial's completion time.
func (s *SQLiteStore) CompleteTrial(ctx context.Context, tr *trial.Trial) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trials SET completed_at = ? WHERE id = ?`, tr.CompletedAt, tr.ID.String())
	if err != nil {
		return fmt.Errorf("failed to complete trial %s: %w", tr.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trial %s: %w", tr.ID, ErrNotFound)
	}
	return nil
}

// SaveMessages appends the messages to the trial's transcript, assigning
// sequence numbers after any rows already present, and returns the new
// row IDs in message order. The whole batch commits atomically.
func (s *SQLiteStore) SaveMessages(ctx context.Context, trialID uuid.UUID, messages []llm.Message) ([]int64, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence) + 1, 0) FROM messages WHERE trial_id = ?`,
		trialID.String()).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to read message sequence for trial %s: %w", trialID, err)
	}

	now := time.Now().UTC()
	ids := make([]int64, 0, len(messages))
	for i, msg := range messages {
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message %d for trial %s: %w", i, trialID, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO messages (trial_id, sequence, role, kind, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			trialID.String(), next+i, string(msg.Role), string(msg.Kind), string(payload), now)
		if err != nil {
			return nil, fmt.Errorf("failed to save message %d for trial %s: %w", i, trialID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read message id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit messages for trial %s: %w", trialID, err)
	}
	return ids, nil
}

// RecordViolations appends findings to the trial.
func (s *SQLiteStore) RecordViolations(ctx context.Context, trialID uuid.UUID, findings []trial.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range findings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO violations (trial_id, violation_type, reasoning) VALUES (?, ?, ?)`,
			trialID.String(), f.ViolationType, f.Reasoning); err != nil {
			return fmt.Errorf("failed to record %s violation for trial %s: %w", f.ViolationType, trialID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit violations for trial %s: %w", trialID, err)
	}
	return nil
}

// TrialAndMessages resolves a violation back to its trial and the trial's
// full transcript in sequence order.
func (s *SQLiteStore) TrialAndMessages(ctx context.Context, violationID int64) (*trial.Trial, []llm.Message, error) {
	var trialID string
	err := s.db.QueryRowContext(ctx,
		`SELECT trial_id FROM violations WHERE id = ?`, violationID).Scan(&trialID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("violation %d: %w", violationID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up violation %d: %w", violationID, err)
	}

	tr, err := s.loadTrial(ctx, trialID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM messages WHERE trial_id = ? ORDER BY sequence`, trialID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load messages for trial %s: %w", trialID, err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, nil, fmt.Errorf("failed to scan message: %w", err)
		}
		var msg llm.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, nil, fmt.Errorf("failed to decode message for trial %s: %w", trialID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate messages for trial %s: %w", trialID, err)
	}

	return tr, messages, nil
}

func (s *SQLiteStore) loadTrial(ctx context.Context, id string) (*trial.Trial, error) {
	var (
		tr          trial.Trial
		rawID       string
		rawExpID    string
		rawTools    string
		completedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, system_prompt, mutation_id, persona_name,
		        tool_names, description, started_at, completed_at
		 FROM trials WHERE id = ?`, id).Scan(
		&rawID, &rawExpID, &tr.SystemPrompt, &tr.MutationID, &tr.PersonaName,
		&rawTools, &tr.Description, &tr.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trial %s: %w", id, err)
	}

	if tr.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("trial %s has a malformed id: %w", id, err)
	}
	if tr.ExperimentID, err = uuid.Parse(rawExpID); err != nil {
		return nil, fmt.Errorf("trial %s has a malformed experiment id: %w", id, err)
	}
	if err := json.Unmarshal([]byte(rawTools), &tr.ToolNames); err != nil {
		return nil, fmt.Errorf("trial %s has malformed tool names: %w", id, err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		tr.CompletedAt = &t
	}
	return &tr, nil
}
