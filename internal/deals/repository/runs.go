package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Agent run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AgentRun is one orchestrator pass's audit record. Rows are never
// deleted; a row stuck at "running" marks a crashed pass.
type AgentRun struct {
	ID          uuid.UUID
	Status      string
	Summary     map[string]any
	Context     map[string]any
	StartedAt   time.Time
	CompletedAt *time.Time
}

// CreateRun inserts a running run row before any other side effect.
func (r *Repository) CreateRun(ctx context.Context, runContext map[string]any) (AgentRun, error) {
	contextJSON, err := json.Marshal(runContext)
	if err != nil {
		return AgentRun{}, fmt.Errorf("encoding run context: %w", err)
	}

	run := AgentRun{Status: RunStatusRunning, Context: runContext}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO negotiation_agent_runs (status, context)
		VALUES ($1, $2)
		RETURNING id, started_at
	`, RunStatusRunning, contextJSON).Scan(&run.ID, &run.StartedAt)
	if err != nil {
		return AgentRun{}, err
	}
	return run, nil
}

// FinalizeRun marks the run completed or failed with its summary.
// Keys in runContext are merged into the row's context column so the
// pass can record what it saw without discarding what CreateRun wrote.
func (r *Repository) FinalizeRun(ctx context.Context, runID uuid.UUID, status string, summary, runContext map[string]any) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}
	var contextJSON []byte
	if runContext != nil {
		if contextJSON, err = json.Marshal(runContext); err != nil {
			return fmt.Errorf("encoding run context: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE negotiation_agent_runs
		SET status = $2, summary = $3,
		    context = COALESCE(context, '{}'::jsonb) || COALESCE($4, '{}'::jsonb),
		    completed_at = now()
		WHERE id = $1
	`, runID, status, summaryJSON, contextJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun loads one run by id.
func (r *Repository) GetRun(ctx context.Context, runID uuid.UUID) (AgentRun, error) {
	var run AgentRun
	var summaryJSON, contextJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, status, summary, context, started_at, completed_at
		FROM negotiation_agent_runs
		WHERE id = $1
	`, runID).Scan(&run.ID, &run.Status, &summaryJSON, &contextJSON, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AgentRun{}, ErrNotFound
	}
	if err != nil {
		return AgentRun{}, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
			return AgentRun{}, fmt.Errorf("decoding run summary: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
			return AgentRun{}, fmt.Errorf("decoding run context: %w", err)
		}
	}
	return run, nil
}

// ListRecentRuns returns the newest runs first.
func (r *Repository) ListRecentRuns(ctx context.Context, limit int) ([]AgentRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, summary, context, started_at, completed_at
		FROM negotiation_agent_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]AgentRun, 0, limit)
	for rows.Next() {
		var run AgentRun
		var summaryJSON, contextJSON []byte
		if err := rows.Scan(&run.ID, &run.Status, &summaryJSON, &contextJSON,
			&run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if len(summaryJSON) > 0 {
			if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
				return nil, err
			}
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
