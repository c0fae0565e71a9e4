// Package repository provides PostgreSQL persistence for deal threads,
// negotiations, agent runs and the deal timeline.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agencydesk_backend/internal/deals/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStageNotAdvanced means the conditional stage update matched no
	// row: the thread is missing, terminal, or already at a higher rank.
	ErrStageNotAdvanced = errors.New("stage not advanced")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Thread statuses.
const (
	ThreadStatusActive   = "active"
	ThreadStatusArchived = "archived"
)

type Thread struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	BrandID            *uuid.UUID
	BrandName          *string
	BrandEmail         *string
	SubjectRoot        string
	Stage              domain.Stage
	StageRank          int
	Status             string
	TalentIDs          []uuid.UUID
	AgentIDs           []uuid.UUID
	LastBrandMessageAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const threadColumns = `id, owner_id, brand_id, brand_name, brand_email, subject_root,
	stage, stage_rank, status, talent_ids, agent_ids, last_brand_message_at, created_at, updated_at`

func scanThread(row pgx.Row) (Thread, error) {
	var t Thread
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.BrandID, &t.BrandName, &t.BrandEmail, &t.SubjectRoot,
		&t.Stage, &t.StageRank, &t.Status, &t.TalentIDs, &t.AgentIDs,
		&t.LastBrandMessageAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func collectThreads(rows pgx.Rows) ([]Thread, error) {
	defer rows.Close()
	threads := make([]Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return threads, nil
}

// NewThreadMember is one email row nested under a NewThread.
type NewThreadMember struct {
	EmailID    uuid.UUID
	Subject    string
	Snippet    string
	ReceivedAt time.Time
}

// NewThread is one thread to persist during a rebuild.
type NewThread struct {
	BrandID            *uuid.UUID
	BrandName          *string
	BrandEmail         *string
	SubjectRoot        string
	Stage              domain.Stage
	TalentIDs          []uuid.UUID
	AgentIDs           []uuid.UUID
	LastBrandMessageAt *time.Time
	Members            []NewThreadMember
}

// ReplaceOwnerThreads deletes every thread (and membership, by cascade)
// for the owner and recreates the given set in a single transaction.
func (r *Repository) ReplaceOwnerThreads(ctx context.Context, ownerID uuid.UUID, threads []NewThread) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM deal_threads WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("deleting existing threads: %w", err)
	}

	for _, t := range threads {
		var threadID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO deal_threads (
				owner_id, brand_id, brand_name, brand_email, subject_root,
				stage, stage_rank, status, talent_ids, agent_ids, last_brand_message_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, ownerID, t.BrandID, t.BrandName, t.BrandEmail, t.SubjectRoot,
			t.Stage, t.Stage.Rank(), ThreadStatusActive,
			idsOrEmpty(t.TalentIDs), idsOrEmpty(t.AgentIDs), t.LastBrandMessageAt,
		).Scan(&threadID)
		if err != nil {
			return fmt.Errorf("inserting thread %q: %w", t.SubjectRoot, err)
		}

		for _, m := range t.Members {
			_, err := tx.Exec(ctx, `
				INSERT INTO deal_thread_emails (thread_id, email_id, subject, snippet, received_at)
				VALUES ($1, $2, $3, $4, $5)
			`, threadID, m.EmailID, m.Subject, m.Snippet, m.ReceivedAt)
			if err != nil {
				return fmt.Errorf("inserting thread member: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetThread(ctx context.Context, id uuid.UUID) (Thread, error) {
	t, err := scanThread(r.pool.QueryRow(ctx, `
		SELECT `+threadColumns+` FROM deal_threads WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	return t, err
}

func (r *Repository) ListThreadsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Thread, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+threadColumns+` FROM deal_threads
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectThreads(rows)
}

// ListActiveThreads returns every active thread across all owners,
// ordered by owner for deterministic orchestrator passes.
func (r *Repository) ListActiveThreads(ctx context.Context) ([]Thread, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+threadColumns+` FROM deal_threads
		WHERE status = $1
		ORDER BY owner_id, created_at
	`, ThreadStatusActive)
	if err != nil {
		return nil, err
	}
	return collectThreads(rows)
}

// FindThreadByGroupKey locates a thread by the same rule the builder
// groups with. An empty brandEmail matches on subject root alone.
func (r *Repository) FindThreadByGroupKey(ctx context.Context, ownerID uuid.UUID, key domain.GroupKey) (Thread, error) {
	var row pgx.Row
	if key.BrandEmail == "" {
		row = r.pool.QueryRow(ctx, `
			SELECT `+threadColumns+` FROM deal_threads
			WHERE owner_id = $1 AND subject_root = $2 AND brand_email IS NULL
		`, ownerID, key.SubjectRoot)
	} else {
		row = r.pool.QueryRow(ctx, `
			SELECT `+threadColumns+` FROM deal_threads
			WHERE owner_id = $1 AND subject_root = $2 AND lower(brand_email) = $3
		`, ownerID, key.SubjectRoot, key.BrandEmail)
	}
	t, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	return t, err
}

// AdvanceThreadStage moves the thread to newStage only if its rank is
// strictly greater than the stored rank. The guard runs in a single
// conditional UPDATE so concurrent arrivals cannot regress the stage.
// Returns the previous stage, or ErrStageNotAdvanced.
func (r *Repository) AdvanceThreadStage(ctx context.Context, threadID uuid.UUID, newStage domain.Stage) (domain.Stage, error) {
	var oldStage domain.Stage
	err := r.pool.QueryRow(ctx, `
		UPDATE deal_threads t
		SET stage = $2, stage_rank = $3, updated_at = now()
		FROM (SELECT id, stage AS old_stage FROM deal_threads WHERE id = $1) prev
		WHERE t.id = prev.id AND t.stage_rank < $3
		RETURNING prev.old_stage
	`, threadID, newStage, newStage.Rank()).Scan(&oldStage)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrStageNotAdvanced
	}
	if err != nil {
		return "", err
	}
	return oldStage, nil
}

// TouchLastBrandMessage records a fresh inbound brand message time.
func (r *Repository) TouchLastBrandMessage(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deal_threads SET last_brand_message_at = $2, updated_at = now() WHERE id = $1
	`, threadID, at)
	return err
}

// UpdateAssociations replaces a thread's talent and agent id arrays.
func (r *Repository) UpdateAssociations(ctx context.Context, threadID uuid.UUID, talentIDs, agentIDs []uuid.UUID) (Thread, error) {
	t, err := scanThread(r.pool.QueryRow(ctx, `
		UPDATE deal_threads
		SET talent_ids = $2, agent_ids = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+threadColumns+`
	`, threadID, idsOrEmpty(talentIDs), idsOrEmpty(agentIDs)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	return t, err
}

// DealFilters narrows ListDealsWithFilters. Zero values mean "any".
type DealFilters struct {
	UserID  uuid.UUID
	IsAdmin bool
	Stage   domain.Stage
	Status  string
	Brand   string
}

// ListDealsWithFilters returns threads visible to the caller. Agents
// only see threads naming them in agent_ids; admins see everything.
// Authorization lives in the query itself.
func (r *Repository) ListDealsWithFilters(ctx context.Context, filters DealFilters) ([]Thread, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if !filters.IsAdmin {
		args = append(args, filters.UserID)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(agent_ids)", len(args)))
	}
	if filters.Stage != "" {
		args = append(args, filters.Stage)
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Brand != "" {
		args = append(args, "%"+strings.ToLower(filters.Brand)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(coalesce(brand_name, '')) LIKE $%d", len(args)))
	}

	query := `SELECT ` + threadColumns + ` FROM deal_threads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectThreads(rows)
}

// idsOrEmpty keeps uuid[] columns non-null.
func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
