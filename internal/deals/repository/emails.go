package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type IngestedEmail struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Subject    string
	Snippet    string
	Body       string
	FromAddr   string
	ToAddr     string
	ReceivedAt time.Time
	CreatedAt  time.Time
}

type InsertEmailParams struct {
	OwnerID    uuid.UUID
	Subject    string
	Snippet    string
	Body       string
	FromAddr   string
	ToAddr     string
	ReceivedAt time.Time
}

func (r *Repository) InsertEmail(ctx context.Context, params InsertEmailParams) (IngestedEmail, error) {
	var email IngestedEmail
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ingested_emails (owner_id, subject, snippet, body, from_addr, to_addr, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, subject, snippet, body, from_addr, to_addr, received_at, created_at
	`, params.OwnerID, params.Subject, params.Snippet, params.Body,
		params.FromAddr, params.ToAddr, params.ReceivedAt,
	).Scan(&email.ID, &email.OwnerID, &email.Subject, &email.Snippet, &email.Body,
		&email.FromAddr, &email.ToAddr, &email.ReceivedAt, &email.CreatedAt)
	return email, err
}

// ListOwnerEmails returns every ingested email for the owner ordered by
// receipt time ascending, the order the thread builder expects.
func (r *Repository) ListOwnerEmails(ctx context.Context, ownerID uuid.UUID) ([]IngestedEmail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, subject, snippet, body, from_addr, to_addr, received_at, created_at
		FROM ingested_emails
		WHERE owner_id = $1
		ORDER BY received_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]IngestedEmail, 0)
	for rows.Next() {
		var e IngestedEmail
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Subject, &e.Snippet, &e.Body,
			&e.FromAddr, &e.ToAddr, &e.ReceivedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

type ThreadEmail struct {
	ID         uuid.UUID
	ThreadID   uuid.UUID
	EmailID    uuid.UUID
	Subject    string
	Snippet    string
	ReceivedAt time.Time
}

func (r *Repository) ListThreadEmails(ctx context.Context, threadID uuid.UUID) ([]ThreadEmail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, thread_id, email_id, subject, snippet, received_at
		FROM deal_thread_emails
		WHERE thread_id = $1
		ORDER BY received_at ASC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]ThreadEmail, 0)
	for rows.Next() {
		var e ThreadEmail
		if err := rows.Scan(&e.ID, &e.ThreadID, &e.EmailID, &e.Subject, &e.Snippet, &e.ReceivedAt); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// LatestThreadEmail returns the full ingested email behind the most
// recent member of the thread, used for offer extraction.
func (r *Repository) LatestThreadEmail(ctx context.Context, threadID uuid.UUID) (IngestedEmail, error) {
	var e IngestedEmail
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.owner_id, e.subject, e.snippet, e.body, e.from_addr, e.to_addr, e.received_at, e.created_at
		FROM deal_thread_emails m
		JOIN ingested_emails e ON e.id = m.email_id
		WHERE m.thread_id = $1
		ORDER BY m.received_at DESC
		LIMIT 1
	`, threadID).Scan(&e.ID, &e.OwnerID, &e.Subject, &e.Snippet, &e.Body,
		&e.FromAddr, &e.ToAddr, &e.ReceivedAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return IngestedEmail{}, ErrNotFound
	}
	return e, err
}

// CountThreadEmails reports how many emails belong to the thread.
func (r *Repository) CountThreadEmails(ctx context.Context, threadID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM deal_thread_emails WHERE thread_id = $1
	`, threadID).Scan(&count)
	return count, err
}
