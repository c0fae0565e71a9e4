package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleAgent  = "agent"
	RoleTalent = "talent"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}

// ListUsersByIDs fetches users in one batched lookup. Missing ids are
// simply absent from the result.
func (r *Repository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, len(ids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUsersByRole returns the roster for one role, used by the brand
// and talent detectors.
func (r *Repository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		WHERE role = $1
		ORDER BY name
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
