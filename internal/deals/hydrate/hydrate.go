// Package hydrate resolves the talent/agent id arrays on deal threads
// into user records for read paths.
package hydrate

import (
	"context"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
)

// UserLister is the single repository dependency.
type UserLister interface {
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]repository.User, error)
}

// Person is a resolved thread participant.
type Person struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Assignments holds the resolved participants of one thread.
type Assignments struct {
	Talent []Person
	Agents []Person
}

type Hydrator struct {
	users UserLister
}

func New(users UserLister) *Hydrator {
	return &Hydrator{users: users}
}

// Assignments resolves the union of all talent and agent ids across the
// batch with one lookup, then maps each thread's arrays back in order.
// Ids that resolve to no user are dropped silently; a deleted user must
// never break a listing.
func (h *Hydrator) Assignments(ctx context.Context, threads []repository.Thread) (map[uuid.UUID]Assignments, error) {
	seen := make(map[uuid.UUID]struct{})
	union := make([]uuid.UUID, 0)
	for _, t := range threads {
		for _, id := range t.TalentIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				union = append(union, id)
			}
		}
		for _, id := range t.AgentIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				union = append(union, id)
			}
		}
	}

	users, err := h.users.ListUsersByIDs(ctx, union)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]Person, len(users))
	for _, u := range users {
		byID[u.ID] = Person{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	}

	result := make(map[uuid.UUID]Assignments, len(threads))
	for _, t := range threads {
		result[t.ID] = Assignments{
			Talent: resolve(t.TalentIDs, byID),
			Agents: resolve(t.AgentIDs, byID),
		}
	}
	return result, nil
}

func resolve(ids []uuid.UUID, byID map[uuid.UUID]Person) []Person {
	people := make([]Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			people = append(people, p)
		}
	}
	return people
}
