package hydrate

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
)

type fakeUserLister struct {
	users []repository.User
	calls int
	got   []uuid.UUID
}

func (f *fakeUserLister) ListUsersByIDs(_ context.Context, ids []uuid.UUID) ([]repository.User, error) {
	f.calls++
	f.got = ids
	return f.users, nil
}

func TestAssignments(t *testing.T) {
	alice := repository.User{ID: uuid.New(), Name: "Alice", Email: "alice@agency.test", Role: "talent"}
	bob := repository.User{ID: uuid.New(), Name: "Bob", Email: "bob@agency.test", Role: "agent"}
	missing := uuid.New()

	lister := &fakeUserLister{users: []repository.User{alice, bob}}
	h := New(lister)

	threadA := repository.Thread{
		ID:        uuid.New(),
		TalentIDs: []uuid.UUID{alice.ID, missing},
		AgentIDs:  []uuid.UUID{bob.ID},
	}
	threadB := repository.Thread{
		ID:        uuid.New(),
		TalentIDs: []uuid.UUID{alice.ID},
	}

	result, err := h.Assignments(context.Background(), []repository.Thread{threadA, threadB})
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}

	if lister.calls != 1 {
		t.Errorf("expected one batched lookup, got %d", lister.calls)
	}
	if len(lister.got) != 3 {
		t.Errorf("expected union of 3 ids, got %d", len(lister.got))
	}

	a := result[threadA.ID]
	if len(a.Talent) != 1 || a.Talent[0].ID != alice.ID {
		t.Errorf("thread A talent = %+v, want only alice", a.Talent)
	}
	if len(a.Agents) != 1 || a.Agents[0].ID != bob.ID {
		t.Errorf("thread A agents = %+v, want only bob", a.Agents)
	}

	b := result[threadB.ID]
	if len(b.Talent) != 1 || len(b.Agents) != 0 {
		t.Errorf("thread B assignments = %+v, want one talent and no agents", b)
	}
}

func TestAssignmentsPreservesOrder(t *testing.T) {
	first := repository.User{ID: uuid.New(), Name: "First", Role: "talent"}
	second := repository.User{ID: uuid.New(), Name: "Second", Role: "talent"}

	// Lookup returns users in reverse; mapped order must follow the
	// thread's id array, not the query result.
	lister := &fakeUserLister{users: []repository.User{second, first}}
	h := New(lister)

	thread := repository.Thread{
		ID:        uuid.New(),
		TalentIDs: []uuid.UUID{first.ID, second.ID},
	}

	result, err := h.Assignments(context.Background(), []repository.Thread{thread})
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}

	talent := result[thread.ID].Talent
	if len(talent) != 2 || talent[0].ID != first.ID || talent[1].ID != second.ID {
		t.Errorf("talent order = %+v, want [first, second]", talent)
	}
}

func TestAssignmentsEmptyBatch(t *testing.T) {
	lister := &fakeUserLister{}
	h := New(lister)

	result, err := h.Assignments(context.Background(), nil)
	if err != nil {
		t.Fatalf("Assignments() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
