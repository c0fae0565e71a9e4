package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
)

func strPtr(s string) *string { return &s }

func TestDetectGlobal(t *testing.T) {
	talent := uuid.New()
	otherTalent := uuid.New()

	sameBrandSameTalentA := repository.Thread{
		ID:         uuid.New(),
		BrandEmail: strPtr("deals@acme.test"),
		TalentIDs:  []uuid.UUID{talent},
	}
	sameBrandSameTalentB := repository.Thread{
		ID:         uuid.New(),
		BrandEmail: strPtr("Deals@ACME.test"),
		TalentIDs:  []uuid.UUID{talent, otherTalent},
	}
	sameBrandOtherTalent := repository.Thread{
		ID:         uuid.New(),
		BrandEmail: strPtr("deals@acme.test"),
		TalentIDs:  []uuid.UUID{uuid.New()},
	}
	otherBrand := repository.Thread{
		ID:         uuid.New(),
		BrandEmail: strPtr("hello@globex.test"),
		TalentIDs:  []uuid.UUID{talent},
	}

	d := NewConflictDetector()
	conflicts, err := d.DetectGlobal(context.Background(), []repository.Thread{
		sameBrandSameTalentA, sameBrandSameTalentB, sameBrandOtherTalent, otherBrand,
	})
	if err != nil {
		t.Fatalf("DetectGlobal() error = %v", err)
	}

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want exactly 1", conflicts)
	}
	c := conflicts[0]
	if !c.Names(sameBrandSameTalentA.ID) || !c.Names(sameBrandSameTalentB.ID) {
		t.Errorf("conflict %+v does not name the overlapping threads", c)
	}
	if c.Names(otherBrand.ID) {
		t.Errorf("conflict %+v should not name an unrelated thread", c)
	}
}

func TestDetectGlobalFallsBackToBrandName(t *testing.T) {
	talent := uuid.New()
	a := repository.Thread{
		ID:        uuid.New(),
		BrandName: strPtr("Acme"),
		TalentIDs: []uuid.UUID{talent},
	}
	b := repository.Thread{
		ID:        uuid.New(),
		BrandName: strPtr("acme "),
		TalentIDs: []uuid.UUID{talent},
	}

	d := NewConflictDetector()
	conflicts, err := d.DetectGlobal(context.Background(), []repository.Thread{a, b})
	if err != nil {
		t.Fatalf("DetectGlobal() error = %v", err)
	}
	if len(conflicts) != 1 {
		t.Errorf("expected name-based conflict, got %+v", conflicts)
	}
}

func TestDetectGlobalEmptyBatch(t *testing.T) {
	d := NewConflictDetector()
	conflicts, err := d.DetectGlobal(context.Background(), nil)
	if err != nil {
		t.Fatalf("DetectGlobal() error = %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", conflicts)
	}
}
