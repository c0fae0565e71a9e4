package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
)

func TestBrandDetector(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		wantFound bool
		wantName  string
	}{
		{"corporate domain", "partnerships@acme.com", true, "Acme"},
		{"subdomain keeps first label", "pr@acme.co.uk", true, "Acme"},
		{"free mail", "someone@gmail.com", false, ""},
		{"missing sender", "", false, ""},
		{"malformed address", "not-an-email", false, ""},
	}

	d := NewBrandDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brand, found, err := d.Detect(context.Background(), repository.IngestedEmail{FromAddr: tt.from})
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && brand.Name != tt.wantName {
				t.Errorf("brand name = %q, want %q", brand.Name, tt.wantName)
			}
		})
	}
}

type fakeRoster struct {
	users []repository.User
}

func (f *fakeRoster) ListUsersByRole(_ context.Context, role string) ([]repository.User, error) {
	out := make([]repository.User, 0)
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestTalentDetector(t *testing.T) {
	mara := repository.User{ID: uuid.New(), Name: "Mara Lindt", Email: "mara@agency.test", Role: repository.RoleTalent}
	jon := repository.User{ID: uuid.New(), Name: "Jon Vey", Email: "jon@agency.test", Role: repository.RoleTalent}
	agent := repository.User{ID: uuid.New(), Name: "Agent Smith", Email: "smith@agency.test", Role: repository.RoleAgent}

	d := NewTalentDetector(&fakeRoster{users: []repository.User{mara, jon, agent}})

	t.Run("matches recipient address", func(t *testing.T) {
		ids, err := d.DetectForEmail(context.Background(), repository.IngestedEmail{
			ToAddr: "mara@agency.test",
			Body:   "We'd love to work together.",
		})
		if err != nil {
			t.Fatalf("DetectForEmail() error = %v", err)
		}
		if len(ids) != 1 || ids[0] != mara.ID {
			t.Errorf("ids = %v, want only mara", ids)
		}
	})

	t.Run("matches name mention", func(t *testing.T) {
		ids, err := d.DetectForEmail(context.Background(), repository.IngestedEmail{
			ToAddr: "info@agency.test",
			Body:   "We think Jon Vey would be perfect for this campaign.",
		})
		if err != nil {
			t.Fatalf("DetectForEmail() error = %v", err)
		}
		if len(ids) != 1 || ids[0] != jon.ID {
			t.Errorf("ids = %v, want only jon", ids)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		ids, err := d.DetectForEmail(context.Background(), repository.IngestedEmail{
			Body: "General inquiry about your roster.",
		})
		if err != nil {
			t.Fatalf("DetectForEmail() error = %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("ids = %v, want none", ids)
		}
	})
}
