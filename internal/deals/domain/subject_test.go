package domain

import "testing"

func TestSubjectRoot(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"plain subject", "Collab Opportunity", "collab opportunity"},
		{"reply prefix", "Re: Collab Opportunity", "collab opportunity"},
		{"forward prefix", "Fwd: Collab Opportunity", "collab opportunity"},
		{"fw prefix", "FW: Budget update", "budget update"},
		{"only one prefix stripped", "Re: Fwd: Collab", "fwd: collab"},
		{"surrounding whitespace", "  Re:   Collab  ", "collab"},
		{"uppercase prefix", "RE: Collab", "collab"},
		{"prefix without space", "re:Collab", "collab"},
		{"empty subject", "", ""},
		{"prefix only", "Re:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubjectRoot(tt.subject); got != tt.want {
				t.Errorf("SubjectRoot(%q) = %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestNewGroupKey(t *testing.T) {
	a := NewGroupKey("Re: Summer Campaign", "Brand@Example.com ")
	b := NewGroupKey("summer campaign", "brand@example.com")
	if a != b {
		t.Errorf("expected equal group keys, got %+v and %+v", a, b)
	}

	c := NewGroupKey("summer campaign", "other@example.com")
	if a == c {
		t.Error("different senders must not share a group key")
	}
}
