package threads

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/repository"
)

func email(subject, from string, receivedAt time.Time) repository.IngestedEmail {
	return repository.IngestedEmail{
		ID:         uuid.New(),
		Subject:    subject,
		FromAddr:   from,
		ReceivedAt: receivedAt,
	}
}

func TestGroupEmailsRepliesJoinTheirThread(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	emails := []repository.IngestedEmail{
		email("Collab opportunity", "brand@acme.test", base),
		email("Re: Collab Opportunity", "brand@acme.test", base.Add(time.Hour)),
	}

	groups := GroupEmails(emails)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Emails) != 2 {
		t.Errorf("expected 2 emails in group, got %d", len(groups[0].Emails))
	}
	if groups[0].Key.SubjectRoot != "collab opportunity" {
		t.Errorf("subject root = %q", groups[0].Key.SubjectRoot)
	}
}

func TestGroupEmailsDifferentSendersSplit(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	emails := []repository.IngestedEmail{
		email("Partnership?", "a@branda.test", base),
		email("Re: Partnership?", "a@branda.test", base.Add(time.Hour)),
		email("Partnership?", "b@brandb.test", base.Add(2*time.Hour)),
	}

	groups := GroupEmails(emails)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	sizes := []int{len(groups[0].Emails), len(groups[1].Emails)}
	if !reflect.DeepEqual(sizes, []int{2, 1}) {
		t.Errorf("group sizes = %v, want [2 1]", sizes)
	}
}

func TestGroupEmailsMissingSenderGroupsByRootAlone(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	emails := []repository.IngestedEmail{
		email("Invoice question", "", base),
		email("Re: Invoice question", "", base.Add(time.Hour)),
	}

	groups := GroupEmails(emails)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Key.BrandEmail != "" {
		t.Errorf("expected empty brand email key, got %q", groups[0].Key.BrandEmail)
	}
}

func TestGroupEmailsIdempotent(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	emails := []repository.IngestedEmail{
		email("Summer campaign", "brand@acme.test", base),
		email("Re: Summer campaign", "brand@acme.test", base.Add(time.Hour)),
		email("Autumn brief", "other@brand.test", base.Add(2*time.Hour)),
	}

	first := GroupEmails(emails)
	second := GroupEmails(emails)

	if len(first) != len(second) {
		t.Fatalf("group counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("group %d key differs: %+v vs %+v", i, first[i].Key, second[i].Key)
		}
		if len(first[i].Emails) != len(second[i].Emails) {
			t.Errorf("group %d size differs", i)
		}
	}
}

func TestRepresentativeIsLatest(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	oldest := email("Collab", "brand@acme.test", base)
	latest := email("Re: Collab", "brand@acme.test", base.Add(3*time.Hour))

	groups := GroupEmails([]repository.IngestedEmail{oldest, latest})
	if got := groups[0].Representative(); got.ID != latest.ID {
		t.Errorf("representative = %v, want latest email", got.ID)
	}
}

func TestGroupEmailsCaseInsensitiveSender(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	emails := []repository.IngestedEmail{
		email("Collab", "Brand@Acme.test", base),
		email("Re: Collab", "brand@acme.test", base.Add(time.Hour)),
	}
	if groups := GroupEmails(emails); len(groups) != 1 {
		t.Errorf("expected sender normalization to merge groups, got %d", len(groups))
	}
}
