package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
)

// rosterLister is the slice of the repository the detectors need.
type rosterLister interface {
	ListUsersByRole(ctx context.Context, role string) ([]repository.User, error)
}

// freeMailDomains never identify a brand.
var freeMailDomains = map[string]struct{}{
	"gmail.com":   {},
	"outlook.com": {},
	"hotmail.com": {},
	"yahoo.com":   {},
	"icloud.com":  {},
	"proton.me":   {},
	"gmx.com":     {},
}

// BrandDetector identifies the counterparty from the sender address: a
// corporate domain is treated as the brand, free-mail senders are not.
type BrandDetector struct{}

func NewBrandDetector() *BrandDetector {
	return &BrandDetector{}
}

func (d *BrandDetector) Detect(_ context.Context, email repository.IngestedEmail) (ports.Brand, bool, error) {
	addr := strings.ToLower(strings.TrimSpace(email.FromAddr))
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ports.Brand{}, false, nil
	}

	domainPart := addr[at+1:]
	if _, free := freeMailDomains[domainPart]; free {
		return ports.Brand{}, false, nil
	}

	name := domainPart
	if dot := strings.Index(name, "."); dot > 0 {
		name = name[:dot]
	}
	if name == "" {
		return ports.Brand{}, false, nil
	}

	return ports.Brand{
		Name:  strings.ToUpper(name[:1]) + name[1:],
		Email: addr,
	}, true, nil
}

// TalentDetector matches roster talent mentioned in an email, either as
// a recipient or by name in the text.
type TalentDetector struct {
	repo rosterLister
}

func NewTalentDetector(repo rosterLister) *TalentDetector {
	return &TalentDetector{repo: repo}
}

func (d *TalentDetector) DetectForEmail(ctx context.Context, email repository.IngestedEmail) ([]uuid.UUID, error) {
	roster, err := d.repo.ListUsersByRole(ctx, repository.RoleTalent)
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(email.Subject + "\n" + email.Snippet + "\n" + email.Body)
	recipients := strings.ToLower(email.ToAddr)

	matched := make([]uuid.UUID, 0)
	for _, talent := range roster {
		if talent.Email != "" && strings.Contains(recipients, strings.ToLower(talent.Email)) {
			matched = append(matched, talent.ID)
			continue
		}
		name := strings.ToLower(strings.TrimSpace(talent.Name))
		if name != "" && strings.Contains(text, name) {
			matched = append(matched, talent.ID)
		}
	}
	return matched, nil
}
