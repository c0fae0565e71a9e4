package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/deals/repository"
)

// ConflictDetector finds overlapping negotiations: the same brand
// talking to the same talent on two active threads. The scan is
// deterministic and pairwise over the whole batch.
type ConflictDetector struct{}

func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

func (d *ConflictDetector) DetectGlobal(_ context.Context, threads []repository.Thread) ([]ports.Conflict, error) {
	conflicts := make([]ports.Conflict, 0)
	for i := 0; i < len(threads); i++ {
		for j := i + 1; j < len(threads); j++ {
			a, b := threads[i], threads[j]

			brand := sharedBrand(a, b)
			if brand == "" {
				continue
			}
			if !talentOverlap(a.TalentIDs, b.TalentIDs) {
				continue
			}

			conflicts = append(conflicts, ports.Conflict{
				ThreadA: a.ID,
				ThreadB: b.ID,
				Brand:   brand,
				Reason:  "same brand negotiating with overlapping talent on two threads",
			})
		}
	}
	return conflicts, nil
}

// sharedBrand returns the common brand identity of two threads, by
// email first, name second, or "" when they differ.
func sharedBrand(a, b repository.Thread) string {
	aEmail := normalized(a.BrandEmail)
	bEmail := normalized(b.BrandEmail)
	if aEmail != "" && aEmail == bEmail {
		return aEmail
	}

	aName := normalized(a.BrandName)
	bName := normalized(b.BrandName)
	if aName != "" && aName == bName {
		return aName
	}
	return ""
}

func normalized(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

func talentOverlap(a, b []uuid.UUID) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
