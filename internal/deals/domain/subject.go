package domain

import (
	"regexp"
	"strings"
)

// replyPrefix matches one leading reply or forward marker. Exactly one
// prefix is stripped per subject.
var replyPrefix = regexp.MustCompile(`^(re|fw|fwd):\s*`)

// SubjectRoot normalizes an email subject for thread grouping: strip a
// single leading "Re:"/"Fw:"/"Fwd:" prefix, trim whitespace, lowercase.
func SubjectRoot(subject string) string {
	trimmed := strings.TrimSpace(strings.ToLower(subject))
	trimmed = replyPrefix.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}

// GroupKey is the thread dedup identity: owner, subject root and brand
// sender address, all normalized.
type GroupKey struct {
	SubjectRoot string
	BrandEmail  string
}

// NewGroupKey builds a grouping key from a raw subject and sender.
func NewGroupKey(subject, fromEmail string) GroupKey {
	return GroupKey{
		SubjectRoot: SubjectRoot(subject),
		BrandEmail:  strings.ToLower(strings.TrimSpace(fromEmail)),
	}
}
