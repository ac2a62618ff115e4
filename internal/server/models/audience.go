// Package models defines server-side data models persisted in the database.
package models

import "fmt"

// Audience partitions users, tokens and routes into two disjoint domains.
type Audience string

const (
	AudienceManager Audience = "manager"
	AudienceOpen    Audience = "open"
)

// ParseAudience accepts the canonical lowercase tags only.
func ParseAudience(s string) (Audience, error) {
	switch Audience(s) {
	case AudienceManager, AudienceOpen:
		return Audience(s), nil
	default:
		return "", fmt.Errorf("unknown audience %q", s)
	}
}

func (a Audience) String() string { return string(a) }
