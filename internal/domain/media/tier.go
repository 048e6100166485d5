package media

import (
	"fmt"
	"strings"

	"github.com/catalog/backend/internal/domain/shared"
)

// Tier identifies one of the two independently credentialed storage backends
type Tier string

const (
	// TierPublic is the public-readable bucket
	TierPublic Tier = "public"
	// TierRestricted is the private bucket; objects are only reachable through signed URLs
	TierRestricted Tier = "restricted"
)

// Tiers returns every tier in a stable order
func Tiers() []Tier {
	return []Tier{TierPublic, TierRestricted}
}

// IsValid checks if the tier is one of the known tiers
func (t Tier) IsValid() bool {
	return t == TierPublic || t == TierRestricted
}

func (t Tier) String() string {
	return string(t)
}

// ParseTier converts a string into a Tier. The empty string is rejected so
// callers decide explicitly which tier a request defaults to.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError(CodeInvalidTier, fmt.Sprintf("unknown storage tier %q", s))
	}
	return t, nil
}
