package services

import "strings"

// PlanTier is the enumerated premium tier. Stored plan names encode the tier
// in free text, so TierFromPlanName is the migration shim between the two.
type PlanTier int

const (
	TierBasic PlanTier = iota
	TierUltraPro
	TierUltraProMax
)

// Prompt allowances per tier. TierUltraProMax is unlimited.
const (
	basicPromptLimit    = 3
	ultraProPromptLimit = 10
)

// TierFromPlanName maps a decrypted plan name to its tier. Matching is by
// substring to stay compatible with the free-text names already stored:
// "Ultra Pro Max" wins over "Ultra Pro", anything else is basic.
func TierFromPlanName(name string) PlanTier {
	switch {
	case strings.Contains(name, "Ultra Pro Max"):
		return TierUltraProMax
	case strings.Contains(name, "Ultra Pro"):
		return TierUltraPro
	default:
		return TierBasic
	}
}

// PromptLimit returns the allowed prompt count and whether the tier is
// unlimited.
func (t PlanTier) PromptLimit() (limit int, unlimited bool) {
	switch t {
	case TierUltraProMax:
		return 0, true
	case TierUltraPro:
		return ultraProPromptLimit, false
	default:
		return basicPromptLimit, false
	}
}
