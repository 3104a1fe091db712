package plans

import "strings"

// Plan names (single source of truth)
const (
	NameFree         = "FREE"
	NameStarter      = "STARTER"
	NameProfessional = "PROFESSIONAL"
	NameEnterprise   = "ENTERPRISE"
)

// ranks is the entitlement order. Price never decides it: a promotional
// plan must not outrank a higher tier.
var ranks = map[string]int{
	NameFree:         0,
	NameStarter:      1,
	NameProfessional: 2,
	NameEnterprise:   3,
}

// Rank returns the ordinal of a plan name, -1 when unknown.
func Rank(name string) int {
	if r, ok := ranks[NormalizeName(name)]; ok {
		return r
	}
	return -1
}

// Outranks reports whether target is strictly above current.
func Outranks(target, current string) bool {
	t := Rank(target)
	return t >= 0 && t > Rank(current)
}

func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
