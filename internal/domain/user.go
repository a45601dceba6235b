package domain

// UserContext is the user a decision or track call is made for
type UserContext struct {
	UserID          string
	Attributes      map[string]any
	ForcedDecisions ForcedDecisions
}

// ForcedDecisionKey identifies a forced decision. RuleKey is empty for a
// flag-level forced decision.
type ForcedDecisionKey struct {
	FlagKey string
	RuleKey string
}

// ForcedDecisions maps a (flag, rule) pair to a variation key
type ForcedDecisions map[ForcedDecisionKey]string

// Set stores a forced variation for the pair
func (f ForcedDecisions) Set(key ForcedDecisionKey, variationKey string) {
	f[key] = variationKey
}

// Get returns the forced variation for the pair
func (f ForcedDecisions) Get(key ForcedDecisionKey) (string, bool) {
	v, ok := f[key]
	return v, ok
}

// Remove deletes the forced variation for the pair
func (f ForcedDecisions) Remove(key ForcedDecisionKey) bool {
	if _, ok := f[key]; !ok {
		return false
	}
	delete(f, key)
	return true
}
