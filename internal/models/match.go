package models

// FriendMatch pairs a candidate with a compatibility score and a human
// readable reason. It is regenerated for every matching request.
type FriendMatch struct {
	UserID             string       `json:"userId"`
	CompatibilityScore float64      `json:"compatibilityScore"`
	MatchingReason     string       `json:"matchingReason"`
	Profile            *UserProfile `json:"profile,omitempty"`
}

// MatchPhase is the coarse state of a match session.
type MatchPhase string

// Match session phases.
const (
	PhaseIdle      MatchPhase = "idle"
	PhaseReviewing MatchPhase = "reviewing"
	PhaseResults   MatchPhase = "results"
)

// ResolveMatches attaches pool profiles to scored matches and drops entries
// whose user id is not in the pool. Order is preserved.
func ResolveMatches(scored []FriendMatch, pool []UserProfile) []FriendMatch {
	byID := make(map[string]*UserProfile, len(pool))
	for i := range pool {
		byID[pool[i].ID] = &pool[i]
	}
	out := make([]FriendMatch, 0, len(scored))
	for _, m := range scored {
		profile, ok := byID[m.UserID]
		if !ok {
			continue
		}
		m.Profile = profile.Clone()
		out = append(out, m)
	}
	return out
}
