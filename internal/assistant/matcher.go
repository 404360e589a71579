package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"silverlink/internal/models"
)

// Score weights for the local matcher.
const (
	baseScore        = 60.0
	sameDistrictBias = 25.0
	sharedItemBonus  = 5.0
	maxScore         = 100.0
)

// LocalMatcher ranks candidates with a district and shared interest
// heuristic. Candidates of the same gender are skipped unless either side
// is GenderOther.
type LocalMatcher struct {
	limit int
}

// NewLocalMatcher returns a matcher that keeps at most limit results.
// A non-positive limit keeps every candidate.
func NewLocalMatcher(limit int) *LocalMatcher {
	return &LocalMatcher{limit: limit}
}

// MatchFriends implements Matcher.
func (m *LocalMatcher) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	district := user.District()
	matches := make([]models.FriendMatch, 0, len(pool))
	for _, candidate := range pool {
		if candidate.ID == user.ID || !genderCompatible(user.Gender, candidate.Gender) {
			continue
		}

		score := baseScore
		sameDistrict := district != "" && candidate.District() == district
		if sameDistrict {
			score += sameDistrictBias
		}
		shared := intersect(user.Interests, candidate.Interests)
		sharedTags := intersect(user.Tags, candidate.Tags)
		score += sharedItemBonus * float64(len(shared)+len(sharedTags))
		if score > maxScore {
			score = maxScore
		}

		matches = append(matches, models.FriendMatch{
			UserID:             candidate.ID,
			CompatibilityScore: score,
			MatchingReason:     matchingReason(candidate, sameDistrict, shared, sharedTags),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CompatibilityScore > matches[j].CompatibilityScore
	})

	if m.limit > 0 && len(matches) > m.limit {
		matches = matches[:m.limit]
	}
	return matches, nil
}

func genderCompatible(a, b models.Gender) bool {
	if a == models.GenderOther || b == models.GenderOther {
		return true
	}
	return a.Opposite() == b
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
			delete(set, v)
		}
	}
	return out
}

func matchingReason(candidate models.UserProfile, sameDistrict bool, shared, sharedTags []string) string {
	var parts []string
	if sameDistrict {
		parts = append(parts, fmt.Sprintf("你们同住%s，见面很方便", candidate.District()))
	}
	if len(shared) > 0 {
		parts = append(parts, fmt.Sprintf("都喜欢%s", strings.Join(shared, "、")))
	}
	if len(sharedTags) > 0 {
		parts = append(parts, fmt.Sprintf("同样是%s", strings.Join(sharedTags, "、")))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s性格随和，很适合交个新朋友。", candidate.Name)
	}
	return strings.Join(parts, "，") + "，相信会很投缘。"
}
