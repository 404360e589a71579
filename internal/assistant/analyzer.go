package assistant

import (
	"context"
	"fmt"
	"strings"

	"silverlink/internal/models"
)

const maxTags = 4

// introKeywords maps phrases found in an introduction to tags.
var introKeywords = []struct {
	keyword string
	tag     string
}{
	{"退休", "乐享退休"},
	{"孙", "慈祥长辈"},
	{"义工", "热心义工"},
	{"志愿", "热心义工"},
	{"茶", "品茶雅士"},
	{"太极", "太极达人"},
	{"唱", "歌唱爱好者"},
	{"粤曲", "粤曲迷"},
	{"做饭", "厨艺高手"},
	{"煮", "厨艺高手"},
	{"修", "动手能手"},
	{"行山", "户外达人"},
	{"旅游", "户外达人"},
	{"书", "书香长者"},
	{"花", "园艺能手"},
}

// KeywordAnalyzer derives tags from interests and introduction keywords and
// writes a templated summary.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer returns the local analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// AnalyzeProfile implements ProfileAnalyzer.
func (a *KeywordAnalyzer) AnalyzeProfile(ctx context.Context, req AnalysisRequest) (ProfileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return ProfileAnalysis{}, err
	}

	interests := models.NormalizeInterests(req.RawInterests)
	seen := map[string]struct{}{}
	var tags []string
	add := func(tag string) {
		if _, ok := seen[tag]; ok || len(tags) >= maxTags {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, interest := range interests {
		if len(tags) >= 2 {
			break
		}
		add(interest + "爱好者")
	}
	for _, kw := range introKeywords {
		if strings.Contains(req.Intro, kw.keyword) {
			add(kw.tag)
		}
	}
	if len(tags) == 0 {
		add("友善邻里")
	}

	return ProfileAnalysis{Tags: tags, Summary: summarize(req, interests)}, nil
}

func summarize(req AnalysisRequest, interests []string) string {
	district := models.DistrictOf(req.Region)
	var b strings.Builder
	if district != "" {
		fmt.Fprintf(&b, "住在%s的热心街坊", district)
	} else {
		b.WriteString("一位热心的街坊")
	}
	if len(interests) > 0 {
		shown := interests
		if len(shown) > 3 {
			shown = shown[:3]
		}
		fmt.Fprintf(&b, "，平日喜欢%s", strings.Join(shown, "、"))
	}
	b.WriteString("，期待在社区里结识志同道合的朋友。")
	return b.String()
}
