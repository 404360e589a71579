package assistant

import (
	"fmt"

	"silverlink/internal/models"
)

// Icebreakers returns opening lines for a chat with partner.
func Icebreakers(partner models.UserProfile) []string {
	interest := "社交"
	if len(partner.Interests) > 0 && partner.Interests[0] != "" {
		interest = partner.Interests[0]
	}
	return []string{
		fmt.Sprintf("你好 %s，我也很喜欢%s，有空一起交流吗？", partner.Name, interest),
		fmt.Sprintf("看到你的介绍说住在%s，我离那里也不远呢！", partner.Region),
		"看到你被推荐给我，感觉我们会很投缘！",
	}
}
