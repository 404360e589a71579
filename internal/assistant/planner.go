package assistant

import (
	"context"
	"fmt"

	"silverlink/internal/models"
)

const maxPlans = 3

type planTemplate struct {
	interests []string
	title     string
	desc      string
	category  string
	max       int
}

// planTemplates are tried in order against the member's interests.
var planTemplates = []planTemplate{
	{[]string{"太极拳", "广场舞"}, "晨光太极班", "清晨在%s的公园一起打太极，舒展筋骨，精神一整天。", "运动", 15},
	{[]string{"品茶", "聊天"}, "街坊茶聚", "约上几位街坊在%s的茶楼饮茶倾偈，分享生活趣事。", "社交", 8},
	{[]string{"书法", "阅读"}, "书香雅集", "在%s社区中心写写书法、读读好书，交流心得。", "文化", 10},
	{[]string{"象棋", "棋牌"}, "棋艺切磋会", "在%s的休憩处摆几盘棋，以棋会友。", "娱乐", 6},
	{[]string{"散步", "旅游", "摄影"}, "郊野漫步", "沿着%s附近的步行径慢慢走，拍拍风景，呼吸新鲜空气。", "户外", 12},
	{[]string{"唱歌"}, "粤曲欢唱会", "在%s社区会堂一起唱经典粤曲，以歌会友。", "文娱", 20},
	{[]string{"烹饪", "烘焙"}, "家常菜分享会", "带上拿手小菜到%s聚一聚，交流煮食心得。", "美食", 8},
	{[]string{"园艺", "养宠物"}, "社区种植日", "在%s的社区园圃一起种花种菜，感受收获的喜悦。", "户外", 10},
	{[]string{"志愿服务", "学习新技能", "修理"}, "邻里互助日", "在%s组织一次互助活动，教学相长，帮助有需要的街坊。", "公益", 12},
}

// defaultPlans fill the list when interests match fewer than maxPlans templates.
var defaultPlans = []planTemplate{
	{nil, "社区茶聚", "在%s找间茶楼，认识新朋友，轻松倾偈。", "社交", 10},
	{nil, "公园散步", "傍晚在%s的公园散步，边走边聊。", "户外", 12},
	{nil, "手工小课堂", "在%s社区中心一起做手工，动手又动脑。", "文化", 8},
}

// CannedPlanner suggests activities from fixed templates keyed by interest.
type CannedPlanner struct{}

// NewCannedPlanner returns the local planner.
func NewCannedPlanner() *CannedPlanner {
	return &CannedPlanner{}
}

// SuggestActivities implements ActivityPlanner.
func (p *CannedPlanner) SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	place := user.District()
	if place == "" {
		place = "社区"
	}

	interests := make(map[string]struct{}, len(user.Interests))
	for _, i := range user.Interests {
		interests[i] = struct{}{}
	}

	plans := make([]models.ActivityPlan, 0, maxPlans)
	used := map[string]struct{}{}
	appendPlan := func(t planTemplate) {
		if _, ok := used[t.title]; ok || len(plans) >= maxPlans {
			return
		}
		used[t.title] = struct{}{}
		plans = append(plans, models.ActivityPlan{
			Title:           t.title,
			Description:     fmt.Sprintf(t.desc, place),
			Category:        t.category,
			MaxParticipants: t.max,
		})
	}

	for _, t := range planTemplates {
		for _, interest := range t.interests {
			if _, ok := interests[interest]; ok {
				appendPlan(t)
				break
			}
		}
	}
	for _, t := range defaultPlans {
		appendPlan(t)
	}
	return plans, nil
}
