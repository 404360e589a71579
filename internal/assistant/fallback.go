package assistant

import (
	"context"

	"silverlink/internal/models"
	"silverlink/internal/observability"
)

// Fallback values substituted when analysis fails.
var (
	FallbackTags    = []string{"活跃分子", "友善邻里"}
	FallbackSummary = "这位朋友很热情，暂未生成详细简介。"
)

// FallbackAnalysis returns a fresh copy of the fallback analysis.
func FallbackAnalysis() ProfileAnalysis {
	return ProfileAnalysis{
		Tags:    append([]string(nil), FallbackTags...),
		Summary: FallbackSummary,
	}
}

// AnalyzeOrFallback calls the analyzer and substitutes the fallback analysis
// on any failure or on an empty result.
func AnalyzeOrFallback(ctx context.Context, analyzer ProfileAnalyzer, req AnalysisRequest) ProfileAnalysis {
	if analyzer == nil {
		observability.AssistantFallbacks.WithLabelValues("analyzer").Inc()
		return FallbackAnalysis()
	}
	result, err := analyzer.AnalyzeProfile(ctx, req)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "analyze_profile", err, nil)
		observability.AssistantFallbacks.WithLabelValues("analyzer").Inc()
		return FallbackAnalysis()
	}
	if len(result.Tags) == 0 && result.Summary == "" {
		observability.AssistantFallbacks.WithLabelValues("analyzer").Inc()
		return FallbackAnalysis()
	}
	if len(result.Tags) == 0 {
		result.Tags = append([]string(nil), FallbackTags...)
	}
	if result.Summary == "" {
		result.Summary = FallbackSummary
	}
	return result
}

// SuggestOrEmpty calls the planner and returns an empty list on failure.
func SuggestOrEmpty(ctx context.Context, planner ActivityPlanner, user models.UserProfile) []models.ActivityPlan {
	if planner == nil {
		return []models.ActivityPlan{}
	}
	plans, err := planner.SuggestActivities(ctx, user)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "suggest_activities", err, map[string]interface{}{"user_id": user.ID})
		observability.AssistantFallbacks.WithLabelValues("planner").Inc()
		return []models.ActivityPlan{}
	}
	if plans == nil {
		plans = []models.ActivityPlan{}
	}
	return plans
}
