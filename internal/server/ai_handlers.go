package server

import (
	"silverlink/internal/assistant"
	"silverlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// The /ai routes serve the local generators with the gateway wire format,
// so AI_BASE_URL may point at another instance's /ai prefix.

// AnalyzeProfile handles POST /ai/api/analyze
func (s *Server) AnalyzeProfile(c *fiber.Ctx) error {
	var req assistant.AnalyzeWireRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	analysis, err := s.generators.Analyzer.AnalyzeProfile(c.UserContext(), req.FromWire())
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(assistant.AnalyzeWireResponse{Tags: analysis.Tags, Summary: analysis.Summary})
}

// MatchFriends handles POST /ai/api/match
func (s *Server) MatchFriends(c *fiber.Ctx) error {
	var req assistant.MatchWireRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	matches, err := s.generators.Matcher.MatchFriends(c.UserContext(), req.User, req.Candidates)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	for i := range matches {
		matches[i].Profile = nil
	}
	if matches == nil {
		matches = []models.FriendMatch{}
	}
	return c.JSON(matches)
}

// PlanActivities handles POST /ai/api/plan
func (s *Server) PlanActivities(c *fiber.Ctx) error {
	var req assistant.PlanWireRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	plans, err := s.generators.Planner.SuggestActivities(c.UserContext(), req.User)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	if plans == nil {
		plans = []models.ActivityPlan{}
	}
	return c.JSON(plans)
}
