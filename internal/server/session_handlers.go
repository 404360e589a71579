package server

import (
	"errors"
	"strings"

	"silverlink/internal/models"
	"silverlink/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NavigateRequest is the body of a navigation call.
type NavigateRequest struct {
	Screen models.Screen `json:"screen"`
}

// DecideRequest is the body of a match decision.
type DecideRequest struct {
	Liked *bool `json:"liked"`
}

// CreateActivityRequest posts either a fully formed activity or a planner
// suggestion with an optional date and time.
type CreateActivityRequest struct {
	Activity *models.Activity    `json:"activity,omitempty"`
	Plan     models.ActivityPlan `json:"plan"`
	Date     string              `json:"date"`
	Time     string              `json:"time"`
}

// OpenChatRequest selects a chat partner.
type OpenChatRequest struct {
	PartnerID string `json:"partnerId"`
}

// SendMessageRequest is the body of a chat message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// CreateSession handles POST /api/sessions
func (s *Server) CreateSession(c *fiber.Ctx) error {
	sess, err := s.registry.Create(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("directory", err))
	}
	return c.Status(fiber.StatusCreated).JSON(sess.Snapshot())
}

// GetSession handles GET /api/sessions/:id
func (s *Server) GetSession(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.Snapshot())
}

// DeleteSession handles DELETE /api/sessions/:id
func (s *Server) DeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.registry.Delete(id); err != nil {
		return respondError(c, err)
	}
	s.hub.CloseSession(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// CompleteOnboarding handles POST /api/sessions/:id/onboarding
func (s *Server) CompleteOnboarding(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var draft models.ProfileDraft
	if err := parseBody(c, &draft); err != nil {
		return nil
	}

	profile, err := sess.CompleteOnboarding(c.UserContext(), draft)
	if errors.Is(err, session.ErrSuperseded) {
		return models.RespondWithError(c, fiber.StatusConflict, err)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// Navigate handles POST /api/sessions/:id/navigate
func (s *Server) Navigate(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var req NavigateRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if !req.Screen.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown screen"))
	}
	sess.Navigate(c.UserContext(), req.Screen)
	return c.JSON(fiber.Map{"screen": sess.Screen()})
}

// Logout handles POST /api/sessions/:id/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	sess.Logout(c.UserContext())
	return c.JSON(fiber.Map{"screen": sess.Screen()})
}

// EditProfile handles POST /api/sessions/:id/edit-profile
func (s *Server) EditProfile(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	sess.EditProfile(c.UserContext())
	return c.JSON(fiber.Map{"screen": sess.Screen()})
}

// RefreshMatches handles POST /api/sessions/:id/matches/refresh. The
// refresh completes in the background; progress arrives as events.
func (s *Server) RefreshMatches(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	sess.RefreshMatches(c.UserContext(), nil)
	return c.Status(fiber.StatusAccepted).JSON(sess.Matches())
}

// GetMatches handles GET /api/sessions/:id/matches
func (s *Server) GetMatches(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.Matches())
}

// DecideMatch handles POST /api/sessions/:id/matches/decide
func (s *Server) DecideMatch(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var req DecideRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Liked == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("liked is required"))
	}
	sess.Decide(*req.Liked)
	return c.JSON(sess.Matches())
}

// ListActivities handles GET /api/sessions/:id/activities. The region
// defaults to 香港; all=true lists every region.
func (s *Server) ListActivities(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	region := c.Query("region", models.DefaultCity)
	if c.QueryBool("all") {
		region = ""
	}
	return c.JSON(sess.ListActivities(region))
}

// FeaturedActivities handles GET /api/sessions/:id/activities/featured
func (s *Server) FeaturedActivities(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.Featured(c.QueryInt("limit", 2)))
}

// JoinActivity handles POST /api/sessions/:id/activities/:activityId/join
func (s *Server) JoinActivity(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	activity, joined := sess.Join(c.Params("activityId"))
	resp := fiber.Map{"joined": joined}
	if activity.ID != "" {
		resp["activity"] = activity
	}
	return c.JSON(resp)
}

// CreateActivity handles POST /api/sessions/:id/activities
func (s *Server) CreateActivity(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var req CreateActivityRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var (
		activity models.Activity
		posted   bool
	)
	if req.Activity != nil {
		a := *req.Activity
		if strings.TrimSpace(a.ID) == "" {
			a.ID = uuid.NewString()
		}
		activity, posted = sess.Post(a)
	} else {
		activity, posted = sess.PostPlan(req.Plan, req.Date, req.Time)
	}
	if !posted {
		return c.JSON(fiber.Map{"posted": false})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"posted": true, "activity": activity})
}

// SuggestActivities handles POST /api/sessions/:id/activities/suggestions
func (s *Server) SuggestActivities(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.SuggestActivities(c.UserContext()))
}

// OpenChat handles POST /api/sessions/:id/chat/open
func (s *Server) OpenChat(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var req OpenChatRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if strings.TrimSpace(req.PartnerID) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("partnerId is required"))
	}
	if err := sess.OpenChat(c.UserContext(), req.PartnerID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"screen": sess.Screen(), "partner": sess.Partner()})
}

// BackFromChat handles POST /api/sessions/:id/chat/back
func (s *Server) BackFromChat(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	sess.BackFromChat()
	return c.JSON(fiber.Map{"screen": sess.Screen()})
}

// SendMessage handles POST /api/sessions/:id/chat/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	var req SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, sent := sess.Send(req.Text)
	if !sent {
		return c.JSON(fiber.Map{"sent": false})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sent": true, "message": msg})
}

// GetMessages handles GET /api/sessions/:id/chat/:partnerId/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.History(c.Params("partnerId")))
}

// Icebreakers handles GET /api/sessions/:id/chat/icebreakers
func (s *Server) Icebreakers(c *fiber.Ctx) error {
	sess, err := s.lookupSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(sess.Icebreakers())
}
