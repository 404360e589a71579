package session

import (
	"context"
	"strings"

	"silverlink/internal/assistant"
	"silverlink/internal/featureflags"
	"silverlink/internal/models"

	"github.com/google/uuid"
)

// Defaults for activities adopted from a plan.
const (
	DefaultPlanTitle    = "社区聚会"
	DefaultPlanCategory = "社交"
	DefaultPlanMax      = 10
	DefaultPlanTime     = "上午 10:00"
)

// ListActivities returns the activities whose region starts with
// regionPrefix, newest first. An empty prefix returns all of them.
func (s *Session) ListActivities(regionPrefix string) []models.Activity {
	s.mu.Lock()
	defer s.unlock()
	out := make([]models.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if regionPrefix == "" || a.InRegion(regionPrefix) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Featured returns the first n activities for the home feed.
func (s *Session) Featured(n int) []models.Activity {
	s.mu.Lock()
	defer s.unlock()
	if n > len(s.activities) {
		n = len(s.activities)
	}
	if n < 0 {
		n = 0
	}
	return cloneActivities(s.activities[:n])
}

// Join adds the current member to an activity's participants. It reports
// whether the list changed. Repeated joins append again unless the
// strict_join flag is on, in which case duplicates and joins beyond the
// participant cap are refused.
func (s *Session) Join(activityID string) (models.Activity, bool) {
	s.mu.Lock()
	defer s.unlock()
	if s.profile == nil {
		return models.Activity{}, false
	}
	for i := range s.activities {
		a := &s.activities[i]
		if a.ID != activityID {
			continue
		}
		if s.flags.Enabled(featureflags.StrictJoin, s.profile.ID) && (a.HasParticipant(s.profile.ID) || a.Full()) {
			return a.Clone(), false
		}
		a.Participants = append(a.Participants, s.profile.ID)
		s.emit(EventActivitiesChanged, map[string]string{"joined": a.ID})
		return a.Clone(), true
	}
	return models.Activity{}, false
}

// Post prepends a new activity created by the current member and shows the
// activities screen. The region is stamped from the creator's profile.
func (s *Session) Post(activity models.Activity) (models.Activity, bool) {
	s.mu.Lock()
	defer s.unlock()
	return s.postLocked(activity)
}

func (s *Session) postLocked(activity models.Activity) (models.Activity, bool) {
	if s.profile == nil || strings.TrimSpace(activity.ID) == "" {
		return models.Activity{}, false
	}
	activity = activity.Clone()
	activity.Region = s.profile.Region
	if activity.CreatorID == "" {
		activity.CreatorID = s.profile.ID
		activity.CreatorName = s.profile.Name
	}
	if activity.Participants == nil {
		activity.Participants = []string{}
	}
	s.activities = append([]models.Activity{activity}, s.activities...)
	s.emit(EventActivitiesChanged, map[string]string{"posted": activity.ID})
	s.setScreenLocked(models.ScreenActivities)
	return activity.Clone(), true
}

// PostPlan turns a planner suggestion into an activity with the creator as
// first participant and posts it. Empty date and time default to today and
// 上午 10:00.
func (s *Session) PostPlan(plan models.ActivityPlan, date, at string) (models.Activity, bool) {
	s.mu.Lock()
	defer s.unlock()
	if s.profile == nil {
		return models.Activity{}, false
	}
	a := models.Activity{
		ID:              uuid.NewString(),
		Title:           plan.Title,
		Description:     plan.Description,
		CreatorID:       s.profile.ID,
		CreatorName:     s.profile.Name,
		Date:            date,
		Time:            at,
		Category:        plan.Category,
		MaxParticipants: plan.MaxParticipants,
		Participants:    []string{s.profile.ID},
	}
	if strings.TrimSpace(a.Title) == "" {
		a.Title = DefaultPlanTitle
	}
	if strings.TrimSpace(a.Category) == "" {
		a.Category = DefaultPlanCategory
	}
	if a.MaxParticipants <= 0 {
		a.MaxParticipants = DefaultPlanMax
	}
	if strings.TrimSpace(a.Date) == "" {
		a.Date = s.clock.Now().Format("2006-01-02")
	}
	if strings.TrimSpace(a.Time) == "" {
		a.Time = DefaultPlanTime
	}
	return s.postLocked(a)
}

// SuggestActivities asks the planner for ideas suited to the current
// member. Failures yield an empty list.
func (s *Session) SuggestActivities(ctx context.Context) []models.ActivityPlan {
	user := s.Profile()
	if user == nil {
		return []models.ActivityPlan{}
	}
	return assistant.SuggestOrEmpty(ctx, s.services.Planner, *user)
}

func cloneActivities(in []models.Activity) []models.Activity {
	out := make([]models.Activity, 0, len(in))
	for _, a := range in {
		out = append(out, a.Clone())
	}
	return out
}
