package session

import (
	"context"
	"strings"

	"silverlink/internal/assistant"
	"silverlink/internal/directory"
	"silverlink/internal/models"

	"github.com/google/uuid"
)

// Screen returns the effective screen.
func (s *Session) Screen() models.Screen {
	s.mu.Lock()
	defer s.unlock()
	return s.effectiveScreenLocked()
}

// effectiveScreenLocked applies the onboarding guard and the chat-without-
// partner rule to the stored screen.
func (s *Session) effectiveScreenLocked() models.Screen {
	if s.profile == nil {
		return models.ScreenOnboarding
	}
	if s.screen == models.ScreenChat && s.partner == nil {
		return s.prevScreen
	}
	return s.screen
}

func (s *Session) setScreenLocked(screen models.Screen) {
	before := s.effectiveScreenLocked()
	if screen != models.ScreenChat && screen != models.ScreenOnboarding {
		s.prevScreen = screen
	}
	s.screen = screen
	if after := s.effectiveScreenLocked(); after != before {
		s.emit(EventScreenChanged, map[string]models.Screen{"from": before, "to": after})
	}
}

// Navigate moves to screen. Without a profile, or for the onboarding and
// chat targets, it does nothing. Entering Friends issues the first match
// refresh when none has been requested yet.
func (s *Session) Navigate(ctx context.Context, screen models.Screen) {
	s.mu.Lock()
	if s.profile == nil || !screen.Valid() || screen == models.ScreenOnboarding || screen == models.ScreenChat {
		s.unlock()
		return
	}
	s.setScreenLocked(screen)
	var start *refreshTicket
	if screen == models.ScreenFriends && !s.match.requested {
		start = s.beginRefreshLocked(*s.profile)
	}
	s.unlock()

	if start != nil {
		s.runRefreshAsync(ctx, start)
	}
}

// CompleteOnboarding validates the draft, analyses the introduction, stores
// the new profile, moves to Home and issues a match refresh for it.
func (s *Session) CompleteOnboarding(ctx context.Context, draft models.ProfileDraft) (*models.UserProfile, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.profile != nil {
		current := s.profile.Clone()
		s.unlock()
		return current, nil
	}
	epoch := s.epoch
	s.unlock()

	interests := draft.NormalizedInterests()
	analysis := assistant.AnalyzeOrFallback(ctx, s.services.Analyzer, assistant.AnalysisRequest{
		Intro:        draft.Introduction,
		RawInterests: interests,
		Region:       draft.Region(),
	})

	profile := models.UserProfile{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(draft.Name),
		Gender:       draft.Gender,
		Age:          draft.Age,
		Region:       draft.Region(),
		Introduction: draft.Introduction,
		Interests:    interests,
		Tags:         analysis.Tags,
		AISummary:    analysis.Summary,
		Avatar:       directory.AvatarFor(draft.Gender),
	}

	s.mu.Lock()
	if s.closed || s.epoch != epoch || s.profile != nil {
		s.unlock()
		s.log.LogDiscard(ctx, "onboarding", "superseded", nil)
		return nil, ErrSuperseded
	}
	s.profile = &profile
	s.emit(EventProfileCreated, profile.Clone())
	s.setScreenLocked(models.ScreenHome)
	ticket := s.beginRefreshLocked(profile)
	out := s.profile.Clone()
	s.unlock()

	s.log.LogEvent(ctx, "onboarding", "completed", map[string]interface{}{"profile_id": profile.ID})
	s.runRefreshAsync(ctx, ticket)
	return out, nil
}

// Logout clears the profile, match session, chats and partner and returns
// to onboarding. In-flight results and pending auto-replies are discarded.
// Activities are kept.
func (s *Session) Logout(ctx context.Context) {
	s.reset(ctx, "logout")
}

// EditProfile discards the current profile and restarts onboarding with an
// empty form.
func (s *Session) EditProfile(ctx context.Context) {
	s.reset(ctx, "edit_profile")
}

func (s *Session) reset(ctx context.Context, reason string) {
	s.mu.Lock()
	before := s.effectiveScreenLocked()
	s.epoch++
	s.cancelAllRepliesLocked()
	s.profile = nil
	s.partner = nil
	s.chats = make(map[string][]models.ChatMessage)
	generation := s.match.generation
	s.match = newMatchState()
	s.match.generation = generation + 1
	s.screen = models.ScreenOnboarding
	s.prevScreen = models.ScreenHome
	s.emit(EventSessionReset, map[string]string{"reason": reason})
	if before != models.ScreenOnboarding {
		s.emit(EventScreenChanged, map[string]models.Screen{"from": before, "to": models.ScreenOnboarding})
	}
	s.unlock()

	s.log.LogEvent(ctx, "lifecycle", reason, nil)
}

// OpenChat selects partnerID as chat partner and shows the chat screen.
// The partner is resolved from the current matches and then the directory.
// Switching to a different partner cancels replies pending for the
// previous one.
func (s *Session) OpenChat(ctx context.Context, partnerID string) error {
	s.mu.Lock()
	if s.profile == nil {
		s.unlock()
		return nil
	}
	partner := s.match.find(partnerID)
	s.unlock()

	if partner == nil {
		members, err := s.dir.Members(ctx)
		if err != nil {
			return err
		}
		for i := range members {
			if members[i].ID == partnerID {
				partner = members[i].Clone()
				break
			}
		}
	}
	if partner == nil {
		return models.NewNotFoundError("Member", partnerID)
	}

	s.mu.Lock()
	defer s.unlock()
	if s.profile == nil {
		return nil
	}
	if s.partner != nil && s.partner.ID != partner.ID {
		s.cancelRepliesLocked(s.partner.ID)
	}
	s.partner = partner
	s.emit(EventChatOpened, partner.Clone())
	s.setScreenLocked(models.ScreenChat)
	return nil
}

// BackFromChat returns from the chat screen to Friends. The partner stays
// selected.
func (s *Session) BackFromChat() {
	s.mu.Lock()
	defer s.unlock()
	if s.effectiveScreenLocked() != models.ScreenChat {
		return
	}
	s.setScreenLocked(models.ScreenFriends)
}

// Partner returns a copy of the selected chat partner, if any.
func (s *Session) Partner() *models.UserProfile {
	s.mu.Lock()
	defer s.unlock()
	return s.partner.Clone()
}
