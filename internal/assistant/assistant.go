// Package assistant holds the collaborators the session consults for friend
// matching, profile analysis and activity planning, along with the HTTP
// client for the remote gateway, local deterministic generators, fallbacks
// and caching/instrumentation decorators.
package assistant

import (
	"context"
	"time"

	"silverlink/internal/models"

	"github.com/redis/go-redis/v9"
)

// AnalysisRequest is the input to profile analysis.
type AnalysisRequest struct {
	Intro        string   `json:"intro"`
	RawInterests []string `json:"rawInterests"`
	Region       string   `json:"region"`
}

// ProfileAnalysis is the tag list and summary derived from an introduction.
type ProfileAnalysis struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// Matcher scores candidates from pool against user.
type Matcher interface {
	MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error)
}

// ProfileAnalyzer turns a free-form introduction into tags and a summary.
type ProfileAnalyzer interface {
	AnalyzeProfile(ctx context.Context, req AnalysisRequest) (ProfileAnalysis, error)
}

// ActivityPlanner suggests activities suited to a member.
type ActivityPlanner interface {
	SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error)
}

// Services bundles the three collaborators a session needs.
type Services struct {
	Matcher  Matcher
	Analyzer ProfileAnalyzer
	Planner  ActivityPlanner
}

// LocalServices returns the deterministic in-process generators.
func LocalServices(reviewSize int) Services {
	return Services{
		Matcher:  NewLocalMatcher(reviewSize),
		Analyzer: NewKeywordAnalyzer(),
		Planner:  NewCannedPlanner(),
	}
}

// RemoteServices returns all three collaborators backed by one gateway client.
func RemoteServices(client *HTTPClient) Services {
	return Services{
		Matcher:  client,
		Analyzer: client,
		Planner:  client,
	}
}

// Options selects and decorates the assistant backend.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	ReviewSize int
	Redis      *redis.Client
	CacheTTL   time.Duration
}

// NewServices uses the remote gateway when BaseURL is set and the local
// generators otherwise. Analysis and plans are cached when Redis is given,
// and every call is instrumented.
func NewServices(o Options) Services {
	backend := "local"
	s := LocalServices(o.ReviewSize)
	if o.BaseURL != "" {
		backend = "remote"
		s = RemoteServices(NewHTTPClient(o.BaseURL, o.APIKey, o.Timeout))
	}
	s.Analyzer = NewCachedAnalyzer(s.Analyzer, o.Redis, o.CacheTTL)
	s.Planner = NewCachedPlanner(s.Planner, o.Redis, o.CacheTTL)
	return Instrument(s, backend)
}
