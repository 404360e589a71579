package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"silverlink/internal/models"
)

// Gateway paths.
const (
	AnalyzePath = "/api/analyze"
	MatchPath   = "/api/match"
	PlanPath    = "/api/plan"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// ErrMalformedResponse is returned when a gateway body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed assistant response")

// AnalyzeWireRequest is the JSON body of an analysis call. Interests travel
// as one comma separated string.
type AnalyzeWireRequest struct {
	Intro        string `json:"intro"`
	RawInterests string `json:"rawInterests"`
	Region       string `json:"region"`
}

// AnalyzeWireResponse is the analysis body. The gateway either returns the
// fields directly or wraps a JSON document in Result.
type AnalyzeWireResponse struct {
	Tags    []string `json:"tags,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Result  string   `json:"result,omitempty"`
}

// MatchWireRequest is the JSON body of a match call.
type MatchWireRequest struct {
	User       models.UserProfile   `json:"user"`
	Candidates []models.UserProfile `json:"candidates"`
}

// PlanWireRequest is the JSON body of a plan call.
type PlanWireRequest struct {
	User models.UserProfile `json:"user"`
}

// ToWire converts an analysis request to its wire shape.
func (r AnalysisRequest) ToWire() AnalyzeWireRequest {
	return AnalyzeWireRequest{
		Intro:        r.Intro,
		RawInterests: strings.Join(r.RawInterests, ", "),
		Region:       r.Region,
	}
}

// FromWire converts a wire analysis request back, splitting interests on
// ASCII and full-width commas and the ideographic enumeration comma.
func (w AnalyzeWireRequest) FromWire() AnalysisRequest {
	fields := strings.FieldsFunc(w.RawInterests, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	return AnalysisRequest{
		Intro:        w.Intro,
		RawInterests: models.NormalizeInterests(fields),
		Region:       w.Region,
	}
}

// Decode resolves the direct or wrapped analysis form.
func (w AnalyzeWireResponse) Decode() (ProfileAnalysis, error) {
	if w.Result != "" {
		var inner ProfileAnalysis
		if err := json.Unmarshal([]byte(w.Result), &inner); err != nil {
			return ProfileAnalysis{}, fmt.Errorf("%w: result is not JSON: %v", ErrMalformedResponse, err)
		}
		return inner, nil
	}
	if len(w.Tags) == 0 && w.Summary == "" {
		return ProfileAnalysis{}, fmt.Errorf("%w: empty analysis", ErrMalformedResponse)
	}
	return ProfileAnalysis{Tags: w.Tags, Summary: w.Summary}, nil
}

// HTTPClient calls the assistant gateway over JSON HTTP. It implements
// Matcher, ProfileAnalyzer and ActivityPlanner.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates a gateway client. timeout bounds each call.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// AnalyzeProfile implements ProfileAnalyzer.
func (c *HTTPClient) AnalyzeProfile(ctx context.Context, req AnalysisRequest) (ProfileAnalysis, error) {
	var resp AnalyzeWireResponse
	if err := c.post(ctx, AnalyzePath, req.ToWire(), &resp); err != nil {
		return ProfileAnalysis{}, err
	}
	return resp.Decode()
}

// MatchFriends implements Matcher. An empty pool short-circuits without a call.
func (c *HTTPClient) MatchFriends(ctx context.Context, user models.UserProfile, pool []models.UserProfile) ([]models.FriendMatch, error) {
	if len(pool) == 0 {
		return []models.FriendMatch{}, nil
	}
	var matches []models.FriendMatch
	if err := c.post(ctx, MatchPath, MatchWireRequest{User: user, Candidates: pool}, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// SuggestActivities implements ActivityPlanner.
func (c *HTTPClient) SuggestActivities(ctx context.Context, user models.UserProfile) ([]models.ActivityPlan, error) {
	var plans []models.ActivityPlan
	if err := c.post(ctx, PlanPath, PlanWireRequest{User: user}, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}
