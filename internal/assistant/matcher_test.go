package assistant

import (
	"context"
	"testing"

	"silverlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalMatcher_MatchFriends(t *testing.T) {
	user := models.UserProfile{
		ID:        "me",
		Gender:    models.GenderMale,
		Region:    "香港, 湾仔区",
		Interests: []string{"品茶", "象棋"},
		Tags:      []string{"友善邻里"},
	}
	pool := []models.UserProfile{
		{ID: "me", Gender: models.GenderFemale, Region: "香港, 湾仔区"},
		{ID: "a", Name: "A", Gender: models.GenderFemale, Region: "香港, 东区"},
		{ID: "b", Name: "B", Gender: models.GenderFemale, Region: "香港, 湾仔区", Interests: []string{"品茶"}},
		{ID: "c", Name: "C", Gender: models.GenderMale, Region: "香港, 湾仔区", Interests: []string{"品茶", "象棋"}},
		{ID: "d", Name: "D", Gender: models.GenderFemale, Region: "香港, 南区", Interests: []string{"象棋"}, Tags: []string{"友善邻里"}},
		{ID: "e", Name: "E", Gender: models.GenderOther, Region: "香港, 北区"},
	}

	matches, err := NewLocalMatcher(3).MatchFriends(context.Background(), user, pool)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "b", matches[0].UserID)
	assert.Equal(t, 90.0, matches[0].CompatibilityScore)
	assert.Contains(t, matches[0].MatchingReason, "湾仔区")
	assert.Equal(t, "d", matches[1].UserID)
	assert.Equal(t, 70.0, matches[1].CompatibilityScore)
	assert.Equal(t, "a", matches[2].UserID, "ties keep pool order")
	for _, m := range matches {
		assert.NotEqual(t, "c", m.UserID, "same gender is filtered")
		assert.NotEqual(t, "me", m.UserID)
	}
}

func TestLocalMatcher_OtherGenderSeesEveryone(t *testing.T) {
	user := models.UserProfile{ID: "me", Gender: models.GenderOther}
	pool := []models.UserProfile{
		{ID: "a", Gender: models.GenderMale},
		{ID: "b", Gender: models.GenderFemale},
	}

	matches, err := NewLocalMatcher(0).MatchFriends(context.Background(), user, pool)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestLocalMatcher_ScoreCapped(t *testing.T) {
	shared := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	user := models.UserProfile{ID: "me", Gender: models.GenderMale, Region: "香港, 东区", Interests: shared}
	pool := []models.UserProfile{{ID: "x", Gender: models.GenderFemale, Region: "香港, 东区", Interests: shared}}

	matches, err := NewLocalMatcher(3).MatchFriends(context.Background(), user, pool)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 100.0, matches[0].CompatibilityScore)
}

func TestLocalMatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalMatcher(3).MatchFriends(ctx, models.UserProfile{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
