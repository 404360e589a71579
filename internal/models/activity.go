package models

import "strings"

// Activity is a community event members can join.
type Activity struct {
	ID              string   `json:"id" yaml:"id" gorm:"primaryKey;size:64"`
	Title           string   `json:"title" yaml:"title" gorm:"size:200;not null"`
	Description     string   `json:"description" yaml:"description" gorm:"type:text"`
	CreatorID       string   `json:"creatorId" yaml:"creatorId" gorm:"size:64;index"`
	CreatorName     string   `json:"creatorName" yaml:"creatorName" gorm:"size:100"`
	Region          string   `json:"region" yaml:"region" gorm:"size:100;index"`
	Date            string   `json:"date" yaml:"date" gorm:"size:10"`
	Time            string   `json:"time" yaml:"time" gorm:"size:50"`
	Category        string   `json:"category" yaml:"category" gorm:"size:50"`
	MaxParticipants int      `json:"maxParticipants" yaml:"maxParticipants"`
	Participants    []string `json:"participants" yaml:"participants" gorm:"serializer:json"`
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	a.Participants = append([]string(nil), a.Participants...)
	return a
}

// HasParticipant reports whether userID already joined.
func (a Activity) HasParticipant(userID string) bool {
	for _, id := range a.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Full reports whether the advisory participant cap has been reached.
func (a Activity) Full() bool {
	return a.MaxParticipants > 0 && len(a.Participants) >= a.MaxParticipants
}

// InRegion reports whether the activity region starts with prefix.
func (a Activity) InRegion(prefix string) bool {
	return strings.HasPrefix(a.Region, strings.TrimSpace(prefix))
}

// ActivityPlan is an activity proposed by the planner; it lacks id, date and
// time until the member adopts it.
type ActivityPlan struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	MaxParticipants int    `json:"maxParticipants"`
}
