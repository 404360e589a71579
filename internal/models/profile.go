// Package models defines the domain types shared by the session engine,
// the assistant clients and the HTTP API.
package models

import (
	"strings"
)

// Gender of a community member.
type Gender string

// Supported genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Opposite returns the opposite gender, or GenderOther when there is none.
func (g Gender) Opposite() Gender {
	switch g {
	case GenderMale:
		return GenderFemale
	case GenderFemale:
		return GenderMale
	}
	return GenderOther
}

// DefaultCity is prefixed to a district when composing a region.
const DefaultCity = "香港"

// UserProfile is a community member's self description plus the tags and
// summary produced by profile analysis. Members of the community directory
// use the same shape.
type UserProfile struct {
	ID           string   `json:"id" yaml:"id" gorm:"primaryKey;size:64"`
	Name         string   `json:"name" yaml:"name" gorm:"size:100;not null"`
	Gender       Gender   `json:"gender" yaml:"gender" gorm:"size:16;not null"`
	Age          int      `json:"age" yaml:"age"`
	Region       string   `json:"region" yaml:"region" gorm:"size:100;index"`
	Introduction string   `json:"introduction" yaml:"introduction" gorm:"type:text"`
	Interests    []string `json:"interests" yaml:"interests" gorm:"serializer:json"`
	Tags         []string `json:"tags" yaml:"tags" gorm:"serializer:json"`
	AISummary    string   `json:"aiSummary" yaml:"aiSummary" gorm:"column:ai_summary;type:text"`
	Avatar       string   `json:"avatar" yaml:"avatar" gorm:"size:512"`
}

// TableName maps directory members to the members table.
func (UserProfile) TableName() string { return "members" }

// District returns the district part of a "city, district" region.
func (p UserProfile) District() string {
	return DistrictOf(p.Region)
}

// DistrictOf extracts the district from a "city, district" region string.
// A region without a separator is returned trimmed.
func DistrictOf(region string) string {
	if i := strings.LastIndex(region, ","); i >= 0 {
		return strings.TrimSpace(region[i+1:])
	}
	return strings.TrimSpace(region)
}

// ComposeRegion joins a city and district the way onboarding stores them.
func ComposeRegion(city, district string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		city = DefaultCity
	}
	return city + ", " + strings.TrimSpace(district)
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.Interests = append([]string(nil), p.Interests...)
	out.Tags = append([]string(nil), p.Tags...)
	return &out
}

// ProfileDraft is the onboarding form input.
type ProfileDraft struct {
	Name         string   `json:"name"`
	Gender       Gender   `json:"gender"`
	Age          int      `json:"age"`
	City         string   `json:"city"`
	District     string   `json:"district"`
	Introduction string   `json:"introduction"`
	Interests    []string `json:"interests"`
}

// Validate checks the fields the onboarding form requires.
func (d ProfileDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("Name is required")
	}
	if !d.Gender.Valid() {
		return NewValidationError("Gender must be male, female or other")
	}
	if d.Age <= 0 {
		return NewValidationError("Age must be a positive number")
	}
	if strings.TrimSpace(d.District) == "" {
		return NewValidationError("District is required")
	}
	return nil
}

// Region composes the stored region string.
func (d ProfileDraft) Region() string {
	return ComposeRegion(d.City, d.District)
}

// NormalizedInterests trims interests, drops empty ones and removes
// duplicates while keeping the first occurrence.
func (d ProfileDraft) NormalizedInterests() []string {
	return NormalizeInterests(d.Interests)
}

// NormalizeInterests trims, drops empty entries and dedupes in order.
func NormalizeInterests(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, interest := range in {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		if _, ok := seen[interest]; ok {
			continue
		}
		seen[interest] = struct{}{}
		out = append(out, interest)
	}
	return out
}
