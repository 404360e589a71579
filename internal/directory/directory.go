// Package directory provides the community member pool and the seed
// activity list, backed by embedded fixtures or a SQL database.
package directory

import (
	"context"
	_ "embed"
	"fmt"

	"silverlink/internal/models"

	"gopkg.in/yaml.v3"
)

// Directory supplies the candidate pool and the initial activity list.
type Directory interface {
	Members(ctx context.Context) ([]models.UserProfile, error)
	Activities(ctx context.Context) ([]models.Activity, error)
}

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures is the built-in community data set.
type Fixtures struct {
	Districts  []string             `yaml:"districts"`
	Interests  []string             `yaml:"interests"`
	Members    []models.UserProfile `yaml:"members"`
	Activities []models.Activity    `yaml:"activities"`
}

// LoadFixtures parses the embedded fixtures.
func LoadFixtures() (*Fixtures, error) {
	return ParseFixtures(fixturesYAML)
}

// ParseFixtures parses a fixtures document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i := range f.Activities {
		if f.Activities[i].Participants == nil {
			f.Activities[i].Participants = []string{}
		}
	}
	return &f, nil
}

// MustFixtures returns the embedded fixtures and panics if they are invalid.
func MustFixtures() *Fixtures {
	f, err := LoadFixtures()
	if err != nil {
		panic(err)
	}
	return f
}

// Static serves the fixtures from memory.
type Static struct {
	fixtures *Fixtures
}

// NewStatic returns a directory over f.
func NewStatic(f *Fixtures) *Static {
	return &Static{fixtures: f}
}

// Members returns a copy of the member list.
func (s *Static) Members(ctx context.Context) ([]models.UserProfile, error) {
	out := make([]models.UserProfile, len(s.fixtures.Members))
	for i := range s.fixtures.Members {
		out[i] = *s.fixtures.Members[i].Clone()
	}
	return out, nil
}

// Activities returns a copy of the activity list.
func (s *Static) Activities(ctx context.Context) ([]models.Activity, error) {
	out := make([]models.Activity, len(s.fixtures.Activities))
	for i, a := range s.fixtures.Activities {
		out[i] = a.Clone()
	}
	return out, nil
}
