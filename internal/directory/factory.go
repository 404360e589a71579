package directory

import (
	"context"
	"fmt"
	"log"

	"silverlink/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Avatar images chosen by gender.
const (
	FemaleAvatar = "https://storage.googleapis.com/maker-me-assets/assets/elderly-woman-4.png"
	MaleAvatar   = "https://storage.googleapis.com/maker-me-assets/assets/elderly-man-4.png"
)

// AvatarFor returns the default avatar for a gender.
func AvatarFor(g models.Gender) string {
	if g == models.GenderFemale {
		return FemaleAvatar
	}
	return MaleAvatar
}

var surnames = []string{"黄", "林", "何", "郭", "梁", "吴", "罗", "邓", "周", "刘", "杨", "冯", "曾", "蔡"}

var introTemplates = []string{
	"退休后住在%s，平日最爱%s，希望认识更多街坊。",
	"我在%s住了几十年，喜欢%s，也乐意帮助邻居。",
	"儿女都忙，我常在%s附近走走，想找人一起%s。",
}

var tagPool = []string{"性格温和", "热心肠", "早起达人", "爱讲故事", "活力四射", "乐于助人", "知足常乐", "好奇宝宝"}

// SeedOptions controls how synthetic members are generated and stored.
type SeedOptions struct {
	Members int
	DryRun  bool
	Seed    int64
}

// Factory builds synthetic members from the fixture vocabularies and
// persists them to a database directory.
type Factory struct {
	db       *Database
	fixtures *Fixtures
	faker    *gofakeit.Faker
	opts     SeedOptions
}

// NewFactory creates a Factory. db may be nil when opts.DryRun is set.
func NewFactory(db *Database, fixtures *Fixtures, opts SeedOptions) *Factory {
	return &Factory{
		db:       db,
		fixtures: fixtures,
		faker:    gofakeit.New(opts.Seed),
		opts:     opts,
	}
}

// BuildMember constructs a member without persisting it.
func (f *Factory) BuildMember(overrides ...func(*models.UserProfile)) models.UserProfile {
	gender := models.GenderMale
	title := "先生"
	if f.faker.Bool() {
		gender = models.GenderFemale
		title = "女士"
	}

	district := f.faker.RandomString(f.fixtures.Districts)
	interests := f.pick(f.fixtures.Interests, 2+f.faker.Number(0, 2))
	tags := f.pick(tagPool, 2+f.faker.Number(0, 1))

	member := models.UserProfile{
		ID:           uuid.NewString(),
		Name:         f.faker.RandomString(surnames) + title,
		Gender:       gender,
		Age:          f.faker.Number(60, 88),
		Region:       models.ComposeRegion(models.DefaultCity, district),
		Introduction: fmt.Sprintf(f.faker.RandomString(introTemplates), district, interests[0]),
		Interests:    interests,
		Tags:         tags,
		Avatar:       AvatarFor(gender),
	}
	member.AISummary = fmt.Sprintf("%s住在%s，喜欢%s，是一位%s的长者。", member.Name, district, interests[0], tags[0])

	for _, override := range overrides {
		override(&member)
	}
	return member
}

func (f *Factory) pick(from []string, n int) []string {
	if n > len(from) {
		n = len(from)
	}
	shuffled := append([]string(nil), from...)
	f.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}

// Seed stores the fixture members and activities plus opts.Members
// synthetic members. It returns the synthetic members it generated.
func (f *Factory) Seed(ctx context.Context) ([]models.UserProfile, error) {
	generated := make([]models.UserProfile, 0, f.opts.Members)
	for i := 0; i < f.opts.Members; i++ {
		generated = append(generated, f.BuildMember())
	}

	if f.opts.DryRun {
		log.Printf("[dry-run] Seed: %d fixture members, %d activities, %d generated members (no DB write)",
			len(f.fixtures.Members), len(f.fixtures.Activities), len(generated))
		return generated, nil
	}

	members := append(append([]models.UserProfile(nil), f.fixtures.Members...), generated...)
	if err := f.db.UpsertMembers(ctx, members); err != nil {
		return nil, fmt.Errorf("seed members: %w", err)
	}
	if err := f.db.UpsertActivities(ctx, f.fixtures.Activities); err != nil {
		return nil, fmt.Errorf("seed activities: %w", err)
	}
	return generated, nil
}
