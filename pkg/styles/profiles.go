package styles

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/briefwire/briefwire/pkg/domain"
)

//go:embed profiles.yml
var profilesYAML []byte

// Profile carries tier-specific summarization instructions for one category.
type Profile struct {
	Instructions string `yaml:"instructions"`
	Count        int    `yaml:"count"`    // target number of summaries
	Bulleted     bool   `yaml:"bulleted"` // bullets vs paragraph format
}

// profileSet is one category's pair of tier profiles
type profileSet struct {
	Free Profile `yaml:"free"`
	Paid Profile `yaml:"paid"`
}

var profiles map[domain.Category]profileSet

func init() {
	var raw map[domain.Category]profileSet
	if err := yaml.Unmarshal(profilesYAML, &raw); err != nil {
		panic(fmt.Sprintf("styles: parse embedded profiles: %v", err))
	}
	if _, ok := raw[domain.CategoryDefault]; !ok {
		panic("styles: embedded profiles missing default category")
	}
	profiles = raw
}

// ProfileFor returns the style profile for a category and tier, falling back
// to the default category for unknown categories.
func ProfileFor(category domain.Category, tier domain.Tier) Profile {
	set, ok := profiles[category]
	if !ok {
		set = profiles[domain.CategoryDefault]
	}
	if tier == domain.TierPaid {
		return set.Paid
	}
	return set.Free
}
