package design

import (
	"fmt"
	"math/rand"
	"sort"
)

// exploitChance is how often a surprise pick leans on the user's profile
// instead of a pure random draw.
const exploitChance = 0.7

// StyleProfile counts how often each base style appears in a user's saved
// designs. Keys are base style IDs.
type StyleProfile map[string]int

// TopStyles returns up to n base style IDs ordered by descending count.
// Ties keep a stable alphabetical order so picks are reproducible.
func (p StyleProfile) TopStyles(n int) []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if p[ids[i]] != p[ids[j]] {
			return p[ids[i]] > p[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// SurprisePick is the outcome of a surprise style draw.
type SurprisePick struct {
	Primary   Style
	Secondary Style
	Fused     Style
	Reasoning string
}

// ChooseSurpriseStyle draws a fused style pair. With at least two profiled
// styles the pick favors the user's top two 70% of the time; otherwise two
// distinct random styles are fused.
func ChooseSurpriseStyle(catalog []Style, profile StyleProfile, rng *rand.Rand) SurprisePick {
	if len(catalog) == 0 {
		return SurprisePick{}
	}
	if len(catalog) == 1 {
		only := catalog[0]
		return SurprisePick{
			Primary:   only,
			Secondary: only,
			Fused:     only,
			Reasoning: fmt.Sprintf("a deep dive into %s", only.ID),
		}
	}

	if len(profile) > 1 && rng.Float64() < exploitChance {
		top := profile.TopStyles(2)
		primary, okA := resolveFrom(catalog, top[0])
		secondary, okB := resolveFrom(catalog, top[1])
		if okA && okB {
			return SurprisePick{
				Primary:   primary,
				Secondary: secondary,
				Fused:     FuseStyles(primary, secondary),
				Reasoning: fmt.Sprintf("a creative fusion of %s and %s", primary.ID, secondary.ID),
			}
		}
	}

	primary := catalog[rng.Intn(len(catalog))]
	secondary := catalog[rng.Intn(len(catalog))]
	for primary.ID == secondary.ID {
		secondary = catalog[rng.Intn(len(catalog))]
	}
	return SurprisePick{
		Primary:   primary,
		Secondary: secondary,
		Fused:     FuseStyles(primary, secondary),
		Reasoning: fmt.Sprintf("a creative fusion of %s and %s", primary.ID, secondary.ID),
	}
}

func resolveFrom(catalog []Style, id string) (Style, bool) {
	for _, style := range catalog {
		if style.ID == id {
			return style, true
		}
	}
	return Style{}, false
}
