package gallery

import (
	"sort"

	"xelda/internal/design"
	"xelda/internal/storage"
)

// Sort orders accepted by FilterAndSort.
const (
	SortRecent   = "recent"
	SortPopular  = "popular"
	SortTrending = "trending"
)

// Filter narrows and orders a set of design records.
type Filter struct {
	Style string
	Room  string
	Sort  string
}

// FilterAndSort applies the filter and returns a new ordered slice. Sorts
// are stable so records with equal keys keep their incoming order.
func FilterAndSort(records []storage.DesignRecord, f Filter) []storage.DesignRecord {
	out := make([]storage.DesignRecord, 0, len(records))
	for _, record := range records {
		if !matchesFilter(f.Style, record.StyleID) {
			continue
		}
		if !matchesFilter(f.Room, record.RoomType) {
			continue
		}
		out = append(out, record)
	}

	switch f.Sort {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LikeCount > out[j].LikeCount
		})
	case SortTrending:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ViewCount > out[j].ViewCount
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// matchesFilter applies a string-equality filter where "all" or an empty
// value means no filtering at all.
func matchesFilter(want, have string) bool {
	return want == "" || want == "all" || want == have
}

// ComputeStyleHistogram counts base style usage across records. Fused
// styles contribute one count per component, so "Modern+Cozy" plus
// "Modern" yields Modern:2 Cozy:1.
func ComputeStyleHistogram(records []storage.DesignRecord) design.StyleProfile {
	profile := make(design.StyleProfile)
	for _, record := range records {
		for _, token := range design.SplitStyleID(record.StyleID) {
			profile[token]++
		}
	}
	return profile
}

// DominantStyles orders style IDs by descending count. Ties keep the order
// styles were first seen in the records.
func DominantStyles(records []storage.DesignRecord) []string {
	counts := make(map[string]int)
	var order []string
	for _, record := range records {
		for _, token := range design.SplitStyleID(record.StyleID) {
			if _, seen := counts[token]; !seen {
				order = append(order, token)
			}
			counts[token]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}
