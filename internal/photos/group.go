package photos

import (
	"slices"
	"time"
)

// Photo is one source image.
type Photo struct {
	Path      string
	FileName  string
	TakenTime time.Time
}

// Group is a non-empty run of photos in capture order.
type Group []Photo

// First returns the earliest photo of the group.
func (g Group) First() Photo { return g[0] }

// Last returns the latest photo of the group.
func (g Group) Last() Photo { return g[len(g)-1] }

// GroupByTime sorts photos by capture time and starts a new group whenever the
// gap to the previous photo strictly exceeds threshold. Ties keep their input
// order. The input slice is not modified.
func GroupByTime(photos []Photo, threshold time.Duration) []Group {
	if len(photos) == 0 {
		return []Group{}
	}

	sorted := slices.Clone(photos)
	slices.SortStableFunc(sorted, func(a, b Photo) int {
		return a.TakenTime.Compare(b.TakenTime)
	})

	groups := make([]Group, 0, 1)
	current := Group{sorted[0]}
	prev := sorted[0].TakenTime
	for _, photo := range sorted[1:] {
		if photo.TakenTime.Sub(prev) > threshold {
			groups = append(groups, current)
			current = Group{}
		}
		current = append(current, photo)
		prev = photo.TakenTime
	}
	return append(groups, current)
}
