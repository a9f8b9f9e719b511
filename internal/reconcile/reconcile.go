// package reconcile computes which subscribed items no keep list protects.
//
// Every function here is pure: inputs are never mutated and equal inputs give equal outputs.
package reconcile

import (
	"cmp"
	"slices"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// ComputeRemovalSet returns the items of all that carry none of excludedTags and are referenced by
// no keep set, ordered by case-folded name and then by id.
//
// With no keep sets nothing is protected and every non-excluded item is returned.
func ComputeRemovalSet(all []models.RemoteItem, keep []models.KeepSet, excludedTags []string) []models.RemoteItem {
	protected := make(map[models.ItemID]struct{})
	for _, set := range keep {
		for _, e := range set.Entries {
			protected[e.ID] = struct{}{}
		}
	}

	fold := cases.Fold()
	type keyed struct {
		key  string
		item models.RemoteItem
	}

	var out []keyed
	for _, item := range all {
		if excluded(item, excludedTags) {
			continue
		}
		if _, ok := protected[item.ID]; ok {
			continue
		}
		out = append(out, keyed{key: fold.String(item.Name), item: item})
	}

	slices.SortFunc(out, func(a, b keyed) int {
		return cmp.Or(cmp.Compare(a.key, b.key), cmp.Compare(a.item.ID, b.item.ID))
	})

	items := make([]models.RemoteItem, len(out))
	for i, k := range out {
		items[i] = k.item
	}
	return items
}

func excluded(item models.RemoteItem, tags []string) bool {
	for _, tag := range tags {
		if item.HasTag(tag) {
			return true
		}
	}
	return false
}

// KeepIDs returns the sorted, de-duplicated union of ids across keep sets.
func KeepIDs(keep []models.KeepSet) []models.ItemID {
	var ids []models.ItemID
	for _, set := range keep {
		ids = append(ids, set.IDs()...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Candidates wraps the removal set for selection.
//
// An item that was a candidate before keeps its Selected flag; new items get defaultSelected.
func Candidates(removal []models.RemoteItem, prior []models.RemovalCandidate, defaultSelected bool) []models.RemovalCandidate {
	previous := make(map[models.ItemID]bool, len(prior))
	for _, c := range prior {
		previous[c.Item.ID] = c.Selected
	}

	out := make([]models.RemovalCandidate, len(removal))
	for i, item := range removal {
		selected, ok := previous[item.ID]
		if !ok {
			selected = defaultSelected
		}
		out[i] = models.RemovalCandidate{Item: item, Selected: selected}
	}
	return out
}

// Selected returns the ids of selected candidates in list order.
func Selected(candidates []models.RemovalCandidate) []models.ItemID {
	var ids []models.ItemID
	for _, c := range candidates {
		if c.Selected {
			ids = append(ids, c.Item.ID)
		}
	}
	return ids
}

// Summarize counts the subscription and the current selection.
func Summarize(subscribed int, candidates []models.RemovalCandidate) models.Stats {
	stats := models.Stats{Subscribed: subscribed, Candidates: len(candidates)}
	for _, c := range candidates {
		if c.Selected {
			stats.Selected++
			stats.SelectedBytes += c.Item.LocalSizeBytes
		}
	}
	return stats
}

type candidateNames []models.RemovalCandidate

func (c candidateNames) String(i int) string { return c[i].Item.Name }
func (c candidateNames) Len() int            { return len(c) }

// Filter returns the candidates whose name fuzzily matches query, keeping list order.
// An empty query matches everything.
func Filter(candidates []models.RemovalCandidate, query string) []models.RemovalCandidate {
	if query == "" {
		return slices.Clone(candidates)
	}

	matches := fuzzy.FindFrom(query, candidateNames(candidates))
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	slices.Sort(idx)

	out := make([]models.RemovalCandidate, len(idx))
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}
