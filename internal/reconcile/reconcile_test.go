package reconcile

import (
	"fmt"
	"math/rand"
	"reflect"
	"slices"
	"testing"

	"github.com/desertthunder/amdu/internal/models"
)

func items(ids ...models.ItemID) []models.RemoteItem {
	out := make([]models.RemoteItem, len(ids))
	for i, id := range ids {
		out[i] = models.RemoteItem{ID: id, Name: fmt.Sprintf("item %d", id)}
	}
	return out
}

func keepSet(name string, ids ...models.ItemID) models.KeepSet {
	set := models.KeepSet{Name: name}
	for _, id := range ids {
		set.Entries = append(set.Entries, models.KeepEntry{ID: id})
	}
	return set
}

func ids(list []models.RemoteItem) []models.ItemID {
	out := make([]models.ItemID, len(list))
	for i, it := range list {
		out[i] = it.ID
	}
	return out
}

func TestComputeRemovalSet(t *testing.T) {
	t.Run("case-insensitive name order", func(t *testing.T) {
		all := []models.RemoteItem{{ID: 1, Name: "B"}, {ID: 2, Name: "a"}}

		got := ComputeRemovalSet(all, nil, nil)
		if !reflect.DeepEqual(ids(got), []models.ItemID{2, 1}) {
			t.Errorf("expected [2 1], got %v", ids(got))
		}
	})

	t.Run("keep set subtracts ids", func(t *testing.T) {
		got := ComputeRemovalSet(items(1, 2, 3), []models.KeepSet{keepSet("main", 2)}, nil)
		if !reflect.DeepEqual(ids(got), []models.ItemID{1, 3}) {
			t.Errorf("expected [1 3], got %v", ids(got))
		}
	})

	t.Run("no keep sets protects nothing", func(t *testing.T) {
		all := items(3, 1, 2)
		got := ComputeRemovalSet(all, nil, nil)
		if len(got) != len(all) {
			t.Errorf("expected every item, got %v", ids(got))
		}
	})

	t.Run("empty keep set protects nothing", func(t *testing.T) {
		got := ComputeRemovalSet(items(1, 2), []models.KeepSet{keepSet("empty")}, nil)
		if len(got) != 2 {
			t.Errorf("expected both items, got %v", ids(got))
		}
	})

	t.Run("multiple keep sets are unioned", func(t *testing.T) {
		keep := []models.KeepSet{keepSet("a", 1), keepSet("b", 3)}
		got := ComputeRemovalSet(items(1, 2, 3, 4), keep, nil)
		if !reflect.DeepEqual(ids(got), []models.ItemID{2, 4}) {
			t.Errorf("expected [2 4], got %v", ids(got))
		}
	})

	t.Run("excluded tags are dropped before subtraction", func(t *testing.T) {
		all := []models.RemoteItem{
			{ID: 1, Name: "Altis Life", Tags: []string{"scenario"}},
			{ID: 2, Name: "CBA_A3", Tags: []string{"Mod"}},
		}
		got := ComputeRemovalSet(all, nil, []string{"Scenario"})
		if !reflect.DeepEqual(ids(got), []models.ItemID{2}) {
			t.Errorf("expected [2], got %v", ids(got))
		}
	})

	t.Run("equal names fall back to id order", func(t *testing.T) {
		all := []models.RemoteItem{{ID: 9, Name: "mod"}, {ID: 4, Name: "MOD"}, {ID: 6, Name: "Mod"}}
		got := ComputeRemovalSet(all, nil, nil)
		if !reflect.DeepEqual(ids(got), []models.ItemID{4, 6, 9}) {
			t.Errorf("expected [4 6 9], got %v", ids(got))
		}
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		all := []models.RemoteItem{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}
		before := slices.Clone(all)
		ComputeRemovalSet(all, nil, nil)
		if !reflect.DeepEqual(all, before) {
			t.Error("input slice was reordered")
		}
	})
}

// TestComputeRemovalSetProperties checks the invariants over random inputs.
func TestComputeRemovalSetProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names := []string{"ace", "ACE", "cba", "Zeus", "álvaro", "Alpha", "rhs"}
	tags := []string{"Scenario", "Mod", "Terrain"}

	for round := range 200 {
		var all []models.RemoteItem
		for i := range rng.Intn(20) {
			item := models.RemoteItem{ID: models.ItemID(1000 + i), Name: names[rng.Intn(len(names))]}
			if rng.Intn(3) == 0 {
				item.Tags = []string{tags[rng.Intn(len(tags))]}
			}
			all = append(all, item)
		}

		var keep []models.KeepSet
		for range rng.Intn(3) {
			var ks []models.ItemID
			for range rng.Intn(5) {
				ks = append(ks, models.ItemID(1000+rng.Intn(25)))
			}
			keep = append(keep, keepSet("k", ks...))
		}
		excludedTags := []string{"scenario"}

		first := ComputeRemovalSet(all, keep, excludedTags)
		second := ComputeRemovalSet(all, keep, excludedTags)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("round %d: result is not deterministic", round)
		}

		kept := make(map[models.ItemID]bool)
		for _, id := range KeepIDs(keep) {
			kept[id] = true
		}
		for _, it := range first {
			if len(keep) > 0 && kept[it.ID] {
				t.Fatalf("round %d: kept item %d in removal set", round, it.ID)
			}
			if it.HasTag("Scenario") {
				t.Fatalf("round %d: excluded item %d in removal set", round, it.ID)
			}
		}

		if len(keep) == 0 {
			want := 0
			for _, it := range all {
				if !it.HasTag("Scenario") {
					want++
				}
			}
			if len(first) != want {
				t.Fatalf("round %d: expected %d items without keep sets, got %d", round, want, len(first))
			}
		}
	}
}

func TestKeepIDs(t *testing.T) {
	got := KeepIDs([]models.KeepSet{keepSet("a", 5, 1), keepSet("b", 1, 3)})
	if !reflect.DeepEqual(got, []models.ItemID{1, 3, 5}) {
		t.Errorf("expected [1 3 5], got %v", got)
	}
}

func TestCandidates(t *testing.T) {
	t.Run("new candidates take the default", func(t *testing.T) {
		got := Candidates(items(1, 2), nil, true)
		for _, c := range got {
			if !c.Selected {
				t.Errorf("expected %d selected", c.Item.ID)
			}
		}
	})

	t.Run("selection survives recompute by id", func(t *testing.T) {
		prior := []models.RemovalCandidate{
			{Item: models.RemoteItem{ID: 1}, Selected: false},
			{Item: models.RemoteItem{ID: 2}, Selected: true},
		}
		got := Candidates(items(2, 1, 3), prior, true)

		want := map[models.ItemID]bool{1: false, 2: true, 3: true}
		for _, c := range got {
			if c.Selected != want[c.Item.ID] {
				t.Errorf("item %d selected = %v, want %v", c.Item.ID, c.Selected, want[c.Item.ID])
			}
		}
	})
}

func TestSummarize(t *testing.T) {
	candidates := []models.RemovalCandidate{
		{Item: models.RemoteItem{ID: 1, LocalSizeBytes: 1000}, Selected: true},
		{Item: models.RemoteItem{ID: 2, LocalSizeBytes: 500}, Selected: false},
		{Item: models.RemoteItem{ID: 3, LocalSizeBytes: 250}, Selected: true},
	}

	got := Summarize(10, candidates)
	want := models.Stats{Subscribed: 10, Candidates: 3, Selected: 2, SelectedBytes: 1250}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}

	if sel := Selected(candidates); !reflect.DeepEqual(sel, []models.ItemID{1, 3}) {
		t.Errorf("Selected() = %v", sel)
	}
}

func TestFilter(t *testing.T) {
	candidates := []models.RemovalCandidate{
		{Item: models.RemoteItem{ID: 1, Name: "ACE3"}},
		{Item: models.RemoteItem{ID: 2, Name: "CBA_A3"}},
		{Item: models.RemoteItem{ID: 3, Name: "ace extras"}},
	}

	t.Run("empty query keeps everything", func(t *testing.T) {
		if got := Filter(candidates, ""); len(got) != 3 {
			t.Errorf("expected 3 candidates, got %d", len(got))
		}
	})

	t.Run("keeps list order", func(t *testing.T) {
		got := Filter(candidates, "ace")
		if len(got) != 2 || got[0].Item.ID != 1 || got[1].Item.ID != 3 {
			t.Errorf("unexpected filter result %+v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if got := Filter(candidates, "zzz"); len(got) != 0 {
			t.Errorf("expected no matches, got %+v", got)
		}
	})
}
