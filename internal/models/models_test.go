package models

import "testing"

func TestParseItemID(t *testing.T) {
	tc := []struct {
		name    string
		in      string
		want    ItemID
		wantErr bool
	}{
		{name: "bare id", in: "450814997", want: 450814997},
		{name: "padded id", in: "  463939057 ", want: 463939057},
		{name: "workshop url", in: "https://steamcommunity.com/sharedfiles/filedetails/?id=450814997", want: 450814997},
		{name: "short bare number", in: "42", want: 42},
		{name: "short digits in text", in: "id=123", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "no digits", in: "https://example.com/mods", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItemID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseItemID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoteItemHasTag(t *testing.T) {
	item := RemoteItem{ID: 1, Tags: []string{"Scenario", "Mod"}}

	if !item.HasTag("scenario") {
		t.Error("tag match should ignore case")
	}
	if item.HasTag("Terrain") {
		t.Error("unexpected tag match")
	}
}

func TestKeepSetIDs(t *testing.T) {
	set := KeepSet{Name: "main", Entries: []KeepEntry{{ID: 3}, {ID: 1}, {ID: 3}}}

	ids := set.IDs()
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("expected ids in document order, got %v", ids)
	}
}
