package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var idPattern = regexp.MustCompile(`\d{4,}`)

// ItemID is a stable workshop item identifier.
type ItemID uint64

func (id ItemID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseItemID parses a bare decimal identifier or extracts the first run of at least four digits
// from s, which covers workshop URLs such as ".../filedetails/?id=450814997".
func ParseItemID(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty item id")
	}

	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ItemID(v), nil
	}

	match := idPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("no item id in %q", s)
	}

	v, err := strconv.ParseUint(match, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", match, err)
	}
	return ItemID(v), nil
}

// RemoteItem is one item known to the workshop service.
//
// Identity is by ID alone.
type RemoteItem struct {
	ID             ItemID   `json:"id"`
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Tags           []string `json:"tags,omitempty"`
	LocalSizeBytes uint64   `json:"local_size_bytes"`
}

// HasTag reports whether the item carries tag, ignoring case.
func (i RemoteItem) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// KeepEntry is a single (id, name, url) triple taken from a preset.
type KeepEntry struct {
	ID   ItemID `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// KeepSet is a named collection of item identifiers the user wants to retain.
type KeepSet struct {
	Name    string      `json:"name"`
	Source  string      `json:"source,omitempty"` // File the set was loaded from
	Entries []KeepEntry `json:"entries"`
}

// IDs returns the identifiers referenced by the set in document order.
func (k KeepSet) IDs() []ItemID {
	ids := make([]ItemID, len(k.Entries))
	for i, e := range k.Entries {
		ids[i] = e.ID
	}
	return ids
}

// RemovalCandidate is a removable item with a user-toggleable selection flag.
type RemovalCandidate struct {
	Item     RemoteItem `json:"item"`
	Selected bool       `json:"selected"`
}

// Stats aggregates what the UI shows above the candidate list.
type Stats struct {
	Subscribed    int    `json:"subscribed"`     // Items currently subscribed
	Candidates    int    `json:"candidates"`     // Items eligible for removal
	Selected      int    `json:"selected"`       // Candidates selected for removal
	SelectedBytes uint64 `json:"selected_bytes"` // Disk space the selection would free
}

// BatchFailure records one item a batch could not remove.
type BatchFailure struct {
	ID    ItemID `json:"id"`
	Error string `json:"error"`
}

// BatchRun is the persisted summary of one unsubscribe batch.
type BatchRun struct {
	ID         string         `json:"id"`
	AppID      uint32         `json:"app_id"`
	Attempted  int            `json:"attempted"`
	Succeeded  int            `json:"succeeded"`
	Failures   []BatchFailure `json:"failures,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
