package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/amdu/internal/formatter"
	"github.com/desertthunder/amdu/internal/models"
)

var _ list.Item = candidateItem{}

// candidateItem wraps [models.RemovalCandidate] to implement [list.Item].
type candidateItem struct {
	candidate models.RemovalCandidate
}

func (i candidateItem) FilterValue() string { return i.candidate.Item.Name }
func (i candidateItem) Title() string {
	mark := "[ ]"
	if i.candidate.Selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.candidate.Item.Name)
}
func (i candidateItem) Description() string {
	return fmt.Sprintf("%s • %s", i.candidate.Item.ID, formatter.FormatSize(i.candidate.Item.LocalSizeBytes))
}

func candidateItems(candidates []models.RemovalCandidate) []list.Item {
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = candidateItem{candidate: c}
	}
	return items
}
