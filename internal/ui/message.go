package ui

import (
	"time"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/presets"
	"github.com/desertthunder/amdu/internal/tasks"
)

// refreshedMsg reports the end of a universe fetch.
type refreshedMsg struct {
	err error
}

// savedPresetsMsg carries keep sets restored from the database.
type savedPresetsMsg struct {
	sets []models.KeepSet
	err  error
}

// presetsLoadedMsg carries the outcome of loading preset files typed by the user.
type presetsLoadedMsg struct {
	result *presets.LoadResult
	err    error
}

// presetChangedMsg reports that a watched preset file changed and was re-parsed.
type presetChangedMsg struct {
	path string
	set  models.KeepSet
	err  error
}

// batchTickMsg drives progress polling while a batch runs.
type batchTickMsg time.Time

// batchDoneMsg carries the outcome of a batch and the refresh after it.
type batchDoneMsg struct {
	result *tasks.BatchResult
	err    error
}

// progressUpdateMsg relays a [tasks.ProgressUpdate] from a running batch.
type progressUpdateMsg tasks.ProgressUpdate

// openedMsg reports the outcome of opening an item page in the browser.
type openedMsg struct {
	url string
	err error
}
