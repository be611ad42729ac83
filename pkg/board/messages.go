package board

import (
	"github.com/vanderheijden86/pushboard/pkg/model"
	"github.com/vanderheijden86/pushboard/pkg/watcher"
)

// AddPushesMsg adds pushes to the board. Pushes already on the board have
// their jobs merged instead.
type AddPushesMsg struct {
	Pushes []*model.Push
}

// EvictPushMsg removes a push and releases its receiver.
type EvictPushMsg struct {
	PushID int64
}

// SetGroupStateMsg broadcasts a global expand/collapse.
type SetGroupStateMsg struct {
	State model.GroupState
}

// ToggleDuplicatesMsg broadcasts the duplicate-visibility toggle.
type ToggleDuplicatesMsg struct{}

// ExpandPushMsg broadcasts expand-all for one push.
type ExpandPushMsg struct {
	PushID int64
}

// ShowRunnableJobsMsg broadcasts show-runnable for one push.
type ShowRunnableJobsMsg struct {
	PushID int64
}

// DeleteRunnableJobsMsg broadcasts hide-runnable for one push.
type DeleteRunnableJobsMsg struct {
	PushID int64
}

// ApplyNewJobsMsg broadcasts a job refresh for one push.
type ApplyNewJobsMsg struct {
	PushID int64
}

// ReloadPushesMsg asks the board to reload pushes from its loader.
type ReloadPushesMsg struct{}

// PushesLoadedMsg is the result of a push reload.
type PushesLoadedMsg struct {
	Pushes []*model.Push
	Err    error
}

// FileChangedMsg reports a change to a watched data file.
type FileChangedMsg struct {
	Change watcher.Change
}
