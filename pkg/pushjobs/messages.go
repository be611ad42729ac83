package pushjobs

import (
	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Messages handled by Receiver.Update. Messages that carry a PushID are
// ignored by receivers for other pushes; the rest apply to every push.

// FilterChangedMsg replaces the active filter.
type FilterChangedMsg struct {
	Filter filter.Predicate
}

// ExpandAllMsg pulses every group of the push open.
type ExpandAllMsg struct {
	PushID int64
}

// ExpandAllResetMsg clears the push-wide expand flag after a pulse.
type ExpandAllResetMsg struct {
	PushID int64
}

// ToggleGroupMsg is a local click on a group symbol.
type ToggleGroupMsg struct {
	PushID int64
	Key    string
}

// GroupStateChangedMsg is the global group-state broadcast.
type GroupStateChangedMsg struct {
	State model.GroupState
}

// DuplicatesToggledMsg is the global duplicate-visibility broadcast.
type DuplicatesToggledMsg struct{}

// NewJobsMsg delivers new or changed jobs for a push.
type NewJobsMsg struct {
	PushID int64
	Jobs   []*model.Job
}

// RefreshJobsMsg asks the receiver to pull updated jobs from its job source.
type RefreshJobsMsg struct {
	PushID int64
}

// ShowRunnableMsg turns runnable jobs on for a push.
type ShowRunnableMsg struct {
	PushID int64
}

// HideRunnableMsg turns runnable jobs off and deletes them.
type HideRunnableMsg struct {
	PushID int64
}

// RunnableFetchedMsg is the result of a runnable-jobs fetch. Gen is the
// generation the fetch was issued under.
type RunnableFetchedMsg struct {
	PushID int64
	Gen    uint64
	Jobs   []*model.Job
	Err    error
}

// SelectJobMsg makes JobID the selected job. JobID 0 clears the selection.
type SelectJobMsg struct {
	PushID int64
	JobID  int64
}

// ClickJobMsg is a click on a job button. Pin is set when the pin modifier
// was held.
type ClickJobMsg struct {
	PushID int64
	JobID  int64
	Pin    bool
}

// PinJobMsg pins a job.
type PinJobMsg struct {
	PushID int64
	JobID  int64
}

// UnpinJobMsg removes a job from the pinboard.
type UnpinJobMsg struct {
	PushID int64
	JobID  int64
}

// CycleWatchMsg advances the push's watch mode.
type CycleWatchMsg struct {
	PushID int64
}

// Scoped is implemented by messages addressed to a single push.
type Scoped interface {
	TargetPush() int64
}

func (m ExpandAllMsg) TargetPush() int64       { return m.PushID }
func (m ExpandAllResetMsg) TargetPush() int64  { return m.PushID }
func (m ToggleGroupMsg) TargetPush() int64     { return m.PushID }
func (m NewJobsMsg) TargetPush() int64         { return m.PushID }
func (m RefreshJobsMsg) TargetPush() int64     { return m.PushID }
func (m ShowRunnableMsg) TargetPush() int64    { return m.PushID }
func (m HideRunnableMsg) TargetPush() int64    { return m.PushID }
func (m RunnableFetchedMsg) TargetPush() int64 { return m.PushID }
func (m SelectJobMsg) TargetPush() int64       { return m.PushID }
func (m ClickJobMsg) TargetPush() int64        { return m.PushID }
func (m PinJobMsg) TargetPush() int64          { return m.PushID }
func (m UnpinJobMsg) TargetPush() int64        { return m.PushID }
func (m CycleWatchMsg) TargetPush() int64      { return m.PushID }
