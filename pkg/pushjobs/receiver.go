// Package pushjobs owns the live hierarchy of one push and applies the
// events that change it: filter and expansion changes, incoming jobs,
// runnable-job toggles, selection and pins.
//
// A Receiver is driven as a bubbletea model. Update runs each message to
// completion, so two rebuilds never interleave. Network work is returned as
// a tea.Cmd whose result comes back as another message; results are tagged
// with a generation and dropped if the receiver has moved on.
package pushjobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pushboard/pkg/config"
	"github.com/vanderheijden86/pushboard/pkg/debug"
	"github.com/vanderheijden86/pushboard/pkg/events"
	"github.com/vanderheijden86/pushboard/pkg/expansion"
	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/hierarchy"
	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// DefaultFetchTimeout bounds runnable and job fetches.
const DefaultFetchTimeout = 30 * time.Second

// RunnableFetcher loads the runnable placeholder jobs of a push.
type RunnableFetcher interface {
	FetchRunnable(ctx context.Context, pushID int64) ([]*model.Job, error)
}

// JobFetcher loads the current jobs of a push.
type JobFetcher interface {
	FetchJobs(ctx context.Context, pushID int64) ([]*model.Job, error)
}

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Notification is a user-facing message.
type Notification struct {
	PushID   int64
	Severity Severity
	Message  string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// FetchError is reported when a fetch issued by the receiver fails.
type FetchError struct {
	PushID int64
	What   string
	Cause  error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetching %s for push %d: %v", e.What, e.PushID, e.Cause)
}

func (e FetchError) Unwrap() error {
	return e.Cause
}

// ErrNoFetcher is the cause of a FetchError when no fetcher is configured.
var ErrNoFetcher = errors.New("no fetcher configured")

// Deps are the receiver's collaborators. Every field is optional.
type Deps struct {
	Filter       filter.Predicate
	Runnable     RunnableFetcher
	Jobs         JobFetcher
	Notifier     Notifier
	FetchTimeout time.Duration
}

// Receiver holds the hierarchy of one push.
type Receiver struct {
	push   *model.Push
	deps   Deps
	filter filter.Predicate
	groups *expansion.Set
	tree   *hierarchy.Tree

	version          uint64
	selectedID       int64
	pushWideExpanded bool

	// runnableGen advances on every show/hide so that a fetch issued
	// before the latest toggle is recognised as stale.
	runnableGen      uint64
	runnableInFlight bool
	selectedRunnable []string

	pins  *Pinboard
	watch WatchMode

	subs events.Subscriptions
}

// New builds a receiver for push. View parameters are read here once.
func New(push *model.Push, deps Deps, params config.ViewParams) *Receiver {
	if push == nil {
		push = &model.Push{}
	}
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = DefaultFetchTimeout
	}
	pred := deps.Filter
	if pred == nil {
		pred = filter.All
	}
	r := &Receiver{
		push:   push,
		deps:   deps,
		filter: pred,
		groups: expansion.NewSet(expansion.Initial{
			Expanded:       params.GroupsExpanded(),
			ShowDuplicates: params.DuplicatesVisible(),
		}),
		selectedID: params.SelectedJob,
		pins:       NewPinboard(),
	}
	r.rebuild()
	return r
}

// PushID returns the id of the push.
func (r *Receiver) PushID() int64 { return r.push.ID }

// Push returns the underlying push.
func (r *Receiver) Push() *model.Push { return r.push }

// Tree returns the current hierarchy. Trees are never mutated after they
// are published.
func (r *Receiver) Tree() *hierarchy.Tree { return r.tree }

// Version returns the number of trees published so far.
func (r *Receiver) Version() uint64 { return r.version }

// SelectedJobID returns the selected job, or 0.
func (r *Receiver) SelectedJobID() int64 { return r.selectedID }

// RunnableVisible reports the push's runnable flag.
func (r *Receiver) RunnableVisible() bool { return r.push.RunnableVisible }

// SelectedRunnable returns the ref names of the runnable jobs picked for
// scheduling.
func (r *Receiver) SelectedRunnable() []string { return slices.Clone(r.selectedRunnable) }

// Pins returns the pinned job ids.
func (r *Receiver) Pins() []int64 { return r.pins.IDs() }

// Watch returns the current watch mode.
func (r *Receiver) Watch() WatchMode { return r.watch }

// Groups exposes the expansion registry.
func (r *Receiver) Groups() *expansion.Set { return r.groups }

// Init implements tea.Model.
func (r *Receiver) Init() tea.Cmd { return nil }

// Update applies one message and returns follow-up work, if any.
func (r *Receiver) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case FilterChangedMsg:
		r.filter = msg.Filter
		if r.filter == nil {
			r.filter = filter.All
		}
		r.rebuild()

	case GroupStateChangedMsg:
		r.groups.SetAll(msg.State)

	case DuplicatesToggledMsg:
		r.groups.ToggleDuplicates()

	case ExpandAllMsg:
		if msg.PushID != r.push.ID {
			return nil
		}
		return r.expandAll()

	case ExpandAllResetMsg:
		if msg.PushID == r.push.ID {
			r.pushWideExpanded = false
		}

	case ToggleGroupMsg:
		if msg.PushID == r.push.ID {
			r.groups.Get(msg.Key).Toggle()
		}

	case NewJobsMsg:
		if msg.PushID == r.push.ID {
			r.applyJobs(msg.Jobs)
		}

	case RefreshJobsMsg:
		if msg.PushID == r.push.ID {
			return r.fetchJobs()
		}

	case ShowRunnableMsg:
		if msg.PushID == r.push.ID {
			return r.showRunnable()
		}

	case HideRunnableMsg:
		if msg.PushID == r.push.ID {
			r.hideRunnable()
		}

	case RunnableFetchedMsg:
		if msg.PushID == r.push.ID {
			r.applyRunnable(msg)
		}

	case SelectJobMsg:
		if msg.PushID == r.push.ID {
			r.selectJob(msg.JobID)
		}

	case ClickJobMsg:
		if msg.PushID == r.push.ID {
			r.clickJob(msg.JobID, msg.Pin)
		}

	case PinJobMsg:
		if msg.PushID == r.push.ID {
			r.pinJob(msg.JobID)
		}

	case UnpinJobMsg:
		if msg.PushID == r.push.ID {
			r.pins.Unpin(msg.JobID)
		}

	case fetchFailedMsg:
		if msg.err.PushID == r.push.ID {
			r.notify(SeverityWarning, msg.err.Error())
		}

	case CycleWatchMsg:
		if msg.PushID == r.push.ID {
			r.watch = r.watch.Next()
			r.notify(SeverityInfo, fmt.Sprintf("Watching push %s: %s", r.push.ShortRevision(), r.watch))
		}
	}
	return nil
}

func (r *Receiver) options() hierarchy.Options {
	return hierarchy.Options{
		Filter:          r.filter,
		SelectedJobID:   r.selectedID,
		RunnableVisible: r.push.RunnableVisible,
	}
}

func (r *Receiver) publish(t *hierarchy.Tree) {
	r.version++
	t.Version = r.version
	r.tree = t
	for _, e := range t.Errors {
		debug.Log("push %d: skipping malformed node: %v", r.push.ID, e)
	}
}

// rebuild recomputes the whole tree.
func (r *Receiver) rebuild() {
	r.publish(hierarchy.Build(r.push, r.options()))
}

// expandAll pushes every group present now to expanded and raises the
// push-wide flag until the returned reset message arrives.
func (r *Receiver) expandAll() tea.Cmd {
	keys := make([]string, 0)
	for _, p := range r.tree.Platforms {
		for _, g := range p.Groups {
			keys = append(keys, g.Key)
		}
	}
	r.groups.Pulse(keys)
	r.pushWideExpanded = true
	pushID := r.push.ID
	return func() tea.Msg { return ExpandAllResetMsg{PushID: pushID} }
}

// applyJobs merges jobs by id and rebuilds. Jobs with a known id replace the
// existing record in place; unknown ids are appended to their group.
func (r *Receiver) applyJobs(jobs []*model.Job) {
	if len(jobs) == 0 {
		return
	}
	prev := r.tree.Counts
	res := mergeJobs(r.push, jobs)
	for _, err := range res.Errors {
		debug.Log("push %d: dropping job: %v", r.push.ID, err)
	}
	debug.LogIf(res.Replaced+res.Added > 0, "push %d: merged %d replaced, %d added", r.push.ID, res.Replaced, res.Added)
	r.rebuild()

	msg, mode := watchCheck(r.watch, prev, r.tree.Counts)
	r.watch = mode
	if msg != "" {
		r.notify(SeverityInfo, fmt.Sprintf("%s (%s)", msg, r.push.ShortRevision()))
	}
}

func (r *Receiver) fetchJobs() tea.Cmd {
	if r.deps.Jobs == nil {
		return nil
	}
	fetcher, pushID, timeout := r.deps.Jobs, r.push.ID, r.deps.FetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		jobs, err := fetcher.FetchJobs(ctx, pushID)
		if err != nil {
			return fetchFailedMsg{err: FetchError{PushID: pushID, What: "jobs", Cause: err}}
		}
		return NewJobsMsg{PushID: pushID, Jobs: jobs}
	}
}

// showRunnable raises the runnable flag and starts the fetch. The tree is
// left alone until the result arrives.
func (r *Receiver) showRunnable() tea.Cmd {
	if r.push.RunnableVisible && !r.runnableInFlight {
		return nil
	}
	r.runnableGen++
	r.push.RunnableVisible = true
	r.runnableInFlight = true

	gen, pushID, timeout := r.runnableGen, r.push.ID, r.deps.FetchTimeout
	fetcher := r.deps.Runnable
	return func() tea.Msg {
		if fetcher == nil {
			return RunnableFetchedMsg{PushID: pushID, Gen: gen, Err: ErrNoFetcher}
		}
		defer metrics.Timer(metrics.RunnableFetch)()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		jobs, err := fetcher.FetchRunnable(ctx, pushID)
		return RunnableFetchedMsg{PushID: pushID, Gen: gen, Jobs: jobs, Err: err}
	}
}

// applyRunnable applies a fetch result if it still matches the current
// toggle. A failure rolls the flag back and notifies.
func (r *Receiver) applyRunnable(msg RunnableFetchedMsg) {
	if msg.Gen != r.runnableGen || !r.push.RunnableVisible {
		debug.Log("push %d: discarding stale runnable fetch (gen %d, current %d)", r.push.ID, msg.Gen, r.runnableGen)
		return
	}
	r.runnableInFlight = false
	if msg.Err != nil {
		r.push.RunnableVisible = false
		err := FetchError{PushID: r.push.ID, What: "runnable jobs", Cause: msg.Err}
		r.notify(SeverityDanger, err.Error())
		return
	}

	next := r.lowestJobID() - 1
	jobs := make([]*model.Job, 0, len(msg.Jobs))
	for _, j := range msg.Jobs {
		if j == nil {
			continue
		}
		j.State = model.StateRunnable
		if j.PushID == 0 {
			j.PushID = r.push.ID
		}
		if j.ID == 0 {
			j.ID = next
			next--
		}
		jobs = append(jobs, j)
	}
	res := mergeJobs(r.push, jobs)
	for _, err := range res.Errors {
		debug.Log("push %d: dropping runnable job: %v", r.push.ID, err)
	}
	r.rebuild()
}

// lowestJobID returns the smallest id held by the push, or 0 when no job has
// a negative id.
func (r *Receiver) lowestJobID() int64 {
	var low int64
	for id := range r.push.Index() {
		low = min(low, id)
	}
	return low
}

// hideRunnable deletes every runnable job. Any fetch still in flight is
// invalidated.
func (r *Receiver) hideRunnable() {
	r.runnableGen++
	r.runnableInFlight = false
	wasVisible := r.push.RunnableVisible
	r.push.RunnableVisible = false
	r.selectedRunnable = nil

	if jv, ok := r.tree.Job(r.selectedID); ok && jv.Job.IsRunnable() {
		r.selectedID = 0
	}
	removed := r.push.RemoveJobs((*model.Job).IsRunnable)
	if removed > 0 {
		r.pruneState()
	}
	if removed > 0 || wasVisible {
		r.rebuild()
	}
}

// pruneState drops pins and group states that no longer match anything in
// the push.
func (r *Receiver) pruneState() {
	idx := r.push.Index()
	r.pins.Retain(func(id int64) bool {
		_, ok := idx[id]
		return ok
	})
	keys := make(map[string]struct{})
	for _, plat := range r.push.Platforms {
		if plat == nil {
			continue
		}
		for _, grp := range plat.Groups {
			if grp != nil {
				keys[grp.MapKey(plat)] = struct{}{}
			}
		}
	}
	r.groups.Retain(func(key string) bool {
		_, ok := keys[key]
		return ok
	})
}

// selectJob moves the push-wide selection. Only the two affected jobs are
// re-evaluated.
func (r *Receiver) selectJob(id int64) {
	prev := r.selectedID
	if prev == id {
		return
	}
	r.selectedID = id
	r.publish(r.tree.Reselect(prev, id, r.options()))
}

func (r *Receiver) clickJob(id int64, pin bool) {
	jv, ok := r.tree.Job(id)
	if !ok {
		return
	}
	switch {
	case jv.Job.IsRunnable():
		r.toggleRunnableSelection(jv.Job)
	case pin:
		r.pinJob(id)
	default:
		r.selectJob(id)
	}
}

func (r *Receiver) toggleRunnableSelection(job *model.Job) {
	name := job.RefDataName
	if name == "" {
		name = job.JobTypeName
	}
	if i := slices.Index(r.selectedRunnable, name); i >= 0 {
		r.selectedRunnable = slices.Delete(r.selectedRunnable, i, i+1)
		return
	}
	r.selectedRunnable = append(r.selectedRunnable, name)
}

// pinJob pins a job, selecting it when nothing is selected yet.
func (r *Receiver) pinJob(id int64) {
	if _, ok := r.tree.Job(id); !ok {
		return
	}
	if err := r.pins.Pin(id); err != nil {
		r.notify(SeverityDanger, fmt.Sprintf("Maximum number of pins reached (%d)", MaxPinnedJobs))
		return
	}
	if r.selectedID == 0 {
		r.selectJob(id)
	}
}

func (r *Receiver) notify(sev Severity, msg string) {
	debug.Log("push %d notify [%s]: %s", r.push.ID, sev, msg)
	if r.deps.Notifier != nil {
		r.deps.Notifier.Notify(Notification{PushID: r.push.ID, Severity: sev, Message: msg})
	}
}

// fetchFailedMsg reports a failed job refresh; the tree is left as is.
type fetchFailedMsg struct {
	err FetchError
}

func (m fetchFailedMsg) TargetPush() int64 { return m.err.PushID }
