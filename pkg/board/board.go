// Package board drives the push list: one pushjobs.Receiver per push, the
// broadcast bus that connects them, and the data-file reloads that feed new
// jobs in. Board is a bubbletea model; the CLI runs it either as a program
// (watch mode) or settles it synchronously and prints View.
package board

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pushboard/pkg/config"
	"github.com/vanderheijden86/pushboard/pkg/debug"
	"github.com/vanderheijden86/pushboard/pkg/events"
	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/loader"
	"github.com/vanderheijden86/pushboard/pkg/model"
	"github.com/vanderheijden86/pushboard/pkg/pushjobs"
	"github.com/vanderheijden86/pushboard/pkg/watcher"
)

// ErrUnknownPush is logged when jobs arrive for a push that is not on the
// board.
var ErrUnknownPush = errors.New("unknown push")

// Source loads pushes and serves the receivers' fetches.
type Source interface {
	pushjobs.RunnableFetcher
	pushjobs.JobFetcher
	LoadPushes(ctx context.Context) ([]*model.Push, error)
}

// Options configure a Board. Every field is optional.
type Options struct {
	Source       Source
	Filter       filter.Predicate
	Params       config.ViewParams
	FetchTimeout time.Duration

	// Stream is tail-read on start and whenever the watcher reports a
	// change to its path.
	Stream *loader.JobStream
	// PushesPath triggers a push reload when the watcher reports it.
	PushesPath string
	Watcher    *watcher.Watcher

	Width             int
	NotificationLimit int
}

// Board is the push list model.
type Board struct {
	opts       Options
	bus        *events.Bus
	receivers  map[int64]*pushjobs.Receiver
	order      []int64
	notes      *Notifications
	queue      []tea.Msg
	width      int
	streamPath string
	pushesPath string
}

// initialStreamMsg reads the stream once at start without re-arming the
// watcher.
type initialStreamMsg struct{}

// New creates an empty board.
func New(opts Options) *Board {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = pushjobs.DefaultFetchTimeout
	}
	b := &Board{
		opts:      opts,
		bus:       events.NewBus(),
		receivers: make(map[int64]*pushjobs.Receiver),
		notes:     NewNotifications(opts.NotificationLimit),
		width:     opts.Width,
	}
	if opts.Stream != nil {
		b.streamPath = absPath(opts.Stream.Path())
	}
	b.pushesPath = absPath(opts.PushesPath)
	return b
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Bus returns the board's broadcast bus.
func (b *Board) Bus() *events.Bus { return b.bus }

// Notifications returns the notification collector.
func (b *Board) Notifications() *Notifications { return b.notes }

// PushIDs returns the pushes on the board, newest first.
func (b *Board) PushIDs() []int64 { return slices.Clone(b.order) }

// Receiver returns the receiver of a push.
func (b *Board) Receiver(pushID int64) (*pushjobs.Receiver, bool) {
	r, ok := b.receivers[pushID]
	return r, ok
}

// Close unsubscribes every receiver.
func (b *Board) Close() {
	for _, r := range b.receivers {
		r.Close()
	}
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	var cmds []tea.Cmd
	if b.opts.Stream != nil {
		cmds = append(cmds, func() tea.Msg { return initialStreamMsg{} })
	}
	if b.opts.Watcher != nil {
		cmds = append(cmds, waitForChange(b.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// waitForChange blocks on the watcher and reports the next change.
func waitForChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return FileChangedMsg{Change: <-w.Changes()}
	}
}

// Update implements tea.Model. Signals published on the bus while handling
// msg are delivered before Update returns.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{b.handle(msg)}
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		cmds = append(cmds, b.dispatch(next))
	}
	return b, tea.Batch(cmds...)
}

func (b *Board) enqueue(msg tea.Msg) {
	b.queue = append(b.queue, msg)
}

func (b *Board) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)

	case tea.WindowSizeMsg:
		b.width = msg.Width

	case AddPushesMsg:
		b.addPushes(msg.Pushes)

	case EvictPushMsg:
		b.evict(msg.PushID)

	case SetGroupStateMsg:
		b.bus.GroupStateChanged.Publish(msg.State)

	case ToggleDuplicatesMsg:
		b.bus.DuplicateJobsVisibilityChanged.Publish(struct{}{})

	case ExpandPushMsg:
		b.bus.ExpandAllPushGroups.Publish(msg.PushID)

	case ShowRunnableJobsMsg:
		b.bus.ShowRunnableJobs.Publish(msg.PushID)

	case DeleteRunnableJobsMsg:
		b.bus.DeleteRunnableJobs.Publish(msg.PushID)

	case ApplyNewJobsMsg:
		b.bus.ApplyNewJobs.Publish(msg.PushID)

	case ReloadPushesMsg:
		return b.loadPushes()

	case PushesLoadedMsg:
		if msg.Err != nil {
			b.notes.Notify(pushjobs.Notification{
				Severity: pushjobs.SeverityDanger,
				Message:  fmt.Sprintf("Failed to reload pushes: %v", msg.Err),
			})
			return nil
		}
		b.addPushes(msg.Pushes)

	case initialStreamMsg:
		b.readStream()

	case FileChangedMsg:
		return b.fileChanged(msg.Change)

	default:
		return b.dispatch(msg)
	}
	return nil
}

func (b *Board) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "e":
		b.bus.GroupStateChanged.Publish(model.GroupExpanded)
	case "c":
		b.bus.GroupStateChanged.Publish(model.GroupCollapsed)
	case "d":
		b.bus.DuplicateJobsVisibilityChanged.Publish(struct{}{})
	case "r":
		return b.loadPushes()
	}
	return nil
}

// dispatch routes a receiver message: scoped messages go to their push,
// the rest to every push.
func (b *Board) dispatch(msg tea.Msg) tea.Cmd {
	scoped, ok := msg.(pushjobs.Scoped)
	if !ok {
		cmds := make([]tea.Cmd, 0, len(b.order))
		for _, id := range b.order {
			cmds = append(cmds, b.receivers[id].Update(msg))
		}
		return tea.Batch(cmds...)
	}

	id := scoped.TargetPush()
	r, ok := b.receivers[id]
	if !ok {
		debug.Log("board: dropping %T: %v", msg, fmt.Errorf("push %d: %w", id, ErrUnknownPush))
		return nil
	}
	cmd := r.Update(msg)
	switch msg.(type) {
	case pushjobs.SelectJobMsg, pushjobs.ClickJobMsg:
		if r.SelectedJobID() != 0 {
			b.deselectOthers(id)
		}
	}
	return cmd
}

// deselectOthers keeps a single selection across the board.
func (b *Board) deselectOthers(keep int64) {
	for _, id := range b.order {
		if id == keep {
			continue
		}
		if r := b.receivers[id]; r.SelectedJobID() != 0 {
			r.Update(pushjobs.SelectJobMsg{PushID: id, JobID: 0})
		}
	}
}

func (b *Board) deps() pushjobs.Deps {
	d := pushjobs.Deps{
		Filter:       b.opts.Filter,
		Notifier:     b.notes,
		FetchTimeout: b.opts.FetchTimeout,
	}
	if b.opts.Source != nil {
		d.Runnable = b.opts.Source
		d.Jobs = b.opts.Source
	}
	return d
}

// addPushes creates receivers for new pushes and merges the jobs of known
// ones.
func (b *Board) addPushes(pushes []*model.Push) {
	added := false
	for _, p := range pushes {
		if p == nil {
			continue
		}
		if _, ok := b.receivers[p.ID]; ok {
			b.enqueue(pushjobs.NewJobsMsg{PushID: p.ID, Jobs: pushJobs(p)})
			continue
		}
		r := pushjobs.New(p, b.deps(), b.opts.Params)
		r.Subscribe(b.bus, b.enqueue)
		b.receivers[p.ID] = r
		b.order = append(b.order, p.ID)
		added = true
	}
	if added {
		sort.SliceStable(b.order, func(i, j int) bool {
			pi, pj := b.receivers[b.order[i]].Push(), b.receivers[b.order[j]].Push()
			if pi.PushTimestamp != pj.PushTimestamp {
				return pi.PushTimestamp > pj.PushTimestamp
			}
			return pi.ID > pj.ID
		})
	}
}

func pushJobs(p *model.Push) []*model.Job {
	var jobs []*model.Job
	for _, plat := range p.Platforms {
		for _, grp := range plat.Groups {
			jobs = append(jobs, grp.Jobs...)
		}
	}
	return jobs
}

func (b *Board) evict(pushID int64) {
	r, ok := b.receivers[pushID]
	if !ok {
		return
	}
	r.Close()
	delete(b.receivers, pushID)
	b.order = slices.DeleteFunc(b.order, func(id int64) bool { return id == pushID })
}

func (b *Board) loadPushes() tea.Cmd {
	src := b.opts.Source
	if src == nil {
		return nil
	}
	timeout := b.opts.FetchTimeout
	return func() tea.Msg {
		defer debug.LogEnterExit("reload pushes")()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		pushes, err := src.LoadPushes(ctx)
		return PushesLoadedMsg{Pushes: pushes, Err: err}
	}
}

// fileChanged reacts to a watcher report and re-arms the watcher.
func (b *Board) fileChanged(c watcher.Change) tea.Cmd {
	var cmds []tea.Cmd
	switch {
	case c.Path != "" && c.Path == b.streamPath:
		b.readStream()
	case c.Path != "" && c.Path == b.pushesPath && !c.Removed:
		cmds = append(cmds, b.loadPushes())
	}
	if b.opts.Watcher != nil {
		cmds = append(cmds, waitForChange(b.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// readStream applies the jobs appended to the stream since the last read.
func (b *Board) readStream() {
	if b.opts.Stream == nil {
		return
	}
	jobs, err := b.opts.Stream.ReadNew()
	if err != nil {
		b.notes.Notify(pushjobs.Notification{
			Severity: pushjobs.SeverityWarning,
			Message:  fmt.Sprintf("Failed to read job stream: %v", err),
		})
		return
	}
	byPush := loader.GroupByPush(jobs)
	ids := make([]int64, 0, len(byPush))
	for id := range byPush {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, ok := b.receivers[id]; !ok {
			debug.Log("board: %d streamed jobs: %v", len(byPush[id]), fmt.Errorf("push %d: %w", id, ErrUnknownPush))
			continue
		}
		b.enqueue(pushjobs.NewJobsMsg{PushID: id, Jobs: byPush[id]})
	}
}

// Settle runs cmd and every command it leads to, feeding each result back
// into Update, until no work is left. It is meant for runs without a
// watcher, whose commands never finish on their own.
func (b *Board) Settle(cmd tea.Cmd) {
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			pending = append(pending, msg...)
		default:
			_, next := b.Update(msg)
			pending = append(pending, next)
		}
	}
}
