package board_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/pushboard/pkg/board"
	"github.com/vanderheijden86/pushboard/pkg/config"
	"github.com/vanderheijden86/pushboard/pkg/loader"
	"github.com/vanderheijden86/pushboard/pkg/model"
	"github.com/vanderheijden86/pushboard/pkg/pushjobs"
	"github.com/vanderheijden86/pushboard/pkg/testutil"
	"github.com/vanderheijden86/pushboard/pkg/watcher"
)

type fakeSource struct {
	pushes   []*model.Push
	loadErr  error
	runnable map[int64][]*model.Job
}

func (f *fakeSource) LoadPushes(context.Context) ([]*model.Push, error) {
	return f.pushes, f.loadErr
}

func (f *fakeSource) FetchJobs(_ context.Context, id int64) ([]*model.Job, error) {
	for _, p := range f.pushes {
		if p.ID == id {
			var jobs []*model.Job
			for _, plat := range p.Platforms {
				for _, g := range plat.Groups {
					jobs = append(jobs, g.Jobs...)
				}
			}
			return jobs, nil
		}
	}
	return nil, errors.New("no such push")
}

func (f *fakeSource) FetchRunnable(_ context.Context, id int64) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range f.runnable[id] {
		out = append(out, j.Clone())
	}
	return out, nil
}

func pushWith(id, ts int64, jobs ...*model.Job) *model.Push {
	for _, j := range jobs {
		j.PushID = id
	}
	p := testutil.SingleGroupPush(id, jobs...)
	p.PushTimestamp = ts
	p.Author = "dev@example.com"
	return p
}

func twoPushBoard(t *testing.T, opts board.Options) *board.Board {
	t.Helper()
	b := board.New(opts)
	t.Cleanup(b.Close)
	b.Update(board.AddPushesMsg{Pushes: []*model.Push{
		pushWith(1, 100,
			testutil.Job(11, "1", model.ResultSuccess),
			testutil.Job(12, "2", model.ResultSuccess),
			testutil.Job(13, "3", model.ResultTestFailed),
		),
		pushWith(2, 200,
			testutil.Job(21, "1", model.ResultSuccess),
			testutil.Job(22, "2", string(model.StateRunning)),
		),
	}})
	return b
}

func receiver(t *testing.T, b *board.Board, id int64) *pushjobs.Receiver {
	t.Helper()
	r, ok := b.Receiver(id)
	if !ok {
		t.Fatalf("push %d not on board", id)
	}
	return r
}

func TestBoard_OrdersPushesNewestFirst(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	if diff := cmp.Diff([]int64{2, 1}, b.PushIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBoard_RoutesScopedMessages(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	b.Update(pushjobs.CycleWatchMsg{PushID: 1})

	if got := receiver(t, b, 1).Watch(); got != pushjobs.WatchPush {
		t.Errorf("push 1 watch = %v, want push", got)
	}
	if got := receiver(t, b, 2).Watch(); got != pushjobs.WatchNone {
		t.Errorf("push 2 watch = %v, want none", got)
	}
	if b.Notifications().Len() != 1 {
		t.Errorf("expected one notification, got %d", b.Notifications().Len())
	}
}

func TestBoard_UnknownPushIsDropped(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	_, cmd := b.Update(pushjobs.SelectJobMsg{PushID: 99, JobID: 1})
	if cmd != nil {
		t.Error("expected no command for an unknown push")
	}
}

func TestBoard_SingleSelectionAcrossPushes(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	b.Update(pushjobs.SelectJobMsg{PushID: 1, JobID: 11})
	b.Update(pushjobs.SelectJobMsg{PushID: 2, JobID: 21})

	if got := receiver(t, b, 1).SelectedJobID(); got != 0 {
		t.Errorf("push 1 still selects %d", got)
	}
	if got := receiver(t, b, 2).SelectedJobID(); got != 21 {
		t.Errorf("push 2 selects %d, want 21", got)
	}
	testutil.AssertSelectedVisible(t, receiver(t, b, 2).Tree())
}

func TestBoard_GroupStateBroadcastReachesEveryPush(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	b.Update(board.SetGroupStateMsg{State: model.GroupExpanded})

	for _, id := range b.PushIDs() {
		for _, p := range receiver(t, b, id).View().Platforms {
			for _, g := range p.Groups {
				if !g.Expanded {
					t.Errorf("push %d group %s not expanded", id, g.Key)
				}
				if len(g.Result.Counts) != 0 {
					t.Errorf("push %d group %s still folds jobs", id, g.Key)
				}
			}
		}
	}
}

func TestBoard_ExpandPushPulsesOnlyThatPush(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	b.Settle(func() tea.Msg { return board.ExpandPushMsg{PushID: 1} })

	r1 := receiver(t, b, 1)
	for _, p := range r1.View().Platforms {
		for _, g := range p.Groups {
			if !g.Expanded {
				t.Errorf("group %s of push 1 not expanded", g.Key)
			}
		}
	}
	for _, p := range receiver(t, b, 2).View().Platforms {
		for _, g := range p.Groups {
			if g.Expanded {
				t.Errorf("group %s of push 2 expanded", g.Key)
			}
		}
	}
}

func TestBoard_ShowRunnableUsesSource(t *testing.T) {
	runnable := testutil.Job(-1, "X", string(model.StateRunnable))
	runnable.PushID = 2
	runnable.RefDataName = "xpcshell"
	src := &fakeSource{runnable: map[int64][]*model.Job{2: {runnable}}}

	b := twoPushBoard(t, board.Options{Source: src})
	b.Settle(func() tea.Msg { return board.ShowRunnableJobsMsg{PushID: 2} })

	r := receiver(t, b, 2)
	if !r.RunnableVisible() {
		t.Fatal("runnable flag not set")
	}
	if _, ok := r.Tree().Job(-1); !ok {
		t.Error("runnable job not merged")
	}
	if receiver(t, b, 1).RunnableVisible() {
		t.Error("runnable leaked to push 1")
	}

	b.Settle(func() tea.Msg { return board.DeleteRunnableJobsMsg{PushID: 2} })
	if _, ok := r.Tree().Job(-1); ok || r.RunnableVisible() {
		t.Error("runnable jobs not removed")
	}
}

func TestBoard_EvictPush(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	r := receiver(t, b, 1)
	b.Update(board.EvictPushMsg{PushID: 1})

	if _, ok := b.Receiver(1); ok {
		t.Fatal("push 1 still on board")
	}
	if diff := cmp.Diff([]int64{2}, b.PushIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	before := r.Version()
	b.Update(board.SetGroupStateMsg{State: model.GroupExpanded})
	b.Update(board.ApplyNewJobsMsg{PushID: 1})
	if r.Version() != before {
		t.Error("evicted receiver still receives broadcasts")
	}
}

func TestBoard_ReloadMergesKnownAndAddsNew(t *testing.T) {
	updated := pushWith(1, 100, testutil.Job(13, "3", model.ResultSuccess))
	fresh := pushWith(3, 300, testutil.Job(31, "1", string(model.StatePending)))
	src := &fakeSource{pushes: []*model.Push{updated, fresh}}

	b := twoPushBoard(t, board.Options{Source: src})
	b.Settle(func() tea.Msg { return board.ReloadPushesMsg{} })

	if diff := cmp.Diff([]int64{3, 2, 1}, b.PushIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	jv, ok := receiver(t, b, 1).Tree().Job(13)
	if !ok || jv.Job.Result != model.ResultSuccess {
		t.Errorf("job 13 not replaced: %+v", jv)
	}
	if n := receiver(t, b, 1).Tree().JobCount(); n != 3 {
		t.Errorf("push 1 has %d jobs, want 3", n)
	}
}

func TestBoard_ReloadFailureNotifies(t *testing.T) {
	src := &fakeSource{loadErr: errors.New("disk on fire")}
	b := twoPushBoard(t, board.Options{Source: src})
	b.Settle(func() tea.Msg { return board.ReloadPushesMsg{} })

	notes := b.Notifications().All()
	if len(notes) != 1 || notes[0].Severity != pushjobs.SeverityDanger ||
		!strings.Contains(notes[0].Message, "disk on fire") {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestBoard_StreamAppliesNewJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	lines := `{"id": 22, "push_id": 2, "job_type_symbol": "2", "job_group_symbol": "M", "job_group_name": "Mochitests", "tier": 1, "platform": "linux64", "platform_option": "opt", "state": "completed", "result": "success"}
{"id": 23, "push_id": 2, "job_type_symbol": "3", "job_group_symbol": "M", "job_group_name": "Mochitests", "tier": 1, "platform": "linux64", "platform_option": "opt", "state": "pending"}
{"id": 99, "push_id": 42, "job_type_symbol": "B", "platform": "linux64", "state": "pending"}
`
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	stream := loader.NewJobStream(path, loader.ParseOptions{})
	b := twoPushBoard(t, board.Options{Stream: stream})
	b.Settle(b.Init())

	r := receiver(t, b, 2)
	if jv, ok := r.Tree().Job(22); !ok || jv.Job.State != model.StateCompleted {
		t.Errorf("job 22 not updated: %+v", jv)
	}
	if _, ok := r.Tree().Job(23); !ok {
		t.Error("job 23 not added")
	}
	if r.Tree().Counts.Pending != 1 || r.Tree().Counts.Running != 0 {
		t.Errorf("counts = %+v", r.Tree().Counts)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"id": 23, "push_id": 2, "job_type_symbol": "3", "job_group_symbol": "M", "tier": 1, "platform": "linux64", "platform_option": "opt", "state": "running"}` + "\n")
	f.Close()

	abs, _ := filepath.Abs(path)
	b.Update(board.FileChangedMsg{Change: watcher.Change{Path: abs}})
	if jv, _ := r.Tree().Job(23); jv.Job.State != model.StateRunning {
		t.Errorf("job 23 state = %s, want running", jv.Job.State)
	}
}

func TestBoard_InitialParams(t *testing.T) {
	params, err := config.ParseQuery("group_state=expanded&selectedJob=12")
	if err != nil {
		t.Fatal(err)
	}
	b := twoPushBoard(t, board.Options{Params: params})

	r := receiver(t, b, 1)
	if r.SelectedJobID() != 12 {
		t.Errorf("selected = %d, want 12", r.SelectedJobID())
	}
	for _, p := range r.View().Platforms {
		for _, g := range p.Groups {
			if !g.Expanded {
				t.Errorf("group %s not expanded", g.Key)
			}
		}
	}
}

func TestBoard_KeyQuits(t *testing.T) {
	b := twoPushBoard(t, board.Options{})
	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestNotifications_Limit(t *testing.T) {
	n := board.NewNotifications(2)
	for _, msg := range []string{"a", "b", "c"} {
		n.Notify(pushjobs.Notification{Message: msg})
	}
	var got []string
	for _, note := range n.All() {
		got = append(got, note.Message)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("kept mismatch (-want +got):\n%s", diff)
	}
	if r := n.Recent(1); len(r) != 1 || r[0].Message != "c" {
		t.Errorf("Recent(1) = %+v", r)
	}
	if r := n.Recent(10); len(r) != 2 {
		t.Errorf("Recent(10) returned %d", len(r))
	}
}
