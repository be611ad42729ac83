package model

import (
	"errors"
	"testing"
)

func job(id int64, platform, option, group string, tier int) *Job {
	return &Job{
		ID:             id,
		JobTypeSymbol:  "t",
		JobGroupSymbol: group,
		JobGroupName:   "Group " + group,
		Tier:           tier,
		Platform:       platform,
		PlatformOption: option,
		State:          StateCompleted,
		Result:         ResultSuccess,
	}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		state  JobState
		result string
		want   string
	}{
		{StateCompleted, ResultTestFailed, "testfailed"},
		{StateRunning, ResultUnknown, "running"},
		{StatePending, "", "pending"},
		{StateRunnable, "", "runnable"},
	}
	for _, tt := range tests {
		j := &Job{State: tt.state, Result: tt.result}
		if got := j.Status(); got != tt.want {
			t.Errorf("Status(%s, %s) = %q, want %q", tt.state, tt.result, got, tt.want)
		}
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  *Job
		want error
	}{
		{"ok", &Job{ID: 1, JobTypeSymbol: "B", State: StateCompleted}, nil},
		{"no id", &Job{JobTypeSymbol: "B", State: StateCompleted}, ErrMissingID},
		{"no symbol", &Job{ID: 1, JobTypeSymbol: "  ", State: StateCompleted}, ErrMissingSymbol},
		{"bad state", &Job{ID: 1, JobTypeSymbol: "B", State: "exploded"}, ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	var nilJob *Job
	if nilJob.Validate() == nil {
		t.Error("nil job should not validate")
	}
}

func TestBtnClass(t *testing.T) {
	tests := []struct {
		status string
		fcid   int
		want   string
	}{
		{ResultSuccess, 1, "btn-green"},
		{ResultTestFailed, 1, "btn-orange"},
		{ResultTestFailed, 2, "btn-orange-classified"},
		{ResultBusted, ClassificationAutoIntermittent, "btn-red"},
		{"running", 1, "btn-dkgray"},
		{"runnable", 0, "btn-yellow"},
		{"mystery", 1, "btn-default"},
	}
	for _, tt := range tests {
		if got := BtnClass(tt.status, tt.fcid); got != tt.want {
			t.Errorf("BtnClass(%q, %d) = %q, want %q", tt.status, tt.fcid, got, tt.want)
		}
	}
}

func TestIsFailureStatus(t *testing.T) {
	for _, s := range []string{ResultTestFailed, ResultBusted, ResultException} {
		if !IsFailureStatus(s) {
			t.Errorf("%s should be a failure", s)
		}
	}
	for _, s := range []string{ResultSuccess, ResultRetry, ResultUserCancel, "running"} {
		if IsFailureStatus(s) {
			t.Errorf("%s should not be a failure", s)
		}
	}
}

func TestPlatformTitle(t *testing.T) {
	tests := []struct {
		name, option, want string
	}{
		{"linux64", "debug", "Linux x64 debug"},
		{"lint", "opt", "Linting"},
		{"lint", "debug", "Linting debug"},
		{"b2g-emu", "opt", "b2g-emu opt"},
		{"linux64", "", "Linux x64"},
	}
	for _, tt := range tests {
		p := &Platform{Name: tt.name, Option: tt.option}
		if got := p.Title(); got != tt.want {
			t.Errorf("Title(%s, %s) = %q, want %q", tt.name, tt.option, got, tt.want)
		}
	}
}

func TestPlaceJob(t *testing.T) {
	p := &Push{ID: 1}

	loc, err := p.PlaceJob(job(1, "linux64", "opt", "M", 1))
	if err != nil || loc != (JobLocation{}) {
		t.Fatalf("first job: %v %+v", err, loc)
	}
	loc, _ = p.PlaceJob(job(2, "linux64", "opt", "M", 1))
	if loc != (JobLocation{Platform: 0, Group: 0, Job: 1}) {
		t.Errorf("same group: %+v", loc)
	}
	loc, _ = p.PlaceJob(job(3, "linux64", "opt", "M", 2))
	if loc != (JobLocation{Platform: 0, Group: 1, Job: 0}) {
		t.Errorf("tier 2 is a separate group: %+v", loc)
	}
	loc, _ = p.PlaceJob(job(4, "linux64", "debug", "", 0))
	if loc != (JobLocation{Platform: 1, Group: 0, Job: 0}) {
		t.Errorf("new platform: %+v", loc)
	}
	if g := p.Platforms[1].Groups[0]; g.Symbol != "?" || g.Tier != 1 {
		t.Errorf("defaults not applied: %+v", g)
	}
	if got := p.JobAt(loc).ID; got != 4 {
		t.Errorf("JobAt = %d", got)
	}
	if _, err := p.PlaceJob(job(5, "", "", "M", 1)); err == nil {
		t.Error("job without platform should be rejected")
	}
	if p.CountJobs() != 4 {
		t.Errorf("CountJobs = %d", p.CountJobs())
	}
	if l, ok := p.FindJob(3); !ok || l != (JobLocation{Platform: 0, Group: 1, Job: 0}) {
		t.Errorf("FindJob = %+v %v", l, ok)
	}
	if len(p.Index()) != 4 {
		t.Errorf("Index has %d entries", len(p.Index()))
	}
}

func TestRemoveJobs(t *testing.T) {
	p := &Push{ID: 1}
	for _, j := range []*Job{
		job(1, "linux64", "opt", "M", 1),
		job(2, "linux64", "opt", "R", 1),
		job(3, "windows10-64", "opt", "M", 1),
	} {
		if _, err := p.PlaceJob(j); err != nil {
			t.Fatal(err)
		}
	}
	p.Platforms[0].Groups[1].Jobs[0].State = StateRunnable
	p.Platforms[1].Groups[0].Jobs[0].State = StateRunnable

	if n := p.RemoveJobs((*Job).IsRunnable); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if len(p.Platforms) != 1 || len(p.Platforms[0].Groups) != 1 {
		t.Errorf("empty groups and platforms should be pruned: %d platforms", len(p.Platforms))
	}
}

func TestJobCounts(t *testing.T) {
	var c JobCounts
	for _, s := range []JobState{StatePending, StateRunning, StateRunning, StateCompleted, StateRunnable} {
		c.Add(&Job{State: s})
	}
	if c != (JobCounts{Pending: 1, Running: 2, Completed: 1}) || c.Uncompleted() != 3 {
		t.Errorf("counts = %+v", c)
	}
}

func TestGroupMapKey(t *testing.T) {
	g := &Group{Symbol: "M", Tier: 2}
	if got := g.MapKey(&Platform{Name: "linux64", Option: "debug"}); got != "M2linux64debug" {
		t.Errorf("MapKey = %q", got)
	}
	if ParseGroupState("expanded") != GroupExpanded || ParseGroupState("open") != GroupCollapsed {
		t.Error("ParseGroupState")
	}
}

func TestSearchStringAndClone(t *testing.T) {
	j := job(1, "linux64", "opt", "M", 1)
	j.JobTypeName = "Mochitest Browser"
	if s := j.SearchString(); s != "linux64 opt group m m mochitest browser t " {
		t.Errorf("SearchString = %q", s)
	}
	c := j.Clone()
	c.Result = ResultBusted
	if j.Result == ResultBusted {
		t.Error("Clone should copy")
	}
}
