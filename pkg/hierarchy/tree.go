// Package hierarchy derives the renderable push -> platform -> group -> job
// tree from a push's raw job data.
//
// A Tree is immutable once built. Every rebuild produces fresh platform and
// group wrappers that point at the same underlying *model.Job records, so a
// reader holding an older tree never observes a half-updated one.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Options are the inputs, besides the push itself, that decide visibility.
type Options struct {
	Filter          filter.Predicate // nil shows every job
	SelectedJobID   int64            // 0 means nothing is selected
	RunnableVisible bool
}

// JobView is a job annotated with its computed flags.
type JobView struct {
	Job      *model.Job
	Visible  bool
	Selected bool
}

// GroupView is a group annotated with its computed visibility.
type GroupView struct {
	Group   *model.Group
	Key     string
	Visible bool
	Jobs    []JobView
}

// PlatformView is a platform annotated with its computed visibility.
type PlatformView struct {
	Platform *model.Platform
	Title    string
	Visible  bool
	Groups   []*GroupView
}

// NodeError records a job that could not be evaluated. The job stays in the
// tree but is excluded from the visible set.
type NodeError struct {
	PushID   int64
	GroupKey string
	JobID    int64
	Cause    error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("push %d group %s job %d: %v", e.PushID, e.GroupKey, e.JobID, e.Cause)
}

func (e NodeError) Unwrap() error {
	return e.Cause
}

type jobRef struct {
	platform, group, job int
}

type groupRef struct {
	platform, group int
}

// Tree is the annotated hierarchy for one push.
type Tree struct {
	PushID    int64
	Version   uint64
	Platforms []*PlatformView
	Counts    model.JobCounts
	Errors    []NodeError

	jobs   map[int64]jobRef
	groups map[string]groupRef
}

// Build walks the push depth-first and annotates every node. Invisible nodes
// are kept so that a later filter change can reveal them without a refetch.
// Runs in time linear in the number of jobs.
func Build(push *model.Push, opts Options) *Tree {
	defer metrics.Timer(metrics.HierarchyBuild)()

	pred := opts.Filter
	if pred == nil {
		pred = filter.All
	}
	t := &Tree{
		jobs:   make(map[int64]jobRef),
		groups: make(map[string]groupRef),
	}
	if push == nil {
		return t
	}
	t.PushID = push.ID

	for _, plat := range push.Platforms {
		if plat == nil {
			continue
		}
		pv := &PlatformView{
			Platform: plat,
			Title:    plat.Title(),
			Groups:   make([]*GroupView, 0, len(plat.Groups)),
		}
		pi := len(t.Platforms)
		for _, grp := range plat.Groups {
			if grp == nil {
				continue
			}
			gv := &GroupView{
				Group: grp,
				Key:   grp.MapKey(plat),
				Jobs:  make([]JobView, 0, len(grp.Jobs)),
			}
			gi := len(pv.Groups)
			for _, job := range grp.Jobs {
				if job == nil {
					continue
				}
				jv, err := evaluate(job, pred, opts)
				if err != nil {
					t.Errors = append(t.Errors, NodeError{
						PushID:   push.ID,
						GroupKey: gv.Key,
						JobID:    job.ID,
						Cause:    err,
					})
				} else if !job.IsRunnable() {
					t.Counts.Add(job)
				}
				if !errors.Is(err, model.ErrMissingID) {
					t.jobs[job.ID] = jobRef{platform: pi, group: gi, job: len(gv.Jobs)}
				}
				gv.Jobs = append(gv.Jobs, jv)
			}
			gv.Visible = anyJobVisible(gv.Jobs)
			t.groups[gv.Key] = groupRef{platform: pi, group: gi}
			pv.Groups = append(pv.Groups, gv)
		}
		pv.Visible = anyGroupVisible(pv.Groups)
		t.Platforms = append(t.Platforms, pv)
	}
	return t
}

// evaluate computes one job's flags. A malformed job, or one whose filter
// evaluation panics, is returned invisible and unselected with an error.
func evaluate(job *model.Job, pred filter.Predicate, opts Options) (jv JobView, err error) {
	jv.Job = job
	if verr := job.Validate(); verr != nil {
		return jv, verr
	}
	defer func() {
		if r := recover(); r != nil {
			jv.Visible = false
			jv.Selected = false
			err = fmt.Errorf("filter panic: %v", r)
		}
	}()

	jv.Selected = opts.SelectedJobID != 0 && job.ID == opts.SelectedJobID
	jv.Visible = pred.ShowJob(job) || jv.Selected
	if job.IsRunnable() {
		jv.Visible = jv.Visible && opts.RunnableVisible
	}
	return jv, nil
}

func anyJobVisible(jobs []JobView) bool {
	for _, j := range jobs {
		if j.Visible {
			return true
		}
	}
	return false
}

func anyGroupVisible(groups []*GroupView) bool {
	for _, g := range groups {
		if g.Visible {
			return true
		}
	}
	return false
}

// Reselect returns a tree in which only the previously and newly selected
// jobs are re-evaluated against opts. Their group and platform wrappers are
// copied and their flags recomputed; every other node is shared with t.
func (t *Tree) Reselect(prevID, nextID int64, opts Options) *Tree {
	pred := opts.Filter
	if pred == nil {
		pred = filter.All
	}
	next := *t
	next.Platforms = append([]*PlatformView(nil), t.Platforms...)

	copiedPlatforms := make(map[int]bool)
	copiedGroups := make(map[groupRef]bool)
	for _, id := range []int64{prevID, nextID} {
		if id == 0 {
			continue
		}
		ref, ok := t.jobs[id]
		if !ok {
			continue
		}
		if !copiedPlatforms[ref.platform] {
			pv := *next.Platforms[ref.platform]
			pv.Groups = append([]*GroupView(nil), pv.Groups...)
			next.Platforms[ref.platform] = &pv
			copiedPlatforms[ref.platform] = true
		}
		pv := next.Platforms[ref.platform]
		gr := groupRef{platform: ref.platform, group: ref.group}
		if !copiedGroups[gr] {
			gv := *pv.Groups[ref.group]
			gv.Jobs = append([]JobView(nil), gv.Jobs...)
			pv.Groups[ref.group] = &gv
			copiedGroups[gr] = true
		}
		gv := pv.Groups[ref.group]
		jv, err := evaluate(gv.Jobs[ref.job].Job, pred, opts)
		if err != nil {
			jv.Visible = false
		}
		gv.Jobs[ref.job] = jv
		gv.Visible = anyJobVisible(gv.Jobs)
		pv.Visible = anyGroupVisible(pv.Groups)
	}
	return &next
}

// Job returns the annotated job with the given id.
func (t *Tree) Job(id int64) (JobView, bool) {
	ref, ok := t.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return t.Platforms[ref.platform].Groups[ref.group].Jobs[ref.job], true
}

// Group returns the group with the given map key, or nil.
func (t *Tree) Group(key string) *GroupView {
	ref, ok := t.groups[key]
	if !ok {
		return nil
	}
	return t.Platforms[ref.platform].Groups[ref.group]
}

// VisiblePlatforms returns the platforms with at least one visible group.
func (t *Tree) VisiblePlatforms() []*PlatformView {
	var out []*PlatformView
	for _, p := range t.Platforms {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}

// VisibleGroups returns the visible groups of the platform.
func (p *PlatformView) VisibleGroups() []*GroupView {
	var out []*GroupView
	for _, g := range p.Groups {
		if g.Visible {
			out = append(out, g)
		}
	}
	return out
}

// VisibleJobCount returns the number of visible jobs in the group.
func (g *GroupView) VisibleJobCount() int {
	n := 0
	for _, j := range g.Jobs {
		if j.Visible {
			n++
		}
	}
	return n
}

// JobCount returns the number of jobs reachable through Job.
func (t *Tree) JobCount() int {
	return len(t.jobs)
}
