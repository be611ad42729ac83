package testutil

import (
	"github.com/vanderheijden86/pushboard/pkg/aggregate"
	"github.com/vanderheijden86/pushboard/pkg/hierarchy"
)

// TB is the subset of testing.TB the assertions need. Property-test handles
// such as *rapid.T satisfy it too.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
}

// AssertCountConservation verifies that buttons plus folded jobs account for
// every visible job of the group exactly once.
func AssertCountConservation(t TB, jobs []hierarchy.JobView, res aggregate.Result) {
	t.Helper()
	visible := make(map[int64]int)
	for _, jv := range jobs {
		if jv.Visible {
			visible[jv.Job.ID]++
		}
	}
	total := len(res.Buttons)
	for _, b := range res.Counts {
		total += b.Count
	}
	if total != len(visible) {
		t.Errorf("buttons+buckets cover %d jobs, %d visible", total, len(visible))
	}
	for _, jv := range res.Buttons {
		if !jv.Visible {
			t.Errorf("invisible job %d rendered as a button", jv.Job.ID)
		}
		if visible[jv.Job.ID] == 0 {
			t.Errorf("job %d rendered but not visible in group", jv.Job.ID)
		}
	}
}

// AssertNoDuplicateBuckets verifies at most one bucket per status class, each
// holding at least two jobs.
func AssertNoDuplicateBuckets(t TB, res aggregate.Result) {
	t.Helper()
	seen := make(map[string]bool)
	for _, b := range res.Counts {
		if seen[b.BtnClass] {
			t.Errorf("duplicate bucket for class %s", b.BtnClass)
		}
		seen[b.BtnClass] = true
		if b.Count < 2 {
			t.Errorf("bucket %s holds %d jobs; single jobs must be unfolded", b.BtnClass, b.Count)
		}
	}
}

// AssertSelectedVisible verifies that every selected job is visible.
func AssertSelectedVisible(t TB, tree *hierarchy.Tree) {
	t.Helper()
	for _, p := range tree.Platforms {
		for _, g := range p.Groups {
			for _, jv := range g.Jobs {
				if jv.Selected && !jv.Visible {
					t.Errorf("selected job %d is not visible", jv.Job.ID)
				}
			}
		}
	}
}

// AssertDerivedVisibility verifies that group and platform flags are the OR
// of their children.
func AssertDerivedVisibility(t TB, tree *hierarchy.Tree) {
	t.Helper()
	for _, p := range tree.Platforms {
		anyGroup := false
		for _, g := range p.Groups {
			anyJob := false
			for _, jv := range g.Jobs {
				anyJob = anyJob || jv.Visible
			}
			if g.Visible != anyJob {
				t.Errorf("group %s visible=%v, jobs say %v", g.Key, g.Visible, anyJob)
			}
			anyGroup = anyGroup || g.Visible
		}
		if p.Visible != anyGroup {
			t.Errorf("platform %s visible=%v, groups say %v", p.Title, p.Visible, anyGroup)
		}
	}
}

// ButtonIDs returns the job ids rendered as buttons.
func ButtonIDs(res aggregate.Result) []int64 {
	ids := make([]int64, 0, len(res.Buttons))
	for _, jv := range res.Buttons {
		ids = append(ids, jv.Job.ID)
	}
	return ids
}
