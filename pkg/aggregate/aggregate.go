// Package aggregate decides, for one group, which jobs are rendered as
// individual buttons and which are folded into per-status count buckets.
package aggregate

import (
	"fmt"

	"github.com/vanderheijden86/pushboard/pkg/debug"
	"github.com/vanderheijden86/pushboard/pkg/hierarchy"
	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Options carry the group's effective expansion state and display flags.
type Options struct {
	Expanded       bool
	ShowDuplicates bool
	SelectedJobID  int64
}

// CountBucket stands for two or more collapsed jobs of one status class.
type CountBucket struct {
	BtnClass  string
	CountText string
	Count     int
	// LastJob is the most recently folded job. It keys the bucket and is
	// the bucket's click target.
	LastJob *model.Job
	// Selected is set when the selected job was folded into this bucket.
	Selected bool
}

// Key returns the render key of the bucket.
func (b CountBucket) Key() int64 {
	return b.LastJob.ID
}

// Title is the hover text of the bucket.
func (b CountBucket) Title() string {
	return fmt.Sprintf("%d %s jobs in group", b.Count, b.CountText)
}

// Result is what one group renders. Buttons keep original job order;
// Counts are ordered by first occurrence of their status class.
type Result struct {
	Buttons []hierarchy.JobView
	Counts  []CountBucket
}

type bucketState struct {
	bucket  CountBucket
	members []int
}

// Group computes the buttons and count buckets for the jobs of one group.
//
// Expanded groups show every visible job. Collapsed groups show failures
// individually, plus jobs sharing a type symbol when duplicates are shown;
// everything else is folded by status class, and a class that ends up with a
// single job is unfolded back into a button.
func Group(jobs []hierarchy.JobView, opts Options) Result {
	defer metrics.Timer(metrics.GroupAggregate)()

	if opts.Expanded {
		var buttons []hierarchy.JobView
		for _, jv := range jobs {
			if jv.Visible {
				buttons = append(buttons, jv)
			}
		}
		return Result{Buttons: buttons}
	}

	// Counted once per scan so duplicate detection stays linear.
	symbolCounts := make(map[string]int, len(jobs))
	for _, jv := range jobs {
		symbolCounts[jv.Job.JobTypeSymbol]++
	}

	individual := make([]bool, len(jobs))
	var buckets []*bucketState
	byClass := make(map[string]*bucketState)
	visible := 0

	for i, jv := range jobs {
		if !jv.Visible {
			continue
		}
		visible++
		job := jv.Job
		status := job.Status()
		if model.IsFailureStatus(status) ||
			(opts.ShowDuplicates && symbolCounts[job.JobTypeSymbol] > 1) {
			individual[i] = true
			continue
		}

		class := model.BtnClass(status, job.FailureClassificationID)
		bs, ok := byClass[class]
		if !ok {
			bs = &bucketState{bucket: CountBucket{BtnClass: class, CountText: status}}
			byClass[class] = bs
			buckets = append(buckets, bs)
		}
		bs.bucket.Count++
		bs.bucket.LastJob = job
		bs.members = append(bs.members, i)
		if opts.SelectedJobID != 0 && job.ID == opts.SelectedJobID {
			bs.bucket.Selected = true
		}
	}

	var res Result
	for _, bs := range buckets {
		if bs.bucket.Count == 1 {
			individual[bs.members[0]] = true
			continue
		}
		res.Counts = append(res.Counts, bs.bucket)
	}
	for i, jv := range jobs {
		if individual[i] {
			res.Buttons = append(res.Buttons, jv)
		}
	}

	checkInvariants(res, visible)
	return res
}

func checkInvariants(res Result, visible int) {
	if !debug.Enabled() {
		return
	}
	seen := make(map[string]bool, len(res.Counts))
	total := len(res.Buttons)
	for _, b := range res.Counts {
		debug.Assert(!seen[b.BtnClass], "two count buckets for status class %s", b.BtnClass)
		debug.Assert(b.Count >= 2, "count bucket %s holds %d jobs", b.BtnClass, b.Count)
		seen[b.BtnClass] = true
		total += b.Count
	}
	debug.Assert(total == visible, "aggregation covers %d jobs, %d visible", total, visible)
}

// Summary counts what a result renders.
type Summary struct {
	Buttons int
	Buckets int
	Folded  int
}

// Summarize returns the counts of a result.
func (r Result) Summarize() Summary {
	s := Summary{Buttons: len(r.Buttons), Buckets: len(r.Counts)}
	for _, b := range r.Counts {
		s.Folded += b.Count
	}
	return s
}
