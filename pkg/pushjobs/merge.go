package pushjobs

import (
	"fmt"

	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// MergeResult summarises a merge.
type MergeResult struct {
	Replaced int
	Added    int
	Errors   []error
}

// mergeJobs folds jobs into push by id. A known id is replaced at its
// current position; an unknown id is placed at the end of its group. Jobs
// belonging to another push are rejected. Id 0 is never a known key, so
// id-less jobs are each placed on their own.
func mergeJobs(push *model.Push, jobs []*model.Job) MergeResult {
	defer metrics.Timer(metrics.JobMerge)()

	var res MergeResult
	idx := push.Index()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if job.PushID != 0 && job.PushID != push.ID {
			res.Errors = append(res.Errors, fmt.Errorf("job %d belongs to push %d", job.ID, job.PushID))
			continue
		}
		if loc, ok := idx[job.ID]; ok && job.ID != 0 {
			push.Platforms[loc.Platform].Groups[loc.Group].Jobs[loc.Job] = job
			res.Replaced++
			continue
		}
		loc, err := push.PlaceJob(job)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		// A batch may carry the same new id twice; later copies replace.
		if job.ID != 0 {
			idx[job.ID] = loc
		}
		res.Added++
	}
	return res
}
