package model

import (
	"fmt"
	"strconv"
)

// Push is one submitted revision (or revision range) and the jobs run for it.
type Push struct {
	ID            int64       `json:"id"`
	Revision      string      `json:"revision"`
	Author        string      `json:"author"`
	PushTimestamp int64       `json:"push_timestamp"`
	Platforms     []*Platform `json:"platforms"`

	// RunnableVisible mirrors the push-level "show runnable jobs" toggle.
	RunnableVisible bool `json:"isRunnableVisible"`
}

// Platform is an execution environment plus build option, e.g. "linux64 opt".
type Platform struct {
	Name   string   `json:"name"`
	Option string   `json:"option"`
	Groups []*Group `json:"groups"`
}

// Group collects jobs sharing a group symbol and tier within one platform.
type Group struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Tier   int    `json:"tier"`
	Jobs   []*Job `json:"jobs"`
}

// JobCounts aggregates job states for a push. Runnable jobs are not counted.
type JobCounts struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
}

// Uncompleted is the number of jobs still pending or running.
func (c JobCounts) Uncompleted() int {
	return c.Pending + c.Running
}

// Add counts a single job.
func (c *JobCounts) Add(j *Job) {
	switch j.State {
	case StatePending:
		c.Pending++
	case StateRunning:
		c.Running++
	case StateCompleted:
		c.Completed++
	}
}

// ShortRevision returns the first 12 characters of the revision.
func (p *Push) ShortRevision() string {
	if len(p.Revision) <= 12 {
		return p.Revision
	}
	return p.Revision[:12]
}

// GroupMapKey identifies a group across rebuilds. Expansion state is keyed by it.
func GroupMapKey(symbol string, tier int, platform, option string) string {
	return symbol + strconv.Itoa(tier) + platform + option
}

// MapKey returns the group key within the given platform.
func (g *Group) MapKey(p *Platform) string {
	return GroupMapKey(g.Symbol, g.Tier, p.Name, p.Option)
}

// JobLocation addresses a job inside a push by index.
type JobLocation struct {
	Platform int
	Group    int
	Job      int
}

// FindJob returns the location of the job with the given id.
func (p *Push) FindJob(id int64) (JobLocation, bool) {
	for pi, plat := range p.Platforms {
		for gi, grp := range plat.Groups {
			for ji, job := range grp.Jobs {
				if job != nil && job.ID == id {
					return JobLocation{Platform: pi, Group: gi, Job: ji}, true
				}
			}
		}
	}
	return JobLocation{}, false
}

// JobAt returns the job stored at loc.
func (p *Push) JobAt(loc JobLocation) *Job {
	return p.Platforms[loc.Platform].Groups[loc.Group].Jobs[loc.Job]
}

// Index builds an id -> location map for every job in the push.
func (p *Push) Index() map[int64]JobLocation {
	idx := make(map[int64]JobLocation)
	for pi, plat := range p.Platforms {
		for gi, grp := range plat.Groups {
			for ji, job := range grp.Jobs {
				if job != nil {
					idx[job.ID] = JobLocation{Platform: pi, Group: gi, Job: ji}
				}
			}
		}
	}
	return idx
}

// PlaceJob appends a flat job record to its platform and group, creating
// either when missing, and returns where it landed. New platforms and groups
// go to the end.
func (p *Push) PlaceJob(job *Job) (JobLocation, error) {
	if job == nil {
		return JobLocation{}, fmt.Errorf("nil job")
	}
	if job.Platform == "" {
		return JobLocation{}, fmt.Errorf("job %d has no platform", job.ID)
	}
	tier := job.Tier
	if tier == 0 {
		tier = 1
	}
	groupSymbol := job.JobGroupSymbol
	if groupSymbol == "" {
		groupSymbol = "?"
	}

	pi := -1
	for i, candidate := range p.Platforms {
		if candidate.Name == job.Platform && candidate.Option == job.PlatformOption {
			pi = i
			break
		}
	}
	if pi < 0 {
		pi = len(p.Platforms)
		p.Platforms = append(p.Platforms, &Platform{Name: job.Platform, Option: job.PlatformOption})
	}
	plat := p.Platforms[pi]

	gi := -1
	for i, candidate := range plat.Groups {
		if candidate.Symbol == groupSymbol && candidate.Tier == tier {
			gi = i
			break
		}
	}
	if gi < 0 {
		gi = len(plat.Groups)
		plat.Groups = append(plat.Groups, &Group{Name: job.JobGroupName, Symbol: groupSymbol, Tier: tier})
	}
	grp := plat.Groups[gi]

	grp.Jobs = append(grp.Jobs, job)
	return JobLocation{Platform: pi, Group: gi, Job: len(grp.Jobs) - 1}, nil
}

// RemoveJobs drops every job for which drop returns true and reports how many
// were removed. Groups and platforms left empty are removed as well.
func (p *Push) RemoveJobs(drop func(*Job) bool) int {
	removed := 0
	platforms := p.Platforms[:0]
	for _, plat := range p.Platforms {
		groups := plat.Groups[:0]
		for _, grp := range plat.Groups {
			jobs := grp.Jobs[:0]
			for _, job := range grp.Jobs {
				if job != nil && drop(job) {
					removed++
					continue
				}
				jobs = append(jobs, job)
			}
			clear(grp.Jobs[len(jobs):])
			grp.Jobs = jobs
			if len(grp.Jobs) > 0 {
				groups = append(groups, grp)
			}
		}
		clear(plat.Groups[len(groups):])
		plat.Groups = groups
		if len(plat.Groups) > 0 {
			platforms = append(platforms, plat)
		}
	}
	clear(p.Platforms[len(platforms):])
	p.Platforms = platforms
	return removed
}

// CountJobs returns the total number of job records in the push.
func (p *Push) CountJobs() int {
	n := 0
	for _, plat := range p.Platforms {
		for _, grp := range plat.Groups {
			n += len(grp.Jobs)
		}
	}
	return n
}
