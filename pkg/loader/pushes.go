package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// pushRecord is one push as served by the pushes endpoint. Jobs may come
// nested under platforms, as a flat list, or both.
type pushRecord struct {
	model.Push
	Jobs []*model.Job `json:"jobs,omitempty"`
}

type pushEnvelope struct {
	Results []pushRecord `json:"results"`
}

// ParsePushes decodes a pushes document: either a JSON array of pushes or an
// object with a "results" array.
func ParsePushes(r io.Reader) ([]*model.Push, error) {
	return ParsePushesWithOptions(r, ParseOptions{})
}

// ParsePushesWithOptions is ParsePushes with a custom warning handler.
// Pushes without an id, and repeated push ids, are skipped with a warning.
// Flat jobs are placed into their platform and group.
func ParsePushesWithOptions(r io.Reader, opts ParseOptions) ([]*model.Push, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading pushes: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, nil
	}

	var records []pushRecord
	if data[0] == '{' {
		var env pushEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parsing pushes: %w", err)
		}
		records = env.Results
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing pushes: %w", err)
	}

	warn := opts.warn()
	seen := make(map[int64]bool, len(records))
	pushes := make([]*model.Push, 0, len(records))
	for i := range records {
		rec := &records[i]
		push := &rec.Push
		if push.ID == 0 {
			warn(fmt.Sprintf("skipping push %d: no id", i))
			continue
		}
		if seen[push.ID] {
			warn(fmt.Sprintf("skipping duplicate push %d", push.ID))
			continue
		}
		seen[push.ID] = true

		for _, plat := range push.Platforms {
			for _, grp := range plat.Groups {
				for _, j := range grp.Jobs {
					if j != nil {
						normalizeJob(j, push.ID)
					}
				}
			}
		}
		for _, j := range rec.Jobs {
			if j == nil {
				continue
			}
			normalizeJob(j, push.ID)
			if j.PushID != push.ID {
				warn(fmt.Sprintf("skipping job %d: belongs to push %d, listed under %d", j.ID, j.PushID, push.ID))
				continue
			}
			if opts.JobFilter != nil && !opts.JobFilter(j) {
				continue
			}
			if _, err := push.PlaceJob(j); err != nil {
				warn(fmt.Sprintf("skipping job in push %d: %v", push.ID, err))
			}
		}
		pushes = append(pushes, push)
	}
	return pushes, nil
}

func normalizeJob(j *model.Job, pushID int64) {
	if j.PushID == 0 {
		j.PushID = pushID
	}
	j.State = model.JobState(strings.ToLower(strings.TrimSpace(string(j.State))))
	j.Result = strings.ToLower(strings.TrimSpace(j.Result))
}

// LoadPushesFromFile reads a pushes document from path.
func LoadPushesFromFile(path string, opts ParseOptions) ([]*model.Push, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pushes file: %w", err)
	}
	defer file.Close()
	return ParsePushesWithOptions(file, opts)
}

// ParseRunnable decodes a JSON array of runnable jobs and groups them by
// push. Every job is marked runnable.
func ParseRunnable(r io.Reader) (map[int64][]*model.Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading runnable jobs: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return map[int64][]*model.Job{}, nil
	}
	var jobs []*model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parsing runnable jobs: %w", err)
	}
	kept := jobs[:0]
	for _, j := range jobs {
		if j == nil {
			continue
		}
		j.State = model.StateRunnable
		kept = append(kept, j)
	}
	byPush := GroupByPush(kept)
	for _, pushJobs := range byPush {
		numberRunnable(pushJobs)
	}
	return byPush, nil
}

// numberRunnable gives every id-less runnable job of one push a negative id,
// counting down from -1 past any negative id already present.
func numberRunnable(jobs []*model.Job) {
	next := int64(-1)
	for _, j := range jobs {
		if j.ID <= next {
			next = j.ID - 1
		}
	}
	for _, j := range jobs {
		if j.ID == 0 {
			j.ID = next
			next--
		}
	}
}

// LoadRunnableFromFile reads a runnable-jobs file.
func LoadRunnableFromFile(path string) (map[int64][]*model.Job, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open runnable jobs file: %w", err)
	}
	defer file.Close()
	return ParseRunnable(file)
}
