package pushjobs

import (
	"fmt"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// WatchMode controls completion notifications for a push.
type WatchMode int

const (
	WatchNone WatchMode = iota
	WatchPush           // notify once the whole push completes
	WatchJob            // notify on every batch of completed jobs
)

func (m WatchMode) String() string {
	switch m {
	case WatchPush:
		return "push"
	case WatchJob:
		return "job"
	default:
		return "none"
	}
}

// Next returns the following mode in the none -> push -> job cycle.
func (m WatchMode) Next() WatchMode {
	switch m {
	case WatchNone:
		return WatchPush
	case WatchPush:
		return WatchJob
	default:
		return WatchNone
	}
}

// watchCheck compares job counts across a rebuild and returns the
// notification to emit, if any, and the mode to continue with.
func watchCheck(mode WatchMode, prev, next model.JobCounts) (string, WatchMode) {
	if mode == WatchNone {
		return "", mode
	}
	if prev.Uncompleted() > 0 && next.Uncompleted() == 0 {
		return "Push completed", WatchNone
	}
	if mode == WatchJob && next.Completed > prev.Completed {
		n := next.Completed - prev.Completed
		if n == 1 {
			return "1 job completed", mode
		}
		return fmt.Sprintf("%d jobs completed", n), mode
	}
	return "", mode
}
