package model

// Results reported by completed jobs.
const (
	ResultSuccess    = "success"
	ResultTestFailed = "testfailed"
	ResultBusted     = "busted"
	ResultException  = "exception"
	ResultRetry      = "retry"
	ResultUserCancel = "usercancel"
	ResultSuperseded = "superseded"
	ResultUnknown    = "unknown"
)

// Failure classification ids with special meaning.
const (
	ClassificationNotClassified = 1
	// ClassificationAutoIntermittent is applied by autoclassification and is
	// rendered like an unclassified failure.
	ClassificationAutoIntermittent = 6
)

// FailureResults are statuses that are always rendered as individual jobs.
var FailureResults = []string{ResultTestFailed, ResultBusted, ResultException}

// IsFailureStatus reports whether status is one of FailureResults.
func IsFailureStatus(status string) bool {
	for _, s := range FailureResults {
		if s == status {
			return true
		}
	}
	return false
}

// AllStatuses lists every status a job can report, runnable included.
var AllStatuses = []string{
	ResultTestFailed,
	ResultBusted,
	ResultException,
	ResultSuccess,
	ResultRetry,
	ResultUserCancel,
	ResultSuperseded,
	string(StateRunning),
	string(StatePending),
	string(StateRunnable),
}

var btnClasses = map[string]string{
	ResultBusted:          "btn-red",
	ResultException:       "btn-purple",
	ResultTestFailed:      "btn-orange",
	ResultUserCancel:      "btn-pink",
	ResultRetry:           "btn-dkblue",
	ResultSuccess:         "btn-green",
	ResultSuperseded:      "btn-ltblue",
	string(StateRunning):  "btn-dkgray",
	string(StatePending):  "btn-ltgray",
	string(StateRunnable): "btn-yellow",
}

// BtnClass maps a status and failure classification to the status class used
// for rendering and for keying count buckets. Classified jobs get a distinct
// "-classified" class so they never share a bucket with unclassified ones.
func BtnClass(status string, failureClassificationID int) string {
	class, ok := btnClasses[status]
	if !ok {
		class = "btn-default"
	}
	if failureClassificationID > ClassificationNotClassified &&
		failureClassificationID != ClassificationAutoIntermittent {
		class += "-classified"
	}
	return class
}

// GroupState is the expansion state of a job group.
type GroupState string

const (
	GroupCollapsed GroupState = "collapsed"
	GroupExpanded  GroupState = "expanded"
)

// ParseGroupState treats anything other than "expanded" as collapsed.
func ParseGroupState(s string) GroupState {
	if s == string(GroupExpanded) {
		return GroupExpanded
	}
	return GroupCollapsed
}
