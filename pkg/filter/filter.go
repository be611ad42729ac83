// Package filter decides whether a job passes the active filter settings.
//
// The hierarchy only depends on the Predicate contract: ShowJob must be a
// pure function of the job and the filter configuration, cheap enough to be
// called for every job on every rebuild.
package filter

import (
	"slices"
	"strconv"
	"strings"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Predicate is the filter engine contract consumed by the hierarchy builder.
type Predicate interface {
	ShowJob(job *model.Job) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(job *model.Job) bool

// ShowJob calls f(job).
func (f PredicateFunc) ShowJob(job *model.Job) bool { return f(job) }

// All shows every job.
var All Predicate = PredicateFunc(func(*model.Job) bool { return true })

// MatchType controls how a field filter compares values.
type MatchType int

const (
	// MatchSubstring passes when the field contains any of the values.
	MatchSubstring MatchType = iota
	// MatchExact passes when the field equals one of the values.
	MatchExact
	// MatchChoice is MatchExact for enumerated fields.
	MatchChoice
	// MatchSearch passes when the job search string contains all of the values.
	MatchSearch
)

// Field names accepted by Model.SetField.
const (
	FieldJobTypeName    = "job_type_name"
	FieldJobTypeSymbol  = "job_type_symbol"
	FieldJobGroupName   = "job_group_name"
	FieldJobGroupSymbol = "job_group_symbol"
	FieldMachineName    = "machine_name"
	FieldPlatform       = "platform"
	FieldTier           = "tier"
	FieldClassification = "failure_classification_id"
	FieldRefDataName    = "ref_data_name"
	FieldSearch         = "searchStr"
)

var fieldMatch = map[string]MatchType{
	FieldJobTypeName:    MatchSubstring,
	FieldJobTypeSymbol:  MatchExact,
	FieldJobGroupName:   MatchSubstring,
	FieldJobGroupSymbol: MatchExact,
	FieldMachineName:    MatchSubstring,
	FieldPlatform:       MatchSubstring,
	FieldTier:           MatchExact,
	FieldClassification: MatchChoice,
	FieldRefDataName:    MatchSubstring,
	FieldSearch:         MatchSearch,
}

// IsField reports whether name is a filterable job field.
func IsField(name string) bool {
	_, ok := fieldMatch[name]
	return ok
}

// Classified-state filter values.
const (
	Classified   = "classified"
	Unclassified = "unclassified"
)

// Model is the standard filter engine: result status, classification state
// and per-field filters. The zero value hides everything; use NewModel.
type Model struct {
	ResultStatus    []string
	ClassifiedState []string
	fields          map[string][]string
}

// NewModel returns the default filter: every status, classified and
// unclassified jobs, tiers 1 and 2.
func NewModel() *Model {
	m := &Model{
		ResultStatus:    slices.Clone(model.AllStatuses),
		ClassifiedState: []string{Classified, Unclassified},
		fields:          make(map[string][]string),
	}
	m.fields[FieldTier] = []string{"1", "2"}
	return m
}

// Clone returns a deep copy, so a changed filter never mutates one in use.
func (m *Model) Clone() *Model {
	c := &Model{
		ResultStatus:    slices.Clone(m.ResultStatus),
		ClassifiedState: slices.Clone(m.ClassifiedState),
		fields:          make(map[string][]string, len(m.fields)),
	}
	for k, v := range m.fields {
		c.fields[k] = slices.Clone(v)
	}
	return c
}

// SetField replaces the values for a field filter. Values are lower-cased.
// An empty value list removes the filter. Unknown fields are ignored.
func (m *Model) SetField(field string, values ...string) {
	if !IsField(field) {
		return
	}
	if m.fields == nil {
		m.fields = make(map[string][]string)
	}
	if len(values) == 0 {
		delete(m.fields, field)
		return
	}
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			lowered = append(lowered, v)
		}
	}
	if len(lowered) == 0 {
		delete(m.fields, field)
		return
	}
	m.fields[field] = lowered
}

// Field returns the values for a field filter.
func (m *Model) Field(field string) []string {
	return m.fields[field]
}

// SetSearch sets the free-text search; every whitespace-separated word must
// appear in the job's search string.
func (m *Model) SetSearch(search string) {
	m.SetField(FieldSearch, strings.Fields(search)...)
}

// ShowJob implements Predicate.
//
// Runnable jobs skip the status and classification checks (they are shown
// whenever runnable jobs are turned on) but still honour field filters.
func (m *Model) ShowJob(job *model.Job) bool {
	if job == nil {
		return false
	}
	status := job.Status()
	if status != string(model.StateRunnable) {
		if !slices.Contains(m.ResultStatus, status) {
			return false
		}
		if !m.checkClassifiedState(job) {
			return false
		}
	}
	return m.checkFieldFilters(job)
}

func (m *Model) checkClassifiedState(job *model.Job) bool {
	classified := job.IsClassified()
	if classified && !slices.Contains(m.ClassifiedState, Classified) {
		return false
	}
	if !classified && !slices.Contains(m.ClassifiedState, Unclassified) {
		return false
	}
	return true
}

func (m *Model) checkFieldFilters(job *model.Job) bool {
	for field, values := range m.fields {
		value, ok := fieldValue(job, field)
		if !ok {
			// The job does not carry this field, so the filter does not apply.
			continue
		}
		value = strings.ToLower(value)
		switch fieldMatch[field] {
		case MatchSubstring:
			if !slices.ContainsFunc(values, func(v string) bool { return strings.Contains(value, v) }) {
				return false
			}
		case MatchSearch:
			for _, v := range values {
				if !strings.Contains(value, v) {
					return false
				}
			}
		case MatchExact, MatchChoice:
			if !slices.Contains(values, value) {
				return false
			}
		}
	}
	return true
}

func fieldValue(job *model.Job, field string) (string, bool) {
	switch field {
	case FieldJobTypeName:
		return job.JobTypeName, job.JobTypeName != ""
	case FieldJobTypeSymbol:
		return job.JobTypeSymbol, job.JobTypeSymbol != ""
	case FieldJobGroupName:
		return job.JobGroupName, job.JobGroupName != ""
	case FieldJobGroupSymbol:
		return job.JobGroupSymbol, job.JobGroupSymbol != ""
	case FieldMachineName:
		return job.MachineName, job.MachineName != ""
	case FieldPlatform:
		return job.Platform, job.Platform != ""
	case FieldTier:
		if job.Tier == 0 {
			return "", false
		}
		return strconv.Itoa(job.Tier), true
	case FieldClassification:
		return strconv.Itoa(job.FailureClassificationID), true
	case FieldRefDataName:
		return job.RefDataName, job.RefDataName != ""
	case FieldSearch:
		return job.SearchString(), true
	}
	return "", false
}
