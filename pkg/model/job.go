// Package model defines the push/platform/group/job records consumed by the
// hierarchy engine, plus the status vocabulary shared by every layer.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// JobState is the lifecycle state of a job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	// StateRunnable marks a placeholder for a job that could be scheduled but
	// has not been triggered.
	StateRunnable JobState = "runnable"
)

// IsValid returns true if the state is one of the known lifecycle states.
func (s JobState) IsValid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateRunnable:
		return true
	}
	return false
}

// Job is a single build or test execution as delivered by the job source.
type Job struct {
	ID                      int64    `json:"id"`
	PushID                  int64    `json:"push_id"`
	JobTypeName             string   `json:"job_type_name"`
	JobTypeSymbol           string   `json:"job_type_symbol"`
	JobGroupName            string   `json:"job_group_name"`
	JobGroupSymbol          string   `json:"job_group_symbol"`
	Tier                    int      `json:"tier"`
	Platform                string   `json:"platform"`
	PlatformOption          string   `json:"platform_option"`
	State                   JobState `json:"state"`
	Result                  string   `json:"result"`
	FailureClassificationID int      `json:"failure_classification_id"`
	RefDataName             string   `json:"ref_data_name,omitempty"`
	MachineName             string   `json:"machine_name,omitempty"`

	// Visible is the flag as delivered by the API. It is never trusted: the
	// hierarchy recomputes visibility on every build.
	Visible bool `json:"visible"`
}

// Validation errors.
var (
	ErrMissingID     = errors.New("job has no id")
	ErrMissingSymbol = errors.New("job has no type symbol")
	ErrInvalidState  = errors.New("job has an unknown state")
)

// Validate checks the fields the hierarchy relies on.
func (j *Job) Validate() error {
	if j == nil {
		return errors.New("nil job")
	}
	if j.ID == 0 {
		return ErrMissingID
	}
	if strings.TrimSpace(j.JobTypeSymbol) == "" {
		return fmt.Errorf("job %d: %w", j.ID, ErrMissingSymbol)
	}
	if !j.State.IsValid() {
		return fmt.Errorf("job %d: %w: %q", j.ID, ErrInvalidState, j.State)
	}
	return nil
}

// Status returns the result for completed jobs and the state otherwise.
func (j *Job) Status() string {
	if j.State == StateCompleted {
		return j.Result
	}
	return string(j.State)
}

// IsRunnable reports whether the job is a runnable placeholder.
func (j *Job) IsRunnable() bool {
	return j.State == StateRunnable
}

// IsClassified is true when a sheriff (or autoclassify) attached a failure
// classification other than "not classified".
func (j *Job) IsClassified() bool {
	return j.FailureClassificationID != ClassificationNotClassified
}

// SearchString is the lower-cased haystack used by free-text filtering.
func (j *Job) SearchString() string {
	parts := []string{
		j.Platform,
		j.PlatformOption,
		j.JobGroupName,
		j.JobGroupSymbol,
		j.JobTypeName,
		j.JobTypeSymbol,
		j.RefDataName,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Clone returns a shallow copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}
