package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Query parameter names.
const (
	ParamGroupState    = "group_state"
	ParamDuplicateJobs = "duplicate_jobs"
	ParamSelectedJob   = "selectedJob"
)

// ViewParams are the view inputs read once, when a push view is constructed.
// Later changes reach existing groups only through broadcasts.
type ViewParams struct {
	GroupState    string
	DuplicateJobs string
	SelectedJob   int64
}

// ParseViewParams reads view parameters from query values. A selectedJob
// that is not a positive integer is ignored.
func ParseViewParams(v url.Values) ViewParams {
	p := ViewParams{
		GroupState:    v.Get(ParamGroupState),
		DuplicateJobs: v.Get(ParamDuplicateJobs),
	}
	if s := v.Get(ParamSelectedJob); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			p.SelectedJob = id
		}
	}
	return p
}

// ParseQuery parses a raw query string such as
// "group_state=expanded&duplicate_jobs=visible&selectedJob=42".
func ParseQuery(query string) (ViewParams, error) {
	v, err := url.ParseQuery(query)
	if err != nil {
		return ViewParams{}, fmt.Errorf("parsing view query: %w", err)
	}
	return ParseViewParams(v), nil
}

// GroupsExpanded reports whether groups start expanded.
func (p ViewParams) GroupsExpanded() bool {
	return model.ParseGroupState(p.GroupState) == model.GroupExpanded
}

// DuplicatesVisible reports whether duplicate jobs start visible.
func (p ViewParams) DuplicatesVisible() bool {
	return p.DuplicateJobs == "visible"
}

// Override returns p with every non-zero field of o applied on top.
func (p ViewParams) Override(o ViewParams) ViewParams {
	if o.GroupState != "" {
		p.GroupState = o.GroupState
	}
	if o.DuplicateJobs != "" {
		p.DuplicateJobs = o.DuplicateJobs
	}
	if o.SelectedJob != 0 {
		p.SelectedJob = o.SelectedJob
	}
	return p
}

// Values encodes the parameters back into query values, omitting zero fields.
func (p ViewParams) Values() url.Values {
	v := url.Values{}
	if p.GroupState != "" {
		v.Set(ParamGroupState, p.GroupState)
	}
	if p.DuplicateJobs != "" {
		v.Set(ParamDuplicateJobs, p.DuplicateJobs)
	}
	if p.SelectedJob != 0 {
		v.Set(ParamSelectedJob, strconv.FormatInt(p.SelectedJob, 10))
	}
	return v
}
