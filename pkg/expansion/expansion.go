// Package expansion tracks the collapsed/expanded state of job groups.
//
// A group's own state starts from the initial view parameters, read once when
// the group is first seen, and afterwards only changes through a local
// toggle, an expand-all pulse, or a group-state broadcast. None of these
// touch job or push data; they only select which aggregation path the group
// renders with.
package expansion

import (
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Initial holds the construction-time parameters of a group.
type Initial struct {
	Expanded       bool
	ShowDuplicates bool
}

// Group is the expansion state of one job group.
type Group struct {
	key            string
	state          model.GroupState
	showDuplicates bool
}

// New creates a group state from its initial parameters.
func New(key string, init Initial) *Group {
	g := &Group{
		key:            key,
		state:          model.GroupCollapsed,
		showDuplicates: init.ShowDuplicates,
	}
	if init.Expanded {
		g.state = model.GroupExpanded
	}
	return g
}

// Key returns the group map key.
func (g *Group) Key() string { return g.key }

// State returns the group's own state.
func (g *Group) State() model.GroupState { return g.state }

// Toggle flips the own state and returns the new one.
func (g *Group) Toggle() model.GroupState {
	if g.state == model.GroupExpanded {
		g.state = model.GroupCollapsed
	} else {
		g.state = model.GroupExpanded
	}
	return g.state
}

// Pulse handles an expand-all broadcast. The own state is pushed to expanded
// and stays there after the push-wide flag clears.
func (g *Group) Pulse() {
	g.state = model.GroupExpanded
}

// SetState overwrites the own state, as the group-state broadcast does.
func (g *Group) SetState(s model.GroupState) {
	g.state = model.ParseGroupState(string(s))
}

// ToggleDuplicates flips duplicate display without touching expansion.
func (g *Group) ToggleDuplicates() {
	g.showDuplicates = !g.showDuplicates
}

// Expanded is the effective state: own state OR the push-wide flag.
func (g *Group) Expanded(pushWide bool) bool {
	return pushWide || g.state == model.GroupExpanded
}

// ShowDuplicates reports whether jobs sharing a type symbol render
// individually.
func (g *Group) ShowDuplicates() bool { return g.showDuplicates }

// Set is the per-push registry of group states.
type Set struct {
	init   Initial
	groups map[string]*Group
}

// NewSet creates an empty registry. Groups created through Get start from
// init.
func NewSet(init Initial) *Set {
	return &Set{init: init, groups: make(map[string]*Group)}
}

// Get returns the state for key, creating it on first use.
func (s *Set) Get(key string) *Group {
	g, ok := s.groups[key]
	if !ok {
		g = New(key, s.init)
		s.groups[key] = g
	}
	return g
}

// Lookup returns the state for key without creating it.
func (s *Set) Lookup(key string) (*Group, bool) {
	g, ok := s.groups[key]
	return g, ok
}

// Len returns the number of tracked groups.
func (s *Set) Len() int { return len(s.groups) }

// Pulse expands every group in keys. Groups that appear later keep the
// initial state.
func (s *Set) Pulse(keys []string) {
	for _, k := range keys {
		s.Get(k).Pulse()
	}
}

// SetAll applies a group-state broadcast to every tracked group. Groups
// created afterwards start in the broadcast state.
func (s *Set) SetAll(state model.GroupState) {
	for _, g := range s.groups {
		g.SetState(state)
	}
	s.init.Expanded = state == model.GroupExpanded
}

// ToggleDuplicates applies a duplicate-visibility broadcast to every tracked
// group and to groups created afterwards.
func (s *Set) ToggleDuplicates() {
	for _, g := range s.groups {
		g.ToggleDuplicates()
	}
	s.init.ShowDuplicates = !s.init.ShowDuplicates
}

// Retain drops the state of groups for which keep returns false.
func (s *Set) Retain(keep func(key string) bool) {
	for k := range s.groups {
		if !keep(k) {
			delete(s.groups, k)
		}
	}
}

// States returns a copy of every group's own state, keyed by group key.
func (s *Set) States() map[string]model.GroupState {
	out := make(map[string]model.GroupState, len(s.groups))
	for k, g := range s.groups {
		out[k] = g.state
	}
	return out
}
