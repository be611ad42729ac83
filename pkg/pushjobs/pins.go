package pushjobs

import (
	"errors"
	"slices"
)

// MaxPinnedJobs caps the pinboard.
const MaxPinnedJobs = 500

// ErrPinboardFull is returned when pinning would exceed MaxPinnedJobs.
var ErrPinboardFull = errors.New("pinboard is full")

// Pinboard is an ordered set of pinned job ids.
type Pinboard struct {
	ids []int64
	set map[int64]struct{}
}

// NewPinboard returns an empty pinboard.
func NewPinboard() *Pinboard {
	return &Pinboard{set: make(map[int64]struct{})}
}

// Pin adds id. Pinning a pinned job is a no-op.
func (p *Pinboard) Pin(id int64) error {
	if _, ok := p.set[id]; ok {
		return nil
	}
	if len(p.ids) >= MaxPinnedJobs {
		return ErrPinboardFull
	}
	p.set[id] = struct{}{}
	p.ids = append(p.ids, id)
	return nil
}

// Unpin removes id and reports whether it was pinned.
func (p *Pinboard) Unpin(id int64) bool {
	if _, ok := p.set[id]; !ok {
		return false
	}
	delete(p.set, id)
	p.ids = slices.DeleteFunc(p.ids, func(x int64) bool { return x == id })
	return true
}

// IsPinned reports whether id is pinned.
func (p *Pinboard) IsPinned(id int64) bool {
	_, ok := p.set[id]
	return ok
}

// IDs returns the pinned ids in pin order.
func (p *Pinboard) IDs() []int64 {
	return slices.Clone(p.ids)
}

// Len returns the number of pinned jobs.
func (p *Pinboard) Len() int { return len(p.ids) }

// Retain unpins every job for which keep returns false.
func (p *Pinboard) Retain(keep func(id int64) bool) {
	p.ids = slices.DeleteFunc(p.ids, func(id int64) bool {
		if keep(id) {
			return false
		}
		delete(p.set, id)
		return true
	})
}
