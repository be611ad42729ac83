// Package events is the typed publish/subscribe channel connecting push-list
// level actions (expand all, show runnable jobs, ...) to the per-push
// receivers. Delivery is synchronous and in subscription order.
package events

import (
	"sync"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Topic is a named signal carrying a payload of type T.
type Topic[T any] struct {
	name string

	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// NewTopic returns an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the signal name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Subscribe registers fn and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers v to every current subscriber. Subscribers added or removed
// by a handler take effect from the next Publish.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]subscription[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Bus groups the signals exchanged by the push view.
type Bus struct {
	// GroupStateChanged sets every group's own state (global expand/collapse).
	GroupStateChanged *Topic[model.GroupState]
	// DuplicateJobsVisibilityChanged flips each group's duplicate display flag.
	DuplicateJobsVisibilityChanged *Topic[struct{}]
	// ShowRunnableJobs and DeleteRunnableJobs carry the target push id.
	ShowRunnableJobs   *Topic[int64]
	DeleteRunnableJobs *Topic[int64]
	// ApplyNewJobs asks a push to rebuild from its current job data.
	ApplyNewJobs *Topic[int64]
	// ExpandAllPushGroups pulses every group of one push open.
	ExpandAllPushGroups *Topic[int64]
}

// NewBus returns a bus with all topics initialised.
func NewBus() *Bus {
	return &Bus{
		GroupStateChanged:              NewTopic[model.GroupState]("groupStateChanged"),
		DuplicateJobsVisibilityChanged: NewTopic[struct{}]("duplicateJobsVisibilityChanged"),
		ShowRunnableJobs:               NewTopic[int64]("showRunnableJobs"),
		DeleteRunnableJobs:             NewTopic[int64]("deleteRunnableJobs"),
		ApplyNewJobs:                   NewTopic[int64]("applyNewJobs"),
		ExpandAllPushGroups:            NewTopic[int64]("expandAllPushGroups"),
	}
}

// Subscriptions collects unsubscribe functions so a component can release
// everything it registered in one call.
type Subscriptions []func()

// Add records an unsubscribe function.
func (s *Subscriptions) Add(unsub func()) {
	*s = append(*s, unsub)
}

// Close unsubscribes everything and resets the list.
func (s *Subscriptions) Close() {
	for _, unsub := range *s {
		unsub()
	}
	*s = nil
}
