package board

import (
	"sync"

	"github.com/vanderheijden86/pushboard/pkg/pushjobs"
)

// DefaultNotificationLimit is the number of notifications kept.
const DefaultNotificationLimit = 50

// Notifications collects receiver notifications, oldest first, dropping
// the oldest once the limit is reached.
type Notifications struct {
	mu    sync.Mutex
	limit int
	items []pushjobs.Notification
}

// NewNotifications creates a collector. A non-positive limit uses
// DefaultNotificationLimit.
func NewNotifications(limit int) *Notifications {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &Notifications{limit: limit}
}

// Notify implements pushjobs.Notifier.
func (n *Notifications) Notify(note pushjobs.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, note)
	if over := len(n.items) - n.limit; over > 0 {
		n.items = append(n.items[:0:0], n.items[over:]...)
	}
}

// All returns a copy of the kept notifications.
func (n *Notifications) All() []pushjobs.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]pushjobs.Notification(nil), n.items...)
}

// Recent returns up to k of the newest notifications, oldest first.
func (n *Notifications) Recent(k int) []pushjobs.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if k > len(n.items) {
		k = len(n.items)
	}
	if k <= 0 {
		return nil
	}
	return append([]pushjobs.Notification(nil), n.items[len(n.items)-k:]...)
}

// Len returns the number of kept notifications.
func (n *Notifications) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}
