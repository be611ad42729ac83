package pushjobs

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pushboard/pkg/events"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Subscribe connects the receiver to the broadcast bus. Each signal is
// turned into a message and handed to send, which must feed it back into
// Update on the event loop (tea.Program.Send does). Push-scoped signals for
// other pushes are dropped here.
func (r *Receiver) Subscribe(bus *events.Bus, send func(tea.Msg)) {
	id := r.push.ID
	forPush := func(mk func() tea.Msg) func(int64) {
		return func(pushID int64) {
			if pushID == id {
				send(mk())
			}
		}
	}
	for _, unsub := range []func(){
		bus.GroupStateChanged.Subscribe(func(s model.GroupState) {
			send(GroupStateChangedMsg{State: s})
		}),
		bus.DuplicateJobsVisibilityChanged.Subscribe(func(struct{}) {
			send(DuplicatesToggledMsg{})
		}),
		bus.ShowRunnableJobs.Subscribe(forPush(func() tea.Msg { return ShowRunnableMsg{PushID: id} })),
		bus.DeleteRunnableJobs.Subscribe(forPush(func() tea.Msg { return HideRunnableMsg{PushID: id} })),
		bus.ApplyNewJobs.Subscribe(forPush(func() tea.Msg { return RefreshJobsMsg{PushID: id} })),
		bus.ExpandAllPushGroups.Subscribe(forPush(func() tea.Msg { return ExpandAllMsg{PushID: id} })),
	} {
		r.subs.Add(unsub)
	}
}

// Close unsubscribes from the bus. It is safe to call more than once.
func (r *Receiver) Close() {
	r.subs.Close()
}
