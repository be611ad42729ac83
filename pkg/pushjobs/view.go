package pushjobs

import (
	"github.com/vanderheijden86/pushboard/pkg/aggregate"
	"github.com/vanderheijden86/pushboard/pkg/hierarchy"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

// GroupRender is what one visible group renders.
type GroupRender struct {
	Key      string
	Name     string
	Symbol   string
	Tier     int
	Expanded bool
	Result   aggregate.Result
}

// PlatformRender is one visible platform row.
type PlatformRender struct {
	Title  string
	Groups []GroupRender
}

// Render is the render model of a push.
type Render struct {
	PushID          int64
	Revision        string
	Author          string
	Version         uint64
	Counts          model.JobCounts
	RunnableVisible bool
	Watch           WatchMode
	SelectedJobID   int64
	Pinned          []int64
	Platforms       []PlatformRender
	Errors          []hierarchy.NodeError
}

// View aggregates every visible group of the current tree under its
// effective expansion state.
func (r *Receiver) View() Render {
	t := r.tree
	out := Render{
		PushID:          r.push.ID,
		Revision:        r.push.ShortRevision(),
		Author:          r.push.Author,
		Version:         t.Version,
		Counts:          t.Counts,
		RunnableVisible: r.push.RunnableVisible,
		Watch:           r.watch,
		SelectedJobID:   r.selectedID,
		Pinned:          r.pins.IDs(),
		Errors:          t.Errors,
	}
	for _, pv := range t.VisiblePlatforms() {
		pr := PlatformRender{Title: pv.Title}
		for _, gv := range pv.VisibleGroups() {
			g := r.groups.Get(gv.Key)
			expanded := g.Expanded(r.pushWideExpanded)
			pr.Groups = append(pr.Groups, GroupRender{
				Key:      gv.Key,
				Name:     gv.Group.Name,
				Symbol:   gv.Group.Symbol,
				Tier:     gv.Group.Tier,
				Expanded: expanded,
				Result: aggregate.Group(gv.Jobs, aggregate.Options{
					Expanded:       expanded,
					ShowDuplicates: g.ShowDuplicates(),
					SelectedJobID:  r.selectedID,
				}),
			})
		}
		out.Platforms = append(out.Platforms, pr)
	}
	return out
}
