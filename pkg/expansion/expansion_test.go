package expansion

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

func TestNew_InitialState(t *testing.T) {
	tests := []struct {
		name     string
		init     Initial
		wantExp  bool
		wantDups bool
	}{
		{"defaults", Initial{}, false, false},
		{"expanded", Initial{Expanded: true}, true, false},
		{"duplicates", Initial{ShowDuplicates: true}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New("M1linux64opt", tt.init)
			if got := g.Expanded(false); got != tt.wantExp {
				t.Errorf("Expanded = %v, want %v", got, tt.wantExp)
			}
			if got := g.ShowDuplicates(); got != tt.wantDups {
				t.Errorf("ShowDuplicates = %v, want %v", got, tt.wantDups)
			}
		})
	}
}

func TestGroup_Toggle(t *testing.T) {
	g := New("k", Initial{})
	if s := g.Toggle(); s != model.GroupExpanded {
		t.Fatalf("first toggle = %s", s)
	}
	if s := g.Toggle(); s != model.GroupCollapsed {
		t.Fatalf("second toggle = %s", s)
	}
}

func TestGroup_PushWideFlagDoesNotPersist(t *testing.T) {
	g := New("k", Initial{})
	if !g.Expanded(true) {
		t.Error("push-wide flag should expand a collapsed group")
	}
	if g.Expanded(false) {
		t.Error("own state should be untouched by the push-wide flag")
	}
}

func TestGroup_PulseIsOneWay(t *testing.T) {
	g := New("k", Initial{})
	g.Pulse()
	if !g.Expanded(false) {
		t.Fatal("pulse should leave the group expanded after the flag clears")
	}
	g.Pulse()
	if g.State() != model.GroupExpanded {
		t.Error("second pulse should keep the group expanded")
	}
	g.Toggle()
	if g.Expanded(false) {
		t.Error("local toggle after a pulse should collapse")
	}
}

func TestGroup_DuplicatesDoNotChangeExpansion(t *testing.T) {
	g := New("k", Initial{Expanded: true})
	g.ToggleDuplicates()
	if !g.ShowDuplicates() || g.State() != model.GroupExpanded {
		t.Errorf("state=%s dups=%v", g.State(), g.ShowDuplicates())
	}
}

func TestGroup_SetStateNormalizes(t *testing.T) {
	g := New("k", Initial{Expanded: true})
	g.SetState("bogus")
	if g.State() != model.GroupCollapsed {
		t.Errorf("unknown state should collapse, got %s", g.State())
	}
}

func TestSet_PulseOnlyAffectsPresentGroups(t *testing.T) {
	s := NewSet(Initial{})
	s.Get("a")
	s.Pulse([]string{"a", "b"})
	late := s.Get("c")

	want := map[string]model.GroupState{
		"a": model.GroupExpanded,
		"b": model.GroupExpanded,
		"c": model.GroupCollapsed,
	}
	if diff := cmp.Diff(want, s.States()); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
	if late.Expanded(false) {
		t.Error("group created after the pulse should not be expanded")
	}
}

func TestSet_BroadcastsApplyToLaterGroups(t *testing.T) {
	s := NewSet(Initial{})
	a := s.Get("a")
	s.SetAll(model.GroupExpanded)
	s.ToggleDuplicates()
	b := s.Get("b")

	for _, g := range []*Group{a, b} {
		if !g.Expanded(false) || !g.ShowDuplicates() {
			t.Errorf("group %s: expanded=%v dups=%v", g.Key(), g.Expanded(false), g.ShowDuplicates())
		}
	}
}

func TestSet_GetIsStable(t *testing.T) {
	s := NewSet(Initial{})
	a := s.Get("a")
	a.Toggle()
	if s.Get("a") != a || !s.Get("a").Expanded(false) {
		t.Error("Get should return the existing state")
	}
	if _, ok := s.Lookup("zz"); ok {
		t.Error("Lookup should not create")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestSet_Retain(t *testing.T) {
	s := NewSet(Initial{})
	s.Get("a")
	s.Get("b")
	s.Retain(func(k string) bool { return k == "b" })
	if _, ok := s.Lookup("a"); ok {
		t.Error("a should be dropped")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}
