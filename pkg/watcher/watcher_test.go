package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { callCount.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func waitChange(t *testing.T, w *Watcher, timeout time.Duration) (Change, bool) {
	t.Helper()
	select {
	case c := <-w.Changes():
		return c, true
	case <-time.After(timeout):
		return Change{}, false
	}
}

func startWatcher(t *testing.T, paths []string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(paths, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DetectsAppend(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "jobs.jsonl")
	if err := os.WriteFile(stream, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, []string{stream}, WithDebounce(50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	f, err := os.OpenFile(stream, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"id\": 2}\n")
	f.Close()

	c, ok := waitChange(t, w, 2*time.Second)
	if !ok {
		t.Fatal("expected change to be detected")
	}
	if c.Path != w.Paths()[0] || c.Removed {
		t.Errorf("change = %+v", c)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	dir := t.TempDir()
	pushes := filepath.Join(dir, "pushes.json")
	if err := os.WriteFile(pushes, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, []string{pushes},
		WithDebounce(20*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
	)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(pushes, []byte(`[{"id": 1}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := waitChange(t, w, 2*time.Second); !ok {
		t.Error("expected change to be detected in polling mode")
	}
}

func TestWatcher_PollingReportsCreateAndRemove(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "jobs.jsonl")

	var removed atomic.Bool
	w := startWatcher(t, []string{stream},
		WithDebounce(10*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			if errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)

	if err := os.WriteFile(stream, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if c, ok := waitChange(t, w, 2*time.Second); !ok || c.Removed {
		t.Fatalf("create: %+v, %v", c, ok)
	}

	if err := os.Remove(stream); err != nil {
		t.Fatal(err)
	}
	c, ok := waitChange(t, w, 2*time.Second)
	if !ok || !c.Removed {
		t.Fatalf("remove: %+v, %v", c, ok)
	}
	if !removed.Load() {
		t.Error("ErrFileRemoved not reported")
	}
}

func TestWatcher_SeparatesPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "jobs.jsonl")
	b := filepath.Join(dir, "pushes.json")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := startWatcher(t, []string{a, b},
		WithDebounce(20*time.Millisecond),
		WithPollInterval(30*time.Millisecond),
		WithForcePoll(true),
	)
	time.Sleep(60 * time.Millisecond)

	os.WriteFile(a, []byte("xx"), 0644)
	os.WriteFile(b, []byte("yy"), 0644)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		c, ok := waitChange(t, w, 2*time.Second)
		if !ok {
			t.Fatalf("only saw %v", seen)
		}
		seen[filepath.Base(c.Path)] = true
	}
	if !seen["jobs.jsonl"] || !seen["pushes.json"] {
		t.Errorf("seen = %v", seen)
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnvVar, "yes")
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	w := startWatcher(t, []string{path})
	if !w.IsPolling() {
		t.Error("expected polling when env var is set")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	w, err := New([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("started before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	w.Stop()
	w.Stop()
	if w.IsStarted() {
		t.Error("still started after Stop")
	}
}

func TestNew_RequiresPaths(t *testing.T) {
	if _, err := New([]string{"", ""}); err != ErrNoPaths {
		t.Errorf("err = %v, want ErrNoPaths", err)
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{" ON ", true},
		{"0", false},
		{"no", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("PUSHBOARD_TEST_BOOL", tt.value)
		if got := envBool("PUSHBOARD_TEST_BOOL"); got != tt.want {
			t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
