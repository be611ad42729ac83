package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/pushboard/pkg/filter"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.View.GroupState != "collapsed" {
		t.Errorf("expected collapsed groups, got %q", cfg.View.GroupState)
	}
	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("expected 200ms debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.ViewParams().GroupsExpanded() || cfg.ViewParams().DuplicatesVisible() {
		t.Error("default view params should be collapsed with duplicates hidden")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
repo: mozilla-central
source:
  path: ~/ci/pushes.json
  jobs: /var/ci/jobs.jsonl
view:
  group_state: expanded
  duplicate_jobs: visible
filter:
  result_status: [testfailed, Busted]
  tier: ["1"]
  search: "linux mochitest"
  fields:
    job_group_symbol: [M]
watch:
  enabled: true
  debounce: 500ms
  poll_interval: 3s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Repo != "mozilla-central" {
		t.Errorf("repo = %q", cfg.Repo)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "ci/pushes.json"); cfg.Source.Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Source.Path)
	}
	if cfg.Source.Jobs != "/var/ci/jobs.jsonl" {
		t.Errorf("jobs = %q", cfg.Source.Jobs)
	}
	vp := cfg.ViewParams()
	if !vp.GroupsExpanded() || !vp.DuplicatesVisible() {
		t.Errorf("unexpected view params %+v", vp)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 500*time.Millisecond || cfg.Watch.PollInterval != 3*time.Second {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}

	m, err := cfg.Filter.Model()
	if err != nil {
		t.Fatalf("filter model: %v", err)
	}
	if diff := cmp.Diff([]string{"testfailed", "busted"}, m.ResultStatus); diff != "" {
		t.Errorf("result status (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"linux", "mochitest"}, m.Field(filter.FieldSearch)); diff != "" {
		t.Errorf("search (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"m"}, m.Field(filter.FieldJobGroupSymbol)); diff != "" {
		t.Errorf("group symbol (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("view: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_UnknownFilterField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "filter:\n  fields:\n    colour: [red]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if !errors.Is(err, ErrUnknownFilterField) {
		t.Errorf("expected ErrUnknownFilterField, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Repo = "try"
	cfg.Source.Path = "/data/treeherder.db"
	cfg.Filter.ResultStatus = []string{"testfailed"}
	cfg.Watch.Enabled = true

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip (-saved +loaded):\n%s", diff)
	}
}

func TestFilterModel_Defaults(t *testing.T) {
	m, err := FilterConfig{}.Model()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(model.AllStatuses, m.ResultStatus); diff != "" {
		t.Errorf("default statuses (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2"}, m.Field(filter.FieldTier)); diff != "" {
		t.Errorf("default tiers (-want +got):\n%s", diff)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)

	if got, want := ConfigPath(), filepath.Join(dir, "pushboard", "config.yaml"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
	if got, want := StateDir(), filepath.Join(dir, "pushboard"); got != want {
		t.Errorf("StateDir = %q, want %q", got, want)
	}
}
