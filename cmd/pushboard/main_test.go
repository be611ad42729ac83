package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/pushboard/internal/datasource"
	"github.com/vanderheijden86/pushboard/pkg/config"
	"github.com/vanderheijden86/pushboard/pkg/loader"
)

const pushesJSON = `{"results": [{"id": 7, "revision": "0123456789abcdef", "author": "dev@example.com", "jobs": [
  {"id": 70, "job_type_symbol": "B", "platform": "linux64", "platform_option": "opt", "state": "completed", "result": "success"}
]}]}`

func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pushes.json":   pushesJSON,
		"jobs.jsonl":    `{"id": 71, "push_id": 7, "job_type_symbol": "T", "platform": "linux64", "platform_option": "opt", "state": "pending"}` + "\n",
		"runnable.json": `[{"id": 700, "push_id": 7, "job_type_symbol": "X", "platform": "linux64", "platform_option": "opt", "ref_data_name": "x"}]`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Filter.Search = "from-config"
	applyFlags(&cfg, flags{
		source:       "/data/pushes.json",
		filterStatus: "testfailed,busted",
		watch:        true,
		width:        80,
	})

	if cfg.Source.Path != "/data/pushes.json" || !cfg.Watch.Enabled || cfg.View.Width != 80 {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"testfailed", "busted"}, cfg.Filter.ResultStatus); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if cfg.Filter.Search != "from-config" {
		t.Errorf("unset flag overrode config search: %q", cfg.Filter.Search)
	}
}

func TestOpenStore_Directory(t *testing.T) {
	t.Setenv(loader.DirEnvVar, "")
	dir := writeData(t)

	store, err := openStore(config.SourceConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Source().Type != datasource.SourceTypeJSON {
		t.Errorf("source type = %s", store.Source().Type)
	}
	pushes, err := store.LoadPushes(context.Background())
	if err != nil || len(pushes) != 1 || pushes[0].ID != 7 {
		t.Fatalf("LoadPushes = %v, %v", pushes, err)
	}
	runnable, err := store.FetchRunnable(context.Background(), 7)
	if err != nil || len(runnable) != 1 {
		t.Errorf("FetchRunnable = %v, %v", runnable, err)
	}
}

func TestOpenStore_FileWithRunnable(t *testing.T) {
	dir := writeData(t)
	store, err := openStore(config.SourceConfig{
		Path:     filepath.Join(dir, "pushes.json"),
		Runnable: filepath.Join(dir, "runnable.json"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if store.Source().PushCount != 1 {
		t.Errorf("push count = %d", store.Source().PushCount)
	}
}

func TestOpenStore_Missing(t *testing.T) {
	if _, err := openStore(config.SourceConfig{Path: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestStreamPath(t *testing.T) {
	t.Setenv(loader.DirEnvVar, "")
	dir := writeData(t)

	if got := streamPath(config.SourceConfig{Jobs: "/explicit.jsonl"}); got != "/explicit.jsonl" {
		t.Errorf("explicit stream = %q", got)
	}
	if got := streamPath(config.SourceConfig{Path: dir}); got != filepath.Join(dir, "jobs.jsonl") {
		t.Errorf("discovered stream = %q", got)
	}
	if got := streamPath(config.SourceConfig{Path: filepath.Join(dir, "pushes.json")}); got != "" {
		t.Errorf("file source should not imply a stream, got %q", got)
	}
}

func TestDumpWidth_Configured(t *testing.T) {
	if got := dumpWidth(120); got != 120 {
		t.Errorf("dumpWidth(120) = %d", got)
	}
}
