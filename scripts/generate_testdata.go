//go:build ignore

// generate_testdata.go writes a demo data directory for pushboard.
// Usage: go run scripts/generate_testdata.go [-out testdata/demo] [-pushes 5]
//
// Creates:
//
//	pushes.json     pushes with nested platforms, groups and jobs
//	jobs.jsonl      a job stream moving pending/running jobs forward
//	runnable.json   runnable placeholders for every push
//	treeherder.db   the same pushes as a SQLite database
package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pushboard/internal/datasource"
	"github.com/vanderheijden86/pushboard/pkg/model"
	"github.com/vanderheijden86/pushboard/pkg/testutil"
)

func main() {
	out := flag.String("out", "testdata/demo", "Output directory")
	count := flag.Int("pushes", 5, "Number of pushes")
	flag.Parse()

	if err := os.MkdirAll(*out, 0755); err != nil {
		fail("create output directory", err)
	}

	gen := testutil.NewDefault()
	pushes := make([]*model.Push, 0, *count)
	var runnable []*model.Job
	for i := 1; i <= *count; i++ {
		p := gen.Push(int64(i))
		pushes = append(pushes, p)
		runnable = append(runnable, gen.RunnableJobs(p, int64(900000+i*1000))...)
	}

	writeJSON(filepath.Join(*out, "pushes.json"), map[string]any{"results": pushes})
	writeJSON(filepath.Join(*out, "runnable.json"), runnable)
	writeStream(filepath.Join(*out, "jobs.jsonl"), pushes)
	writeDB(filepath.Join(*out, "treeherder.db"), pushes, runnable)

	fmt.Printf("Wrote %d pushes to %s\n", len(pushes), *out)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", what, err)
	os.Exit(1)
}

func writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("encode "+path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fail("write "+path, err)
	}
}

// writeStream emits one update per unfinished job: pending jobs start
// running, running jobs complete successfully.
func writeStream(path string, pushes []*model.Push) {
	f, err := os.Create(path)
	if err != nil {
		fail("create "+path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	enc := json.NewEncoder(w)
	for _, p := range pushes {
		for _, plat := range p.Platforms {
			for _, grp := range plat.Groups {
				for _, j := range grp.Jobs {
					next := j.Clone()
					switch j.State {
					case model.StatePending:
						next.State = model.StateRunning
					case model.StateRunning:
						next.State = model.StateCompleted
						next.Result = model.ResultSuccess
					default:
						continue
					}
					if err := enc.Encode(next); err != nil {
						fail("encode stream", err)
					}
				}
			}
		}
	}
}

func writeDB(path string, pushes []*model.Push, runnable []*model.Job) {
	os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fail("open "+path, err)
	}
	defer db.Close()

	if _, err := db.Exec(datasource.Schema); err != nil {
		fail("create schema", err)
	}
	tx, err := db.Begin()
	if err != nil {
		fail("begin", err)
	}
	for _, p := range pushes {
		if _, err := tx.Exec(`INSERT INTO push (id, revision, author, push_timestamp) VALUES (?, ?, ?, ?)`,
			p.ID, p.Revision, p.Author, p.PushTimestamp); err != nil {
			fail("insert push", err)
		}
		for _, plat := range p.Platforms {
			for _, grp := range plat.Groups {
				for _, j := range grp.Jobs {
					if _, err := tx.Exec(`INSERT INTO job (id, push_id, job_type_name, job_type_symbol,
						job_group_name, job_group_symbol, tier, platform, platform_option, state,
						result, failure_classification_id, ref_data_name, machine_name)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
						j.ID, p.ID, j.JobTypeName, j.JobTypeSymbol, grp.Name, grp.Symbol, grp.Tier,
						plat.Name, plat.Option, string(j.State), j.Result, j.FailureClassificationID,
						j.RefDataName, j.MachineName); err != nil {
						fail("insert job", err)
					}
				}
			}
		}
	}
	for _, j := range runnable {
		if _, err := tx.Exec(`INSERT INTO runnable_job (push_id, ref_data_name, job_type_name,
			job_type_symbol, job_group_name, job_group_symbol, tier, platform, platform_option)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.PushID, j.RefDataName, j.JobTypeName, j.JobTypeSymbol, j.JobGroupName,
			j.JobGroupSymbol, j.Tier, j.Platform, j.PlatformOption); err != nil {
			fail("insert runnable job", err)
		}
	}
	if err := tx.Commit(); err != nil {
		fail("commit", err)
	}
}
