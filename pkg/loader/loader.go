// Package loader reads push and job data from files: a pushes document
// (JSON), a job stream (JSONL, one job per line) and runnable-job lists.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// DirEnvVar overrides the data directory searched by FindSource.
const DirEnvVar = "PUSHBOARD_DIR"

// Preferred file names, in priority order.
var (
	PreferredPushNames     = []string{"pushes.json", "treeherder.db", "pushes.db"}
	PreferredJobNames      = []string{"jobs.jsonl", "job-stream.jsonl"}
	PreferredRunnableNames = []string{"runnable.json"}
)

var logger = log.New(io.Discard, "", 0)

// SetLogger sets the logger used for parse warnings when no handler is given.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	logger = l
}

// Source is the set of data files found in a directory. Only Pushes is
// required.
type Source struct {
	Dir      string
	Pushes   string
	Jobs     string
	Runnable string
}

// IsSQLite reports whether the push source is a SQLite database.
func (s Source) IsSQLite() bool {
	ext := filepath.Ext(s.Pushes)
	return ext == ".db" || ext == ".sqlite" || ext == ".sqlite3"
}

// DataDir returns the directory to search, respecting PUSHBOARD_DIR.
func DataDir(path string) (string, error) {
	if envDir := os.Getenv(DirEnvVar); envDir != "" {
		return envDir, nil
	}
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	return path, nil
}

// FindSource locates the data files in dir. Backups and editor leftovers are
// skipped, as are empty files when a non-empty alternative exists.
func FindSource(dir string) (Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") ||
			strings.HasSuffix(name, "~") ||
			strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}

	src := Source{
		Dir:      dir,
		Pushes:   pick(dir, names, PreferredPushNames),
		Jobs:     pick(dir, names, PreferredJobNames),
		Runnable: pick(dir, names, PreferredRunnableNames),
	}
	if src.Pushes == "" {
		return src, fmt.Errorf("no push data found in %s", dir)
	}
	return src, nil
}

func pick(dir string, names, preferred []string) string {
	var empty string
	for _, want := range preferred {
		for _, name := range names {
			if name != want {
				continue
			}
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && info.Size() > 0 {
				return path
			}
			if empty == "" {
				empty = path
			}
		}
	}
	return empty
}

// DefaultMaxBufferSize is the default maximum line size for job streams (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures job stream parsing.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings go to the package logger.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize.
	BufferSize int

	// JobFilter optionally filters parsed jobs. Return true to include.
	JobFilter func(*model.Job) bool
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	return func(msg string) { logger.Printf("Warning: %s", msg) }
}

// ParseJobs parses a JSONL job stream.
func ParseJobs(r io.Reader) ([]*model.Job, error) {
	return ParseJobsWithOptions(r, ParseOptions{})
}

// ParseJobsWithOptions parses a JSONL job stream with custom options.
//
// Lines that are not valid JSON, or that carry no job id, are skipped with a
// warning. Jobs missing other fields are kept: the hierarchy isolates them.
func ParseJobsWithOptions(r io.Reader, opts ParseOptions) ([]*model.Job, error) {
	jobs, _, err := parseJobs(r, opts, false)
	return jobs, err
}

// parseJobs reads lines until EOF. With completeOnly set, a trailing line
// without a newline is left unconsumed. It returns the number of bytes
// consumed.
func parseJobs(r io.Reader, opts ParseOptions, completeOnly bool) ([]*model.Job, int64, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	warn := opts.warn()
	reader := bufio.NewReaderSize(r, maxCapacity)

	var jobs []*model.Job
	var consumed int64
	lineNum := 0
	for {
		raw, err := reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			lineNum++
			n := int64(len(raw))
			for err == bufio.ErrBufferFull {
				raw, err = reader.ReadSlice('\n')
				n += int64(len(raw))
			}
			if err != nil && err != io.EOF {
				return nil, consumed, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
			}
			if err == io.EOF && completeOnly {
				break
			}
			consumed += n
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			if err == io.EOF {
				break
			}
			continue
		}
		if err != nil && err != io.EOF {
			return nil, consumed, fmt.Errorf("error reading job stream at line %d: %w", lineNum+1, err)
		}
		if err == io.EOF && (len(raw) == 0 || completeOnly) {
			break
		}
		lineNum++
		consumed += int64(len(raw))

		line := bytes.TrimSpace(raw)
		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(line) > 0 {
			if job, ok := decodeJob(line, lineNum, warn); ok {
				if opts.JobFilter == nil || opts.JobFilter(job) {
					jobs = append(jobs, job)
				}
			}
		}
		if err == io.EOF {
			break
		}
	}
	return jobs, consumed, nil
}

func decodeJob(line []byte, lineNum int, warn func(string)) (*model.Job, bool) {
	var job model.Job
	if err := json.Unmarshal(line, &job); err != nil {
		warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
		return nil, false
	}
	if job.ID == 0 {
		warn(fmt.Sprintf("skipping job on line %d: %v", lineNum, model.ErrMissingID))
		return nil, false
	}
	job.State = model.JobState(strings.ToLower(strings.TrimSpace(string(job.State))))
	job.Result = strings.ToLower(strings.TrimSpace(job.Result))
	return &job, true
}

// LoadJobsFromFile reads a JSONL job stream from path.
func LoadJobsFromFile(path string, opts ParseOptions) ([]*model.Job, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job stream: %w", err)
	}
	defer file.Close()
	return ParseJobsWithOptions(file, opts)
}

// GroupByPush splits jobs by push id, keeping arrival order within a push.
func GroupByPush(jobs []*model.Job) map[int64][]*model.Job {
	out := make(map[int64][]*model.Job)
	for _, j := range jobs {
		out[j.PushID] = append(out[j.PushID], j)
	}
	return out
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
