package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// JobStream reads a JSONL job file incrementally. Each ReadNew returns the
// complete lines appended since the previous call; a partially written last
// line is left for the next call.
type JobStream struct {
	path   string
	opts   ParseOptions
	offset int64
}

// NewJobStream creates a reader for path starting at the beginning.
func NewJobStream(path string, opts ParseOptions) *JobStream {
	return &JobStream{path: path, opts: opts}
}

// Path returns the file being read.
func (s *JobStream) Path() string { return s.path }

// Offset returns the number of bytes consumed so far.
func (s *JobStream) Offset() int64 { return s.offset }

// Reset makes the next ReadNew start from the beginning of the file.
func (s *JobStream) Reset() { s.offset = 0 }

// ReadNew returns the jobs appended since the last call. A missing file
// yields no jobs. A file that shrank is assumed rewritten and read from the
// start.
func (s *JobStream) ReadNew() ([]*model.Job, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open job stream: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat job stream: %w", err)
	}
	if info.Size() < s.offset {
		s.offset = 0
	}
	if info.Size() == s.offset {
		return nil, nil
	}
	if _, err := f.Seek(s.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek job stream: %w", err)
	}

	jobs, n, err := parseJobs(f, s.opts, true)
	s.offset += n
	return jobs, err
}
