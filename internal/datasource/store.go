package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/pushboard/pkg/loader"
	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/model"
)

var logger = log.New(io.Discard, "", 0)

// SetLogger sets the logger used for non-fatal source problems.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	logger = l
}

// ErrNoRunnableSource is returned by FetchRunnable when a JSON source has
// no runnable-jobs file next to it.
var ErrNoRunnableSource = errors.New("no runnable jobs source")

// Reader is a readable push source.
type Reader interface {
	LoadPushes(ctx context.Context) ([]*model.Push, error)
	FetchJobs(ctx context.Context, pushID int64) ([]*model.Job, error)
	FetchRunnable(ctx context.Context, pushID int64) ([]*model.Job, error)
	Close() error
}

// DefaultRunnableTimeout bounds a shared runnable read.
const DefaultRunnableTimeout = 30 * time.Second

// Store serves pushes, job refreshes and runnable jobs from one source.
// Concurrent runnable fetches for the same push share one read.
type Store struct {
	reader   Reader
	source   DataSource
	runnable singleflight.Group

	// RunnableTimeout bounds a shared runnable read independently of any
	// one caller's context.
	RunnableTimeout time.Duration
}

// NewStore wraps a reader.
func NewStore(r Reader, source DataSource) *Store {
	return &Store{reader: r, source: source, RunnableTimeout: DefaultRunnableTimeout}
}

// Open opens a store over source.
func Open(source DataSource) (*Store, error) {
	switch source.Type {
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(source)
		if err != nil {
			return nil, err
		}
		return NewStore(r, source), nil
	case SourceTypeJSON:
		return NewStore(NewFileReader(source.Path, source.RunnablePath), source), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// OpenDir discovers the sources in dir and opens the best valid one.
func OpenDir(dir string) (*Store, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}
	logger.Printf("using %s", best)
	return Open(best)
}

// Source describes where the store reads from.
func (s *Store) Source() DataSource { return s.source }

// LoadPushes reads every push with its jobs.
func (s *Store) LoadPushes(ctx context.Context) ([]*model.Push, error) {
	defer metrics.Timer(metrics.SourceLoad)()
	return s.reader.LoadPushes(ctx)
}

// FetchJobs reads the current jobs of one push.
func (s *Store) FetchJobs(ctx context.Context, pushID int64) ([]*model.Job, error) {
	return s.reader.FetchJobs(ctx, pushID)
}

// FetchRunnable reads the runnable jobs of one push. Callers that share a
// read each receive their own copies. The shared read is not cancelled by
// any caller; a caller whose ctx ends stops waiting for it.
func (s *Store) FetchRunnable(ctx context.Context, pushID int64) ([]*model.Job, error) {
	ch := s.runnable.DoChan(strconv.FormatInt(pushID, 10), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.RunnableTimeout)
		defer cancel()
		return s.reader.FetchRunnable(rctx, pushID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]*model.Job)
	jobs := make([]*model.Job, len(shared))
	for i, j := range shared {
		jobs[i] = j.Clone()
	}
	return jobs, nil
}

// Close releases the underlying reader.
func (s *Store) Close() error {
	return s.reader.Close()
}

// FileReader reads a pushes JSON document and an optional runnable-jobs
// file. Every call rereads the files.
type FileReader struct {
	pushesPath   string
	runnablePath string
}

// NewFileReader creates a reader; runnablePath may be empty.
func NewFileReader(pushesPath, runnablePath string) *FileReader {
	return &FileReader{pushesPath: pushesPath, runnablePath: runnablePath}
}

func (f *FileReader) parseOptions() loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(msg string) { logger.Print(msg) }}
}

// LoadPushes parses the pushes document.
func (f *FileReader) LoadPushes(ctx context.Context) ([]*model.Push, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loader.LoadPushesFromFile(f.pushesPath, f.parseOptions())
}

// FetchJobs returns the jobs the document lists for one push.
func (f *FileReader) FetchJobs(ctx context.Context, pushID int64) ([]*model.Job, error) {
	pushes, err := f.LoadPushes(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pushes {
		if p.ID != pushID {
			continue
		}
		var jobs []*model.Job
		for _, plat := range p.Platforms {
			for _, grp := range plat.Groups {
				jobs = append(jobs, grp.Jobs...)
			}
		}
		return jobs, nil
	}
	return nil, fmt.Errorf("push %d not found in %s", pushID, f.pushesPath)
}

// FetchRunnable returns the runnable jobs of one push. A push with no
// entries yields an empty slice.
func (f *FileReader) FetchRunnable(ctx context.Context, pushID int64) ([]*model.Job, error) {
	if f.runnablePath == "" {
		return nil, ErrNoRunnableSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byPush, err := loader.LoadRunnableFromFile(f.runnablePath)
	if err != nil {
		return nil, err
	}
	jobs := byPush[pushID]
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return jobs, nil
}

// Close is a no-op.
func (f *FileReader) Close() error { return nil }
