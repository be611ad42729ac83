// Package datasource discovers push data sources (SQLite databases and JSON
// documents), selects the freshest valid one, and serves pushes, job
// refreshes and runnable jobs from it.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/pushboard/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (treeherder.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a pushes JSON document
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// DataSource represents a potential source of push data
type DataSource struct {
	Type     SourceType `json:"type"`
	Path     string     `json:"path"`
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	Size     int64      `json:"size"`

	// RunnablePath is the runnable-jobs file used by JSON sources.
	RunnablePath string `json:"runnable_path,omitempty"`

	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// PushCount is the number of pushes in the source (set during validation)
	PushCount int `json:"push_count"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, pushes=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.PushCount, status)
}

// SourceFromPath describes a single file as a data source.
func SourceFromPath(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat source: %w", err)
	}
	src := DataSource{
		Type:     SourceTypeJSON,
		Path:     path,
		Priority: PriorityJSON,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}
	if (loader.Source{Pushes: path}).IsSQLite() {
		src.Type = SourceTypeSQLite
		src.Priority = PrioritySQLite
	}
	return src, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the data directory (optional, see loader.DataDir)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds every push data file in the data directory, sorted
// freshest first with priority breaking ties.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	dir, err := loader.DataDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var runnable string
	for _, name := range loader.PreferredRunnableNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			runnable = path
			break
		}
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") {
			continue
		}
		isPushFile := false
		for _, want := range loader.PreferredPushNames {
			if name == want {
				isPushFile = true
			}
		}
		if !isPushFile {
			continue
		}
		src, err := SourceFromPath(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if src.Type == SourceTypeJSON {
			src.RunnablePath = runnable
		}
		sources = append(sources, src)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// ValidateSource checks that a source can be read and records the number of
// pushes it holds.
func ValidateSource(src *DataSource) error {
	fail := func(err error) error {
		src.Valid = false
		src.ValidationError = err.Error()
		return err
	}
	if src.Size == 0 {
		return fail(fmt.Errorf("source is empty"))
	}
	switch src.Type {
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(*src)
		if err != nil {
			return fail(err)
		}
		defer r.Close()
		n, err := r.CountPushes()
		if err != nil {
			return fail(err)
		}
		src.PushCount = n
	case SourceTypeJSON:
		pushes, err := loader.LoadPushesFromFile(src.Path, loader.ParseOptions{WarningHandler: func(string) {}})
		if err != nil {
			return fail(err)
		}
		src.PushCount = len(pushes)
	default:
		return fail(fmt.Errorf("unknown source type: %s", src.Type))
	}
	src.Valid = true
	src.ValidationError = ""
	return nil
}

// SelectBestSource returns the first valid source of a discovery result.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid sources among %d candidates", len(sources))
}
