package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/pushboard/internal/datasource"
	"github.com/vanderheijden86/pushboard/pkg/board"
	"github.com/vanderheijden86/pushboard/pkg/config"
	"github.com/vanderheijden86/pushboard/pkg/debug"
	"github.com/vanderheijden86/pushboard/pkg/loader"
	"github.com/vanderheijden86/pushboard/pkg/metrics"
	"github.com/vanderheijden86/pushboard/pkg/version"
	"github.com/vanderheijden86/pushboard/pkg/watcher"
)

type flags struct {
	configPath   string
	source       string
	jobs         string
	runnable     string
	query        string
	filterStatus string
	search       string
	watch        bool
	stats        bool
	showRunnable bool
	width        int
	version      bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", config.ConfigPath(), "Config file")
	flag.StringVar(&f.source, "source", "", "Push data: pushes.json, a SQLite database, or a directory holding one")
	flag.StringVar(&f.jobs, "jobs", "", "JSONL job stream applied on top of the source")
	flag.StringVar(&f.runnable, "runnable", "", "Runnable jobs JSON for JSON sources")
	flag.StringVar(&f.query, "query", "", "View parameters, e.g. group_state=expanded&duplicate_jobs=visible&selectedJob=N")
	flag.StringVar(&f.filterStatus, "filter-status", "", "Comma-separated result statuses to show")
	flag.StringVar(&f.search, "search", "", "Free-text job search")
	flag.BoolVar(&f.watch, "watch", false, "Keep running and apply job stream changes")
	flag.BoolVar(&f.stats, "stats", false, "Print timing metrics after the dump")
	flag.BoolVar(&f.showRunnable, "show-runnable", false, "Show runnable jobs for every push")
	flag.IntVar(&f.width, "width", 0, "Dump width in cells (default: config, then terminal width)")
	flag.BoolVar(&f.version, "version", false, "Show version")
	flag.Parse()

	if f.version {
		fmt.Printf("pushboard %s\n", version.String())
		return
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "pushboard: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	debug.Section("pushboard " + version.String())
	if debug.Enabled() {
		l := log.New(os.Stderr, "[pushboard] ", log.LstdFlags)
		loader.SetLogger(l)
		datasource.SetLogger(l)
	}

	cfg, err := config.LoadFrom(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f)
	debug.Dump("config", cfg)

	pred, err := cfg.Filter.Model()
	if err != nil {
		return err
	}
	params := cfg.ViewParams()
	if f.query != "" {
		q, err := config.ParseQuery(f.query)
		if err != nil {
			return fmt.Errorf("parsing -query: %w", err)
		}
		params = params.Override(q)
	}

	store, err := openStore(cfg.Source)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pushes, err := store.LoadPushes(ctx)
	if err != nil {
		return fmt.Errorf("loading pushes: %w", err)
	}
	if len(pushes) == 0 {
		fmt.Println("No pushes found.")
		return nil
	}

	opts := board.Options{
		Source:     store,
		Filter:     pred,
		Params:     params,
		PushesPath: store.Source().Path,
		Width:      dumpWidth(cfg.View.Width),
	}
	if jobsPath := streamPath(cfg.Source); jobsPath != "" {
		opts.Stream = loader.NewJobStream(jobsPath, loader.ParseOptions{})
	}

	if !cfg.Watch.Enabled {
		b := board.New(opts)
		defer b.Close()
		b.Update(board.AddPushesMsg{Pushes: pushes})
		b.Settle(b.Init())
		if f.showRunnable {
			for _, id := range b.PushIDs() {
				b.Settle(showRunnable(id))
			}
		}
		fmt.Print(b.View())
		if f.stats {
			printStats(os.Stdout)
		}
		return nil
	}

	paths := []string{opts.PushesPath}
	if opts.Stream != nil {
		paths = append(paths, opts.Stream.Path())
	}
	w, err := watcher.New(paths,
		watcher.WithDebounce(cfg.Watch.Debounce),
		watcher.WithPollInterval(cfg.Watch.PollInterval),
		watcher.WithForcePoll(cfg.Watch.ForcePoll),
		watcher.WithOnError(func(err error) { debug.Log("watch: %v", err) }),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()
	opts.Watcher = w

	b := board.New(opts)
	defer b.Close()
	b.Update(board.AddPushesMsg{Pushes: pushes})
	if f.showRunnable {
		for _, id := range b.PushIDs() {
			b.Settle(showRunnable(id))
		}
	}
	err = runProgram(ctx, b)
	if f.stats {
		printStats(os.Stderr)
	}
	return err
}

func showRunnable(pushID int64) tea.Cmd {
	return func() tea.Msg { return board.ShowRunnableJobsMsg{PushID: pushID} }
}

// applyFlags lets command-line flags override the config file.
func applyFlags(cfg *config.Config, f flags) {
	if f.source != "" {
		cfg.Source.Path = f.source
	}
	if f.jobs != "" {
		cfg.Source.Jobs = f.jobs
	}
	if f.runnable != "" {
		cfg.Source.Runnable = f.runnable
	}
	if f.filterStatus != "" {
		cfg.Filter.ResultStatus = strings.Split(f.filterStatus, ",")
	}
	if f.search != "" {
		cfg.Filter.Search = f.search
	}
	if f.watch {
		cfg.Watch.Enabled = true
	}
	if f.width > 0 {
		cfg.View.Width = f.width
	}
	if f.stats {
		metrics.SetEnabled(true)
	}
}

// openStore opens the configured source: a file, a directory, or (when
// unset) the data directory.
func openStore(src config.SourceConfig) (*datasource.Store, error) {
	if src.Path == "" {
		return datasource.OpenDir("")
	}
	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	if info.IsDir() {
		return datasource.OpenDir(src.Path)
	}
	ds, err := datasource.SourceFromPath(src.Path)
	if err != nil {
		return nil, err
	}
	ds.RunnablePath = src.Runnable
	if err := datasource.ValidateSource(&ds); err != nil {
		return nil, fmt.Errorf("invalid source %s: %w", src.Path, err)
	}
	return datasource.Open(ds)
}

// streamPath returns the configured job stream, or the one found next to
// the source.
func streamPath(src config.SourceConfig) string {
	if src.Jobs != "" {
		return src.Jobs
	}
	dir := src.Path
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return ""
		}
	}
	dir, err := loader.DataDir(dir)
	if err != nil {
		return ""
	}
	found, err := loader.FindSource(dir)
	if err != nil {
		return ""
	}
	return found.Jobs
}

func dumpWidth(configured int) int {
	if configured > 0 {
		return configured
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func printStats(w io.Writer) {
	stats := metrics.AllTimingStats()
	if len(stats) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTimings:")
	for _, s := range stats {
		fmt.Fprintf(w, "  %-16s n=%-6d avg=%8.3fms max=%8.3fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs)
	}
}

func runProgram(ctx context.Context, b *board.Board) error {
	p := tea.NewProgram(b, tea.WithAltScreen(), tea.WithoutSignalHandler())

	runDone := make(chan struct{})
	defer close(runDone)

	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}
		p.Quit()
		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
