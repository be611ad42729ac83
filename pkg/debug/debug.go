// Package debug provides conditional debug logging and assertions for
// pushboard.
//
// Debug logging is enabled by setting the PUSHBOARD_DEBUG environment variable:
//
//	PUSHBOARD_DEBUG=1 pushboard -source pushes.json
//
// When enabled, messages are written to stderr with timestamps and Assert
// panics on failure. When disabled (default), every function is a no-op, so
// invariant checks cost nothing in production.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"
)

const prefix = "[PB_DEBUG] "

var (
	enabled atomic.Bool
	logger  = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
)

func init() {
	if os.Getenv("PUSHBOARD_DEBUG") != "" {
		enabled.Store(true)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging and assertions.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetOutput redirects debug output. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
}

// Log writes a printf-style debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !Enabled() || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("Build")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !Enabled() {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}

// Section logs a section header.
func Section(name string) {
	if !Enabled() {
		return
	}
	logger.Printf("=== %s ===", name)
}

// Assert panics if cond is false. Only active when debug is enabled.
func Assert(cond bool, format string, args ...any) {
	if !Enabled() || cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logger.Printf("ASSERTION FAILED: %s", msg)
	panic("debug assertion failed: " + msg)
}
