// Package debug provides the transpiler's [DEBUG]-prefixed diagnostic trace
// facility, gated by the driver's debugMode option (see internal/config).
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug is a build-time flag override.
// go build -ldflags "-X github.com/cnxlang/cnxc/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	mu      sync.Mutex
	enabled bool
	output  io.Writer = os.Stdout
)

// Enable turns on debug tracing. Output goes to the host's stdout unless
// SetOutput has redirected it (used by tests).
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
}

// Disable turns off debug tracing.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
}

// SetOutput redirects debug output. Pass nil to restore the default (stdout).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	output = w
}

// Enabled reports whether debug tracing is currently active.
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log emits a [DEBUG:component] line when debug tracing is active.
func Log(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(writer(), "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// LogInclude traces include resolution (C2).
func LogInclude(format string, args ...interface{}) { Log("INCLUDE", format, args...) }

// LogHeaders traces foreign header collection (C3).
func LogHeaders(format string, args ...interface{}) { Log("HEADERS", format, args...) }

// LogSymbols traces C-Next symbol collection and table operations (C4/C5).
func LogSymbols(format string, args ...interface{}) { Log("SYMBOLS", format, args...) }

// LogModAnalysis traces the modification analyzer's fixed-point passes (C6).
func LogModAnalysis(format string, args ...interface{}) { Log("MODANALYSIS", format, args...) }

// LogGenerate traces code generation (C7).
func LogGenerate(format string, args ...interface{}) { Log("GENERATE", format, args...) }

// LogPipeline traces the driver's phase sequencing.
func LogPipeline(format string, args ...interface{}) { Log("PIPELINE", format, args...) }

// LogCache traces persistent header-cache hits and misses.
func LogCache(format string, args ...interface{}) { Log("CACHE", format, args...) }
