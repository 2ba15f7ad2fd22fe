// Package logger holds the process-wide zerolog logger. Binaries call Init
// once from main; libraries receive a zerolog.Logger as a dependency instead
// of reaching for Get.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how the process logger is built.
type Options struct {
	// Level is trace, debug, info, warn (or warning) or error. Anything
	// else means info.
	Level string
	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service, when set, tags every event with a "service" field.
	Service string
}

var (
	mu     sync.Mutex
	global *zerolog.Logger
)

// New builds a logger from opts without touching the process logger.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

// Init installs the process logger on first call and returns it. Later
// calls return the installed logger and ignore opts.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opts)
		zerolog.SetGlobalLevel(l.GetLevel())
		global = &l
	}
	return *global
}

// Get returns the process logger. It panics before Init.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		panic("logger: Get() called before Init()")
	}
	return *global
}

// Reset forgets the process logger. Tests only.
func Reset() {
	mu.Lock()
	global = nil
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	switch lvl, err := zerolog.ParseLevel(s); {
	case err != nil, s == "", lvl > zerolog.ErrorLevel:
		return zerolog.InfoLevel
	default:
		return lvl
	}
}
