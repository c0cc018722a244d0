// Package logger is the process-wide structured logger.
//
// Call sites pass a message followed by alternating key/value pairs:
//
//	logger.Info("account registered", "account_id", id, "email", email)
//
// Components that own a long-lived logger take an hclog.Logger from Named.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Options configures the root logger
type Options struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root = newRoot(Options{Level: os.Getenv("STREAMHUB_LOG_LEVEL"), Format: os.Getenv("STREAMHUB_LOG_FORMAT")})
)

func newRoot(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "streamhub",
		Level:      parseLevel(opts.Level),
		Output:     out,
		JSONFormat: strings.EqualFold(opts.Format, "json"),
	})
}

func parseLevel(level string) hclog.Level {
	if level == "" {
		return hclog.Info
	}
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		return hclog.Info
	}
	return l
}

// Configure replaces the root logger
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	root = newRoot(opts)
}

// SetLevel changes the level of the root logger and every sub-logger
// created from it.
func SetLevel(level string) {
	L().SetLevel(parseLevel(level))
}

// L returns the root logger
func L() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a sub-logger for a component
func Named(name string) hclog.Logger {
	return L().Named(name)
}

// Info logs informational messages
func Info(msg string, args ...interface{}) {
	L().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	L().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	L().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	L().Debug(msg, args...)
}
