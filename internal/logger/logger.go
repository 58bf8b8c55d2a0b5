// Package logger provides the shared logging facility for the deploy
// annotator. It wraps a zap sugared logger behind package-level functions so
// that callers do not need to thread a logger through every constructor.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger = newSugared(zapcore.InfoLevel)
)

func newSugared(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	// Keep stdout clean for commands that print data (e.g. version --format json).
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Production config with static settings cannot fail to build; fall
		// back to a no-op logger rather than panicking at init time.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Initialize configures the package logger. debug enables debug-level output
// and should be set from the --debug flag before any subcommand runs.
func Initialize(debug bool) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	mu.Lock()
	log = newSugared(level)
	mu.Unlock()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debugf logs a formatted message at debug level
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Info logs a message at info level
func Info(args ...any) { current().Info(args...) }

// Infof logs a formatted message at info level
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Warn logs a message at warn level
func Warn(args ...any) { current().Warn(args...) }

// Warnf logs a formatted message at warn level
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Error logs a message at error level
func Error(args ...any) { current().Error(args...) }

// Errorf logs a formatted message at error level
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits
func Fatalf(format string, args ...any) { current().Fatalf(format, args...) }
