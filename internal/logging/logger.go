// Package logging provides fswatchd's logging facilities: a hierarchical,
// nil-safe Logger with color-coded severities, verbosity controlled by the
// FSWATCHD_LOG_LEVEL environment variable.
package logging

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

// environmentVariable is the environment variable used to select the
// global log level, using the names recognized by NameToLevel.
const environmentVariable = "FSWATCHD_LOG_LEVEL"

// currentLevel is the process-wide log level, set once at init from the
// environment and safe to read concurrently.
var currentLevel atomic.Uint32

func init() {
	log.SetOutput(os.Stdout)

	level := LevelInfo
	if name := os.Getenv(environmentVariable); name != "" {
		if parsed, ok := NameToLevel(name); ok {
			level = parsed
		}
	}
	currentLevel.Store(uint32(level))
}

// CurrentLevel returns the process-wide log level.
func CurrentLevel() Level {
	return Level(currentLevel.Load())
}

// SetLevel overrides the process-wide log level. It's exposed primarily for
// tests that need to exercise Debug/Trace output deterministically.
func SetLevel(level Level) {
	currentLevel.Store(uint32(level))
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything, so call sites never need
// to check for a disabled logger. It logs through the standard log package,
// so it respects any flags set there, and is safe for concurrent use.
type Logger struct {
	prefix string
}

// RootLogger is the root logger from which all other loggers derive.
var RootLogger = &Logger{}

// Sublogger creates a new sublogger with the specified name appended to
// this logger's prefix.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix}
}

func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

// Print logs information at LevelInfo or above with fmt.Print semantics.
func (l *Logger) Print(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelInfo {
		l.output(3, fmt.Sprint(v...))
	}
}

// Printf logs information at LevelInfo or above with fmt.Printf semantics.
func (l *Logger) Printf(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelInfo {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Println logs information at LevelInfo or above with fmt.Println semantics.
func (l *Logger) Println(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelInfo {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Debug logs information at LevelDebug or above.
func (l *Logger) Debug(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelDebug {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf logs information at LevelDebug or above with fmt.Printf semantics.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelDebug {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debugln logs information at LevelDebug or above with fmt.Println semantics.
func (l *Logger) Debugln(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelDebug {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Trace logs information at LevelTrace, the most verbose level.
func (l *Logger) Trace(v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelTrace {
		l.output(3, fmt.Sprint(v...))
	}
}

// Tracef logs information at LevelTrace with fmt.Printf semantics.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelTrace {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs a non-fatal error with a yellow "Warning:" prefix.
func (l *Logger) Warn(err error) {
	if l != nil && CurrentLevel() >= LevelWarn {
		l.output(3, color.YellowString("Warning: %v", err))
	}
}

// Warnf formats and logs a non-fatal warning.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l != nil && CurrentLevel() >= LevelWarn {
		l.output(3, color.YellowString("Warning: "+format, v...))
	}
}

// Error logs error information with a red "Error:" prefix.
func (l *Logger) Error(err error) {
	if l != nil && CurrentLevel() >= LevelError {
		l.output(3, color.RedString("Error: %v", err))
	}
}

// Writer returns an io.Writer that writes lines via Println. If the
// logger is nil, the writer discards its input.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return ioutil.Discard
	}
	return lineWriter{logger: l}
}

// lineWriter adapts a Logger to io.Writer by writing each line it
// receives via Println.
type lineWriter struct {
	logger *Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	w.logger.Println(string(p))
	return len(p), nil
}
