// Package logger provides structured, leveled console logging for
// catalog update passes and query execution, using a timestamped-line,
// mutex-protected style.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs to a writer with "[HH:MM:SS] [LEVEL] message"
// lines, filtered by a configured minimum level. Color output is
// enabled automatically when writing to a TTY.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to writer at the
// given minimum level (trace, debug, info, warn, error; defaults to
// info for an empty or unrecognized value). A nil writer discards
// everything.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// SetColorOutputForTest overrides TTY auto-detection. Exposed only for
// tests that need deterministic colorized/plain output regardless of
// where they run.
func (cl *ConsoleLogger) SetColorOutputForTest(enabled bool) {
	cl.colorOutput = enabled
}

func isTerminal(w io.Writer) bool {
	if w == os.Stdout {
		return isatty.IsTerminal(os.Stdout.Fd())
	}
	if w == os.Stderr {
		return isatty.IsTerminal(os.Stderr.Fd())
	}
	return false
}

func normalizeLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(level))
	default:
		return "info"
	}
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// Tracef logs a formatted trace-level message.
func (cl *ConsoleLogger) Tracef(format string, args ...any) { cl.logf("TRACE", format, args...) }

// Debugf logs a formatted debug-level message.
func (cl *ConsoleLogger) Debugf(format string, args ...any) { cl.logf("DEBUG", format, args...) }

// Infof logs a formatted info-level message. Satisfies updater.Logger.
func (cl *ConsoleLogger) Infof(format string, args ...any) { cl.logf("INFO", format, args...) }

// Warnf logs a formatted warning-level message. Satisfies
// updater.Logger.
func (cl *ConsoleLogger) Warnf(format string, args ...any) { cl.logf("WARN", format, args...) }

// Errorf logs a formatted error-level message.
func (cl *ConsoleLogger) Errorf(format string, args ...any) { cl.logf("ERROR", format, args...) }

func (cl *ConsoleLogger) logf(level, format string, args ...any) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	message := fmt.Sprintf(format, args...)
	var line string
	if cl.colorOutput {
		line = fmt.Sprintf("[%s] [%s] %s\n", ts, colorizeLevel(level), message)
	} else {
		line = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(line))
}

func colorizeLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// ScanProgress returns a callback suitable for updater.Options.OnProgress:
// each call renders an ASCII progress bar to the writer, overwriting the
// previous render with a carriage return. On a non-TTY writer (piped
// output, a log file) a bar of carriage returns is unreadable noise, so
// the callback is a no-op there.
func (cl *ConsoleLogger) ScanProgress(label string) func(done, total int) {
	if !cl.colorOutput {
		return func(int, int) {}
	}
	var bar *ProgressBar
	return func(done, total int) {
		if total <= 0 {
			return
		}
		if bar == nil {
			bar = NewProgressBar(total, 30, cl.colorOutput)
			bar.SetPrefix(label)
		}
		bar.Update(done)
		cl.mutex.Lock()
		fmt.Fprintf(cl.writer, "\r%s", bar.Render())
		if done >= total {
			fmt.Fprint(cl.writer, "\n")
		}
		cl.mutex.Unlock()
	}
}

// UpdateSummary is the set of figures an update pass reports in its
// single closing summary line, mirroring updater.Result.
type UpdateSummary struct {
	DatasetID   string
	Added       int
	Removed     int
	Rescanned   int
	Quarantined int
	Duration    time.Duration
}

// LogUpdateSummary logs the one structured summary line an update
// pass ends with, at info level.
func (cl *ConsoleLogger) LogUpdateSummary(s UpdateSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var metrics string
	if cl.colorOutput {
		metrics = formatColorizedUpdateSummary(s)
	} else {
		metrics = formatUpdateSummary(s)
	}
	line := fmt.Sprintf("[%s] [%s] update complete (%s): %s\n", ts, "INFO", s.Duration.Round(time.Millisecond), metrics)
	cl.writer.Write([]byte(line))
}
