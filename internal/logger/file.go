package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLogger mirrors ConsoleLogger's level-gated "[HH:MM:SS] [LEVEL]
// message" format but writes to a timestamped run log file under a
// log directory, maintaining a latest.log symlink to the most recent
// run so operators can `tail -f latest.log` without knowing the
// current run's filename.
type FileLogger struct {
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing into logDir, which is
// created if it does not exist. It opens a new run-NNNNNNNN-NNNNNN.log
// file and repoints logDir/latest.log at it.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("remove old latest.log symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("create latest.log symlink: %w", err)
	}

	fl := &FileLogger{
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeRunLog(fmt.Sprintf("=== run started %s ===\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// Tracef logs a formatted trace-level message.
func (fl *FileLogger) Tracef(format string, args ...any) { fl.logf("TRACE", format, args...) }

// Debugf logs a formatted debug-level message.
func (fl *FileLogger) Debugf(format string, args ...any) { fl.logf("DEBUG", format, args...) }

// Infof logs a formatted info-level message. Satisfies updater.Logger.
func (fl *FileLogger) Infof(format string, args ...any) { fl.logf("INFO", format, args...) }

// Warnf logs a formatted warning-level message. Satisfies
// updater.Logger.
func (fl *FileLogger) Warnf(format string, args ...any) { fl.logf("WARN", format, args...) }

// Errorf logs a formatted error-level message.
func (fl *FileLogger) Errorf(format string, args ...any) { fl.logf("ERROR", format, args...) }

func (fl *FileLogger) logf(level, format string, args ...any) {
	if !fl.shouldLog(levelLowercase(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, fmt.Sprintf(format, args...)))
}

func levelLowercase(level string) string {
	switch level {
	case "TRACE":
		return "trace"
	case "DEBUG":
		return "debug"
	case "WARN":
		return "warn"
	case "ERROR":
		return "error"
	default:
		return "info"
	}
}

// LogUpdateSummary writes the one closing summary line for an update
// pass, at info level, in plain text (run log files carry no color
// escapes).
func (fl *FileLogger) LogUpdateSummary(s UpdateSummary) {
	if !fl.shouldLog("info") {
		return
	}
	line := fmt.Sprintf("[%s] [INFO] update complete (%s): %s\n", timestamp(), s.Duration.Round(time.Millisecond), formatUpdateSummary(s))
	fl.writeRunLog(line)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}
	if err := fl.runLog.Sync(); err != nil {
		return fmt.Errorf("sync run log: %w", err)
	}
	if err := fl.runLog.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	fl.runLog = nil
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return
	}
	fl.runLog.WriteString(message)
	fl.runLog.Sync()
}
