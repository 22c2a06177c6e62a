// Package logger holds the slog logger of growbufctl.
//
// Logging is off unless a directory is configured. Records are JSON, one file per day
// (growbufctl-2006-01-02.log), and files older than the retention window are removed
// when the logger is initialized.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRetention applies when Options.Retention is zero.
const DefaultRetention = 30 * 24 * time.Hour

const (
	filePrefix = "growbufctl-"
	fileSuffix = ".log"
	dayLayout  = "2006-01-02"
)

// L is the current logger. It discards everything until Init is given a directory.
var L = discard()

var file *os.File

// Options configures Init.
type Options struct {
	// Dir receives the daily log files. Empty disables logging.
	Dir       string
	Level     slog.Level
	Retention time.Duration
	// Command is attached to every record as "cmd".
	Command string
}

// Init closes the current log file, if any, and opens the file for today.
func Init(opts Options) error {
	if err := Close(); err != nil {
		return err
	}
	if opts.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	now := time.Now()
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	removeExpired(opts.Dir, now.Add(-retention))

	f, err := os.OpenFile(filepath.Join(opts.Dir, fileName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	file = f
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level})).
		With("cmd", opts.Command, "pid", os.Getpid())
	return nil
}

// Close stops logging and closes the log file.
func Close() error {
	L = discard()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fileName(day time.Time) string {
	return filePrefix + day.Format(dayLayout) + fileSuffix
}

// removeExpired deletes daily files dated before cutoff. Errors are ignored.
func removeExpired(dir string, cutoff time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		day, ok := strings.CutPrefix(e.Name(), filePrefix)
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, fileSuffix)
		if !ok {
			continue
		}
		t, err := time.Parse(dayLayout, day)
		if err != nil {
			continue
		}
		// A file covers its whole day.
		if t.AddDate(0, 0, 1).Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
