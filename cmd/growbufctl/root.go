package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/growbuf/internal/logger"
	"github.com/joshuapare/growbuf/rawmem"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	logDir    string
	logKeep   time.Duration
	allocator string

	// stdout is swapped by tests.
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "growbufctl",
	Short: "Trace and benchmark growable raw-memory buffers",
	Long: `growbufctl drives growbuf buffers from the command line. It shows how a
sequence of appends grows the underlying allocation and measures append
throughput for the available allocators.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return logger.Init(logger.Options{Dir: logDir, Level: level, Retention: logKeep, Command: cmd.Name()})
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log", "", "Write JSON logs to this directory")
	rootCmd.PersistentFlags().
		DurationVar(&logKeep, "log-retention", logger.DefaultRetention, "Remove log files older than this")
	rootCmd.PersistentFlags().
		StringVar(&allocator, "allocator", "system", "Allocator backing the buffers: system or heap")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "err", err)
		_ = logger.Close()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newAllocator returns the allocator selected by --allocator, wrapped for counting.
func newAllocator(name string) (*rawmem.Tracked, error) {
	switch name {
	case "system", "":
		return rawmem.NewTracked(rawmem.System{}), nil
	case "heap":
		return rawmem.NewTracked(rawmem.Heap{}), nil
	default:
		return nil, fmt.Errorf("unknown allocator %q (want system or heap)", name)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var numbers = message.NewPrinter(language.English)

// formatNumber renders n with thousands separators.
func formatNumber(n int64) string {
	return numbers.Sprintf("%d", n)
}

// formatBytes renders n as a human readable IEC size.
func formatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
