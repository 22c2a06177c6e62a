package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/growbuf/bytebuf"
	"github.com/joshuapare/growbuf/internal/logger"
	"github.com/joshuapare/growbuf/rawmem"
)

var (
	tracePlan string
)

func init() {
	cmd := newTraceCmd()
	cmd.Flags().StringVar(&tracePlan, "plan", "", "YAML file with the steps to run")
	rootCmd.AddCommand(cmd)
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [size...]",
		Short: "Show how a sequence of appends grows a buffer",
		Long: `The trace command appends chunks of the given sizes to a fresh buffer and
prints length, capacity and address after every step.

Sizes accept units (3, 10B, 4KB, 1MB). A plan file can also release or
reset the buffer between appends:

  steps:
    - append: 3
    - append: 10
    - release: true

Example:
  growbufctl trace 3 10
  growbufctl trace --plan plan.yaml --allocator heap --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args)
		},
	}
	return cmd
}

// Plan is a sequence of buffer operations.
type Plan struct {
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one operation.
type Step struct {
	Append  *datasize.ByteSize `yaml:"append,omitempty"`
	Release bool               `yaml:"release,omitempty"`
	Reset   bool               `yaml:"reset,omitempty"`
}

// TraceStep is the buffer state after one step.
type TraceStep struct {
	Step  int     `json:"step"`
	Op    string  `json:"op"`
	Bytes int     `json:"bytes,omitempty"`
	Len   int     `json:"len"`
	Cap   int     `json:"cap"`
	Grew  bool    `json:"grew"`
	Moved bool    `json:"moved"`
	Addr  uintptr `json:"addr"`
}

func runTrace(args []string) error {
	plan, err := loadPlan(tracePlan, args)
	if err != nil {
		return err
	}
	a, err := newAllocator(allocator)
	if err != nil {
		return err
	}

	printVerbose("Running %d steps on the %s allocator\n", len(plan.Steps), allocator)
	steps, err := runPlan(a, plan)
	if err != nil {
		return err
	}
	for _, s := range steps {
		logger.Debug("trace step", "step", s.Step, "op", s.Op, "len", s.Len, "cap", s.Cap, "moved", s.Moved)
	}
	logger.Info("trace finished", "steps", len(steps), "allocator", allocator)

	if jsonOut {
		return printJSON(steps)
	}
	if quiet {
		return nil
	}

	_, err = fmt.Fprintln(stdout, traceTable(steps).Render())
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	grewStyle   = cellStyle.Foreground(lipgloss.Color("#FFA500"))
)

func traceTable(steps []TraceStep) *table.Table {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{
			strconv.Itoa(s.Step), s.Op, formatNumber(int64(s.Bytes)), formatNumber(int64(s.Len)),
			formatNumber(int64(s.Cap)), strconv.FormatBool(s.Grew), strconv.FormatBool(s.Moved),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "OP", "BYTES", "LEN", "CAP", "GREW", "MOVED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(steps) && steps[row].Grew:
				return grewStyle
			default:
				return cellStyle
			}
		})
}

// loadPlan reads the plan file, or builds an append-only plan from sizes.
func loadPlan(path string, sizes []string) (Plan, error) {
	var plan Plan
	if path != "" {
		if len(sizes) > 0 {
			return plan, fmt.Errorf("sizes and --plan are mutually exclusive")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return plan, fmt.Errorf("failed to read plan: %w", err)
		}
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return plan, fmt.Errorf("failed to parse plan %s: %w", path, err)
		}
		return plan, nil
	}

	if len(sizes) == 0 {
		return plan, fmt.Errorf("expected at least one size or --plan")
	}
	for _, s := range sizes {
		var n datasize.ByteSize
		if err := n.UnmarshalText([]byte(s)); err != nil {
			return plan, fmt.Errorf("invalid size %q: %w", s, err)
		}
		plan.Steps = append(plan.Steps, Step{Append: &n})
	}
	return plan, nil
}

// runPlan executes plan on a fresh buffer and checks the final content against a
// shadow copy.
func runPlan(a rawmem.Allocator, plan Plan) ([]TraceStep, error) {
	b := bytebuf.NewWithAllocator(a)
	defer b.Release()

	var shadow []byte
	out := make([]TraceStep, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		before := b.View()
		row := TraceStep{Step: i + 1}

		switch {
		case step.Append != nil && !step.Release && !step.Reset:
			if uint64(*step.Append) > math.MaxInt32 {
				return out, fmt.Errorf("step %d: append of %s is too large", i+1, step.Append.HumanReadable())
			}
			n := int(*step.Append)
			chunk := bytes.Repeat([]byte{byte(i + 1)}, n)
			if err := b.Append(chunk); err != nil {
				return out, fmt.Errorf("step %d: %w", i+1, err)
			}
			shadow = append(shadow, chunk...)
			row.Op, row.Bytes = "append", n
		case step.Release && step.Append == nil && !step.Reset:
			b.Release()
			shadow = shadow[:0]
			row.Op = "release"
		case step.Reset && step.Append == nil && !step.Release:
			b.Reset()
			shadow = shadow[:0]
			row.Op = "reset"
		default:
			return out, fmt.Errorf("step %d: want exactly one of append, release or reset", i+1)
		}

		after := b.View()
		row.Len, row.Cap, row.Addr = after.Len, after.Cap, after.Addr
		row.Grew = after.Cap > before.Cap
		row.Moved = before.Addr != 0 && after.Addr != 0 && before.Addr != after.Addr
		out = append(out, row)
	}

	if !bytes.Equal(shadow, b.Bytes()) {
		return out, fmt.Errorf("buffer content diverged from the appended data")
	}
	return out, nil
}
