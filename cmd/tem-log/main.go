// Command tem-log is a tool for viewing and analyzing protocol log files.
//
// Log files are created by running tem-server or tem-shell with the
// -protocol-log flag.
//
// Usage:
//
//	tem-log <command> [flags] <file.tlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	tem-log view session.tlog
//
//	# View only wire-layer events
//	tem-log view --layer wire session.tlog
//
//	# Export to JSONL
//	tem-log export --format jsonl session.tlog
//
//	# Keep only stage traffic, write to a new file
//	tem-log filter --subsystem stage -o stage.tlog session.tlog
//
//	# Show statistics
//	tem-log stats session.tlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/temscript/temscript-go/cmd/tem-log/commands"
)

type subcommand struct {
	synopsis string
	run      func(args []string) error
}

var subcommands map[string]subcommand

func init() {
	subcommands = map[string]subcommand{
		"view":   {"View log file in human-readable format", runView},
		"export": {"Export log file to JSON or CSV format", runExport},
		"filter": {"Filter log file and write to new file", runFilter},
		"stats":  {"Show statistics about the log file", runStats},
	}
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `tem-log - Protocol Log Analyzer

Usage:
  tem-log <command> [flags] <file.tlog>

Commands:
`)
	for _, name := range []string{"view", "export", "filter", "stats"} {
		fmt.Fprintf(w, "  %-8s %s\n", name, subcommands[name].synopsis)
	}
	fmt.Fprint(w, "\nUse \"tem-log <command> -help\" for more information about a command.\n")
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage(os.Stdout)
		return
	}

	cmd, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := cmd.run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet builds a flag set whose usage text follows the common
// subcommand layout.
func newFlagSet(name, argSpec string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "tem-log %s - %s\n\nUsage:\n  tem-log %s %s\n\n", name, subcommands[name].synopsis, name, argSpec)
		if hasFlags(fs) {
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

func hasFlags(fs *flag.FlagSet) bool {
	n := 0
	fs.VisitAll(func(*flag.Flag) { n++ })
	return n > 0
}

// parsePath parses the flag set and returns the positional capture path.
func parsePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("log file path required")
	}
	return fs.Arg(0), nil
}

func runView(args []string) error {
	fs := newFlagSet("view", "[flags] <file.tlog>")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, control, state, error)")

	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}

	var filter commands.ViewFilter
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}

	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "[flags] <file.tlog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "[flags] <file.tlog>")
	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	subsystem := fs.String("subsystem", "", "Filter by target subsystem")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, control, state, error)")

	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("output file (-o) required")
	}

	return commands.RunFilter(path, commands.FilterOptions{
		Output:    *output,
		ConnID:    *connID,
		Subsystem: *subsystem,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	})
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "<file.tlog>")

	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
