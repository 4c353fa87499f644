package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/temscript/temscript-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
// All fields are the raw flag strings; empty means unconstrained.
type FilterOptions struct {
	Output    string
	ConnID    string
	Subsystem string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// buildFilter converts flag strings into a log.Filter, validating each
// constraint as it goes.
func (o FilterOptions) buildFilter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		Subsystem:    o.Subsystem,
	}

	parseTime := func(name, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format: %w", name, err)
		}
		return &t, nil
	}

	var err error
	if filter.TimeStart, err = parseTime("time-start", o.TimeStart); err != nil {
		return filter, err
	}
	if filter.TimeEnd, err = parseTime("time-end", o.TimeEnd); err != nil {
		return filter, err
	}

	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	return filter, nil
}

// RunFilter copies the matching events of a capture into a new capture
// file, so a long microscope session can be cut down to the slice that
// matters before sharing it.
func RunFilter(path string, opts FilterOptions) error {
	filter, err := opts.buildFilter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	sink, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}
	defer sink.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		sink.Log(event)
		count++
	}

	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}
