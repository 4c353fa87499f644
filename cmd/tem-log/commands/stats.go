package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/temscript/temscript-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	RequestsBySubsys  map[string]int
	ImageResponses    int
	ImageBytes        int64
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
		RequestsBySubsys:  make(map[string]int),
	}
}

// observe folds one event into the running totals.
func (s *Stats) observe(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn := s.Connections[event.ConnectionID]
	if conn == nil {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}

	if msg := event.Message; msg != nil {
		if msg.Type == log.MessageTypeRequest && msg.Subsystem != "" {
			s.RequestsBySubsys[msg.Subsystem]++
		}
		if msg.ImageBytes != nil {
			s.ImageResponses++
			s.ImageBytes += int64(*msg.ImageBytes)
		}
	}
	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.observe(event)
	}

	stats.print(w)
	return nil
}

// breakdown prints a titled count section, skipping zero rows. The keys
// are printed in the fixed order given, which keeps enum sections stable
// across runs.
func breakdown[K interface {
	comparable
	fmt.Stringer
}](w io.Writer, title string, order []K, counts map[K]int) {
	fmt.Fprintln(w, title+":")
	for _, key := range order {
		if n := counts[key]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", key.String()+":", n)
		}
	}
	fmt.Fprintln(w)
}

func (s *Stats) print(w io.Writer) {
	fmt.Fprintln(w, "=== Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			s.TimeRange.Start.Format(time.RFC3339),
			s.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", s.TimeRange.End.Sub(s.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintln(w)

	breakdown(w, "Events by Layer",
		[]log.Layer{log.LayerTransport, log.LayerWire, log.LayerService}, s.EventsByLayer)
	breakdown(w, "Events by Category",
		[]log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError}, s.EventsByCategory)
	breakdown(w, "Events by Direction",
		[]log.Direction{log.DirectionIn, log.DirectionOut}, s.EventsByDirection)

	s.printSubsystems(w)

	if s.ImageResponses > 0 {
		fmt.Fprintf(w, "Image Responses: %d (%d pixel bytes)\n", s.ImageResponses, s.ImageBytes)
		fmt.Fprintln(w)
	}

	s.printConnections(w)

	if s.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	}
}

// printSubsystems lists request counts per subsystem, busiest first.
func (s *Stats) printSubsystems(w io.Writer) {
	if len(s.RequestsBySubsys) == 0 {
		return
	}

	names := make([]string, 0, len(s.RequestsBySubsys))
	for name := range s.RequestsBySubsys {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.RequestsBySubsys[names[i]], s.RequestsBySubsys[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})

	fmt.Fprintln(w, "Requests by Subsystem:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %d\n", name+":", s.RequestsBySubsys[name])
	}
	fmt.Fprintln(w)
}

// printConnections lists connections in order of first appearance.
func (s *Stats) printConnections(w io.Writer) {
	fmt.Fprintf(w, "Connections: %d\n", len(s.Connections))
	if len(s.Connections) == 0 {
		return
	}

	ids := make([]string, 0, len(s.Connections))
	for id := range s.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.Connections[ids[i]].FirstSeen.Before(s.Connections[ids[j]].FirstSeen)
	})

	fmt.Fprintln(w, "")
	for _, id := range ids {
		cs := s.Connections[id]
		duration := cs.LastSeen.Sub(cs.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", connTag(id), cs.Events, duration)
		if cs.RemoteAddr != "" {
			fmt.Fprintf(w, "           Peer: %s\n", cs.RemoteAddr)
		}
	}
}
