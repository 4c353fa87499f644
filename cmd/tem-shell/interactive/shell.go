// Package interactive provides the interactive command-line interface
// for tem-shell.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/temscript/temscript-go/pkg/microscope"
	"github.com/temscript/temscript-go/pkg/remote"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Shell handles interactive mode for tem-shell.
type Shell struct {
	client   *remote.Client
	registry *schema.Registry
	scope    *microscope.Microscope
	rl       *readline.Instance
	pingSeq  uint32
}

// New creates a new interactive shell over an established connection.
func New(client *remote.Client) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tem> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		client:   client,
		registry: schema.Default(),
		scope:    microscope.New(client),
		rl:       rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "subsystems", "ls":
			s.cmdSubsystems()

		case "items", "i":
			s.cmdItems(args)

		case "get", "g":
			s.cmdGet(args)

		case "set":
			s.cmdSet(args)

		case "call", "c":
			s.cmdCall(args)

		case "acquire", "acq":
			s.cmdAcquire(args)

		case "status":
			s.cmdStatus(ctx)

		case "ping":
			s.cmdPing()

		case "reconnect":
			s.cmdReconnect(ctx)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Microscope Commands:
  Catalog:
    subsystems                 - List subsystems
    items <subsystem>          - List capabilities of a subsystem

  Operations:
    get <subsystem> <item>           - Read a property
    set <subsystem> <item> <value>   - Write a property
    call <subsystem> <item> [k=v..]  - Invoke a method with named arguments

  Imaging:
    acquire <camera> [file]    - Acquire a TEM image, optionally save raw pixels
    acquire -stem <det> [file] - Acquire a STEM image

  Session:
    status                     - Show instrument overview
    ping                       - Send a transport keepalive ping
    reconnect                  - Re-establish the connection
    help                       - Show this help
    quit                       - Exit

  Value Format:
    Tuples are comma-separated: set illumination beam_shift 0.0,1.02`)
}

// cmdSubsystems lists all subsystems in the catalog.
func (s *Shell) cmdSubsystems() {
	names := s.registry.Subsystems()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(s.rl.Stdout(), "  %-14s (%d items)\n", name, len(s.registry.Items(name)))
	}
}

// cmdItems lists the capabilities of one subsystem.
func (s *Shell) cmdItems(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: items <subsystem>")
		return
	}

	items := s.registry.Items(args[0])
	if len(items) == 0 {
		fmt.Fprintf(s.rl.Stdout(), "Unknown subsystem: %s\n", args[0])
		return
	}

	for _, desc := range items {
		if desc.IsMethod() {
			params := make([]string, len(desc.Params))
			for i, p := range desc.Params {
				params[i] = p.Name
				if p.Required {
					params[i] += "*"
				}
			}
			fmt.Fprintf(s.rl.Stdout(), "  %-22s method(%s) -> %s\n", desc.Item, strings.Join(params, ", "), desc.Type)
			continue
		}
		fmt.Fprintf(s.rl.Stdout(), "  %-22s %s %s\n", desc.Item, desc.Kind, desc.Type)
	}
}

// cmdGet reads a property.
func (s *Shell) cmdGet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: get <subsystem> <item>")
		fmt.Fprintln(s.rl.Stdout(), "  Example: get stage position")
		return
	}

	value, err := s.client.Get(context.Background(), args[0], args[1])
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s.%s = %s\n", args[0], args[1], value)
}

// cmdSet writes a property. The value is parsed against the catalog's
// declared type.
func (s *Shell) cmdSet(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: set <subsystem> <item> <value>")
		fmt.Fprintln(s.rl.Stdout(), "  Example: set illumination beam_shift 0.0,1.02")
		return
	}

	desc, err := s.registry.Lookup(args[0], args[1])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	value, err := parseValue(desc.Type, strings.Join(args[2:], " "))
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid value: %v\n", err)
		return
	}

	if err := s.client.Set(context.Background(), args[0], args[1], value); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "OK")
}

// cmdCall invokes a method with name=value arguments.
func (s *Shell) cmdCall(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: call <subsystem> <item> [name=value ...]")
		fmt.Fprintln(s.rl.Stdout(), "  Example: call stage go_to x=-30.0 y=25.5")
		return
	}

	desc, err := s.registry.Lookup(args[0], args[1])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	callArgs, err := parseCallArgs(desc, args[2:])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid arguments: %v\n", err)
		return
	}

	start := time.Now()
	result, err := s.client.Call(context.Background(), args[0], args[1], callArgs)
	if err != nil {
		s.printError(err)
		return
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	if result.IsNone() {
		fmt.Fprintf(s.rl.Stdout(), "OK (%s)\n", elapsed)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s (%s)\n", result, elapsed)
}

// cmdAcquire acquires an image and optionally saves the raw pixels.
func (s *Shell) cmdAcquire(args []string) {
	stem := false
	if len(args) > 0 && args[0] == "-stem" {
		stem = true
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: acquire [-stem] <camera|detector> [file]")
		return
	}

	item := "acquire_tem_image"
	argName := "camera"
	if stem {
		item = "acquire_stem_image"
		argName = "detector"
	}

	start := time.Now()
	result, err := s.client.Call(context.Background(), schema.SubAcquisition, item,
		wire.Args{{Name: argName, Value: wire.Str(args[0])}})
	if err != nil {
		s.printError(err)
		return
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	img := result.Img
	if img == nil {
		fmt.Fprintln(s.rl.Stdout(), "No image returned")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Acquired %dx%d %d-bit image, %d bytes (%s)\n",
		img.Header.Width, img.Header.Height, img.Header.BitDepth, len(img.Pixels), elapsed)

	if len(args) > 1 {
		if err := os.WriteFile(args[1], img.Pixels, 0o644); err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Saving failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.rl.Stdout(), "Saved raw pixels to %s\n", args[1])
	}
}

// cmdStatus prints an instrument overview through the typed facade.
func (s *Shell) cmdStatus(ctx context.Context) {
	out := s.rl.Stdout()

	family, err := s.scope.Family(ctx)
	if err != nil {
		s.printError(err)
		return
	}
	mode, err := s.scope.Mode(ctx)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(out, "Instrument:  %s (%s mode)\n", family, mode)

	if ht, err := s.scope.Gun().HTState(ctx); err == nil {
		voltage, _ := s.scope.Gun().Voltage(ctx)
		fmt.Fprintf(out, "High tension: %s, %.0f V\n", ht, voltage)
	}

	if pos, err := s.scope.Stage().Position(ctx); err == nil {
		status, _ := s.scope.Stage().Status(ctx)
		fmt.Fprintf(out, "Stage:       %s at (%.3f, %.3f, %.3f) um\n", status, pos.X, pos.Y, pos.Z)
	}

	if vac, err := s.scope.Vacuum().Status(ctx); err == nil {
		valves, _ := s.scope.Vacuum().ColumnValvesOpen(ctx)
		fmt.Fprintf(out, "Vacuum:      %s, column valves open: %t\n", vac, valves)
	}
}

// cmdPing sends a transport-level keepalive ping. The pong is consumed
// by the next operation's receive loop.
func (s *Shell) cmdPing() {
	s.pingSeq++
	if err := s.client.Ping(s.pingSeq); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "ping sent seq=%d\n", s.pingSeq)
}

// cmdReconnect re-establishes the connection after a timeout or drop.
func (s *Shell) cmdReconnect(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.Reconnect(dialCtx); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Reconnect failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Reconnected")
}

// printError renders protocol status errors distinctly from connection
// failures.
func (s *Shell) printError(err error) {
	var statusErr *remote.StatusError
	switch {
	case errors.As(err, &statusErr):
		fmt.Fprintf(s.rl.Stdout(), "Instrument error: %v\n", statusErr)
	case errors.Is(err, remote.ErrTimedOut), errors.Is(err, remote.ErrConnectionLost):
		fmt.Fprintf(s.rl.Stdout(), "Connection error: %v (use 'reconnect')\n", err)
	default:
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
	}
}

// parseValue parses a shell token against a declared value type.
// Tuples are comma-separated.
func parseValue(vt schema.ValueType, raw string) (wire.Value, error) {
	switch vt {
	case schema.TypeFloat64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("expected float: %q", raw)
		}
		return wire.Float(v), nil

	case schema.TypeInt64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("expected integer: %q", raw)
		}
		return wire.Int(v), nil

	case schema.TypeEnum:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("expected enum ordinal: %q", raw)
		}
		return wire.Enum(v), nil

	case schema.TypeString:
		return wire.Str(strings.Trim(raw, "\"'")), nil

	case schema.TypeBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return wire.Value{}, fmt.Errorf("expected bool: %q", raw)
		}
		return wire.Bool(v), nil

	case schema.TypeVec2, schema.TypeVec3:
		parts := strings.Split(raw, ",")
		if len(parts) != vt.Arity() {
			return wire.Value{}, fmt.Errorf("expected %d comma-separated floats: %q", vt.Arity(), raw)
		}
		tuple := make([]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return wire.Value{}, fmt.Errorf("component %d: expected float: %q", i, p)
			}
			tuple[i] = v
		}
		return wire.Value{Type: vt, Tuple: tuple}, nil

	default:
		return wire.Value{}, fmt.Errorf("type %s cannot be entered from the shell", vt)
	}
}

// parseCallArgs parses name=value tokens against a method's declared
// parameters.
func parseCallArgs(desc *schema.Descriptor, tokens []string) (wire.Args, error) {
	var args wire.Args
	for _, token := range tokens {
		name, raw, ok := strings.Cut(token, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", token)
		}
		param := desc.Param(name)
		if param == nil {
			return nil, fmt.Errorf("method %s.%s has no parameter %q", desc.Subsystem, desc.Item, name)
		}
		value, err := parseValue(param.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args = append(args, wire.Arg{Name: name, Value: value})
	}
	return args, nil
}
