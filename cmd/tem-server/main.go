// Command tem-server serves a microscope to remote clients.
//
// By default it serves the built-in simulated instrument, which is
// useful for developing client code without access to a real column.
//
// Usage:
//
//	tem-server [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-address string       Listen address (default ":8030")
//	-protocol-log string  Protocol event log file (.tlog), empty disables
//	-verbose              Mirror protocol events to the console
//	-timeout duration     Per-operation driver timeout (default 60s)
//	-startup-delay duration
//	                      Answer BUSY for this long after launch,
//	                      mimicking instrument initialization
//	-version              Print version and exit
//
// Examples:
//
//	# Serve the simulator on the default port
//	tem-server
//
//	# Serve with a protocol log for later inspection with tem-log
//	tem-server -address :9030 -protocol-log session.tlog
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/temscript/temscript-go/pkg/config"
	"github.com/temscript/temscript-go/pkg/dispatch"
	"github.com/temscript/temscript-go/pkg/instrument/sim"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/version"
)

var (
	configFile   string
	address      string
	protocolLog  string
	verbose      bool
	timeout      time.Duration
	startupDelay time.Duration
	showVersion  bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&address, "address", "", "Listen address (overrides config)")
	flag.StringVar(&protocolLog, "protocol-log", "", "Protocol event log file (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Mirror protocol events to the console")
	flag.DurationVar(&timeout, "timeout", 0, "Per-operation driver timeout (overrides config)")
	flag.DurationVar(&startupDelay, "startup-delay", 0, "Answer BUSY for this long after launch")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
}

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	if showVersion {
		fmt.Printf("tem-server %s (protocol %s)\n", version.Library, version.Current)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	stdlog.Printf("TEM instrument server %s (protocol %s)", version.Library, version.Current)
	stdlog.Printf("Listen address: %s", cfg.Address)

	logger, closeLogger, err := openLogger(cfg.ProtocolLog)
	if err != nil {
		stdlog.Fatalf("Opening protocol log: %v", err)
	}
	defer closeLogger()

	driver := sim.New()
	defer driver.Close()

	server, err := dispatch.NewServer(dispatch.Config{
		Address:        cfg.Address,
		MaxMessageSize: uint32(cfg.MaxMessageSize),
		Driver:         driver,
		Timeout:        cfg.OperationTimeout.Std(),
		Logger:         logger,
	})
	if err != nil {
		stdlog.Fatalf("Creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if delay := cfg.Simulator.StartupDelay.Std(); delay > 0 {
		server.Dispatcher().SetReady(false)
		stdlog.Printf("Simulating instrument startup: BUSY for %s", delay)
		time.AfterFunc(delay, func() {
			server.Dispatcher().SetReady(true)
			stdlog.Println("Instrument ready")
		})
	}

	if err := server.Start(ctx); err != nil {
		stdlog.Fatalf("Starting server: %v", err)
	}
	stdlog.Printf("Listening on %s", server.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	stdlog.Printf("Received signal: %v", sig)
	stdlog.Println("Shutting down...")

	if err := server.Stop(); err != nil {
		stdlog.Printf("Error stopping server: %v", err)
	}
}

// loadConfig merges the config file (if any) with command-line flags.
// Flags win.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if address != "" {
		cfg.Address = address
	}
	if protocolLog != "" {
		cfg.ProtocolLog = protocolLog
	}
	if timeout > 0 {
		cfg.OperationTimeout = config.Duration(timeout)
	}
	if startupDelay > 0 {
		cfg.Simulator.StartupDelay = config.Duration(startupDelay)
	}
	return cfg, nil
}

// openLogger assembles the protocol capture chain: a file capture
// when a path is configured, mirrored to the console with -verbose.
func openLogger(path string) (log.Logger, func(), error) {
	var sinks []log.Logger

	closeFn := func() {}
	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, err
		}
		stdlog.Printf("Protocol log: %s", path)
		sinks = append(sinks, fl)
		closeFn = func() { _ = fl.Close() }
	}
	if verbose {
		console := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		sinks = append(sinks, log.NewSlogAdapter(console))
	}

	switch len(sinks) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return log.NewMultiLogger(sinks...), closeFn, nil
	}
}
