// Command tem-shell is an interactive client for a microscope server.
//
// Usage:
//
//	tem-shell [flags]
//
// Flags:
//
//	-address string       Server address (default "localhost:8030")
//	-timeout duration     Per-operation timeout (default 90s)
//	-keepalive duration   Liveness probe interval, 0 disables (default 30s)
//	-protocol-log string  Protocol event log file (.tlog), empty disables
//	-version              Print version and exit
//
// Examples:
//
//	# Connect to a local simulator
//	tem-shell
//
//	# Connect to a microscope PC, logging all traffic
//	tem-shell -address titan-support:8030 -protocol-log session.tlog
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/temscript/temscript-go/cmd/tem-shell/interactive"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/remote"
	"github.com/temscript/temscript-go/pkg/transport"
	"github.com/temscript/temscript-go/pkg/version"
)

var (
	address     string
	timeout     time.Duration
	keepalive   time.Duration
	protocolLog string
	showVersion bool
)

func init() {
	flag.StringVar(&address, "address", fmt.Sprintf("localhost:%d", transport.DefaultPort), "Server address")
	flag.DurationVar(&timeout, "timeout", remote.DefaultTimeout, "Per-operation timeout")
	flag.DurationVar(&keepalive, "keepalive", transport.DefaultProbeInterval, "Liveness probe interval, 0 disables")
	flag.StringVar(&protocolLog, "protocol-log", "", "Protocol event log file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
}

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime)

	if showVersion {
		fmt.Printf("tem-shell %s (protocol %s)\n", version.Library, version.Current)
		return
	}

	var logger log.Logger = log.NoopLogger{}
	if protocolLog != "" {
		fl, err := log.NewFileLogger(protocolLog)
		if err != nil {
			stdlog.Fatalf("Opening protocol log: %v", err)
		}
		defer fl.Close()
		logger = fl
	}

	cfg := remote.Config{
		Address: address,
		Timeout: timeout,
		Logger:  logger,
	}
	if keepalive > 0 {
		cfg.KeepAlive = &transport.KeepAliveConfig{ProbeInterval: keepalive}
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := remote.Dial(dialCtx, cfg)
	dialCancel()
	if err != nil {
		stdlog.Fatalf("Connecting to %s: %v", address, err)
	}
	defer client.Close()

	fmt.Printf("Connected to %s\n", address)

	shell, err := interactive.New(client)
	if err != nil {
		stdlog.Fatalf("Starting shell: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C inside readline is handled as an interrupt; signals matter
	// when the prompt is not in control.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	shell.Run(ctx, cancel)
}
