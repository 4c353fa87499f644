// Package log captures the instrument protocol as a structured event
// stream.
//
// Protocol capture is distinct from operational logging: instead of
// human-oriented lines it records every frame, decoded message, state
// change, control exchange, and error as a typed Event, precise enough
// to reconstruct a session after the fact. Driver faults on a
// microscope are often diagnosed days later from whatever trace the
// operator kept, so capture favors completeness over readability; the
// tem-log tool renders captures for humans.
//
// Captures are .tlog files: a concatenation of canonically CBOR-encoded
// events written by FileLogger and read back by Reader. A Filter
// narrows a read to one connection, layer, subsystem, or time window.
//
// Both the server and client accept any Logger:
//
//	fl, _ := log.NewFileLogger("session.tlog")
//	defer fl.Close()
//
//	// Capture to file and mirror to the console at the same time.
//	logger := log.NewMultiLogger(fl, log.NewSlogAdapter(slog.Default()))
//
// Events are emitted at three layers: transport (raw frames, with
// large payloads truncated), wire (decoded requests and responses),
// and service (readiness and connection state changes).
package log
