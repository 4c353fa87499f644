// Package transport provides the instrument protocol transport layer.
//
// It carries CBOR messages over plain TCP, split into length-prefixed
// frames, with ping/pong control traffic to detect dead peers. The
// layers above (wire, dispatch) never touch sockets directly; they see
// whole frames in and whole frames out.
//
// The server is meant to run on the instrument's support PC and be
// reached over a trusted lab network; there is no encryption or
// authentication at this layer.
//
// # Framing
//
// Every message is one frame: a 4-byte big-endian length followed by
// that many payload bytes. The default frame limit is 64 MB so a full
// camera readout fits in a single frame.
//
// # Keep-Alive
//
// Sessions can sit idle for minutes between acquisitions, so liveness
// is checked with ping/pong control messages. The KeepAlive monitor
// runs probe exchanges supplied by the caller; with the defaults (30s
// interval, 5s probe timeout, 3 tolerated misses) a dead peer is
// noticed within 95 seconds.
package transport
