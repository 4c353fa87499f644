// Package remote implements the client side of the instrument protocol.
//
// Client speaks the wire protocol over a single TCP connection and
// exposes the same Get/Set/Call surface as a local driver, so the typed
// microscope facade runs unchanged against a simulator in-process or a
// real column on the other side of the lab network.
//
// Requests are validated against the capability catalog before anything
// is sent: an unknown capability or a SET against a read-only property
// fails locally without a network round trip. One request is in flight
// at a time; concurrent callers are serialized on the connection.
//
// Errors split three ways. A *StatusError carries a non-OK protocol
// status from the server and leaves the connection usable. ErrTimedOut
// and ErrConnectionLost are transport-level: after either, the stream
// can no longer be trusted and every call fails until Reconnect.
package remote
