// Package dispatch implements the server-side request dispatcher.
//
// Each connection's read loop feeds frames to a shared Dispatcher. The
// dispatcher validates every request against the capability catalog
// before the driver sees it, decodes payloads against the declared
// types, and serializes all driver invocations through a single mutex:
// vendor scripting interfaces are single-threaded, so at most one
// operation executes on the instrument at any time regardless of how
// many clients are connected.
//
// Driver failures map onto protocol status codes by fault reason. A
// lost driver handle is fatal: once observed, every subsequent request
// is answered with DRIVER_LOST until the server is restarted.
package dispatch
