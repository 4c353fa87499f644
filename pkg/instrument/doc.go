// Package instrument defines the driver boundary between the protocol
// stack and a microscope.
//
// A Driver exposes the full capability catalog as three uniform
// operations (Get, Set, Call). Three implementations exist:
//
//   - sim.Driver: an offline simulator with plausible canned state,
//     used for development and tests without hardware.
//   - remote.Client: forwards every operation to an instrument server
//     over TCP.
//   - a vendor-backed driver wrapping the manufacturer's scripting
//     interface on the support PC (not part of this module).
//
// Drivers report hardware-level failures as *Fault values so callers
// can distinguish a busy instrument or a lost vendor handle from a
// plain rejection.
package instrument
