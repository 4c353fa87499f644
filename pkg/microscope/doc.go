// Package microscope provides the typed instrument facade and the
// shared enumeration ordinals of the wire protocol.
//
// The facade wraps a driver, local simulator or remote client alike,
// and exposes each subsystem as a small typed API: stage moves take
// coordinates in micrometers and degrees, acquisitions return images,
// enum properties come back as named Go constants instead of raw
// ordinals. All conversions between Go types and wire values happen
// here, so callers never touch the value union directly.
package microscope
