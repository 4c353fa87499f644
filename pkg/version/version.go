// Package version provides protocol version parsing and comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// Library is the library release version, reported by the command-line
// tools.
const Library = "0.3.0"

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minorStr, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	component := func(name, str string) (uint16, error) {
		n, err := strconv.ParseUint(str, 10, 16)
		if err != nil || str == "" {
			return 0, fmt.Errorf("invalid version %q: bad %s component", s, name)
		}
		return uint16(n), nil
	}

	major, err := component("major", majorStr)
	if err != nil {
		return ProtocolVersion{}, err
	}
	minor, err := component("minor", minorStr)
	if err != nil {
		return ProtocolVersion{}, err
	}
	return ProtocolVersion{Major: major, Minor: minor}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major
// version. Minor versions only add capabilities, so any minor mismatch
// is interoperable.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}
