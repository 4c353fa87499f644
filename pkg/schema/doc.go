// Package schema defines the capability catalog shared by the client and
// server builds.
//
// The catalog is a fixed table mapping instrument subsystems (stage, gun,
// illumination, ...) to the properties and methods each one exposes, with
// the value type of every item. It is deliberately static: the set of
// capabilities an instrument offers depends on hardware and firmware
// version and cannot be introspected safely, so both ends load the same
// pinned table and never negotiate capabilities over the wire. Table
// drift between client and server versions is a configuration error.
package schema
