package instrument

import (
	"context"

	"github.com/temscript/temscript-go/pkg/wire"
)

// Driver is the uniform operation surface over a microscope. All three
// operations address capabilities by (subsystem, item) pair; the caller
// is expected to have validated the pair against the capability catalog
// before invoking the driver.
//
// Implementations are not required to be safe for concurrent use: the
// server dispatcher serializes all driver invocations.
type Driver interface {
	// Get reads a property value.
	Get(ctx context.Context, subsystem, item string) (wire.Value, error)

	// Set writes a property value.
	Set(ctx context.Context, subsystem, item string, value wire.Value) error

	// Call invokes a method with named arguments and returns its result
	// (wire.None() for methods without a return value).
	Call(ctx context.Context, subsystem, item string, args wire.Args) (wire.Value, error)

	// Close releases the underlying instrument handle.
	Close() error
}
