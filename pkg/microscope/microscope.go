package microscope

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Microscope is the typed entry point to an instrument. It wraps a
// driver and hands out one facade per subsystem. Concurrency follows
// the underlying driver: the remote client serializes on its
// connection, a directly-held simulator must not be shared.
type Microscope struct {
	driver instrument.Driver
}

// New wraps a driver in the typed facade. The caller keeps ownership
// of the driver and is responsible for closing it.
func New(driver instrument.Driver) *Microscope {
	return &Microscope{driver: driver}
}

// Close closes the underlying driver.
func (m *Microscope) Close() error {
	return m.driver.Close()
}

// Family reads the product family of the instrument.
func (m *Microscope) Family(ctx context.Context) (ProductFamily, error) {
	v, err := m.driver.Get(ctx, schema.SubConfiguration, "family")
	if err != nil {
		return 0, err
	}
	return ProductFamily(v.Int), nil
}

// Mode reads whether the instrument runs in TEM or STEM mode.
func (m *Microscope) Mode(ctx context.Context) (InstrumentMode, error) {
	v, err := m.driver.Get(ctx, schema.SubConfiguration, "instrument_mode")
	if err != nil {
		return 0, err
	}
	return InstrumentMode(v.Int), nil
}

// Subsystem facades. Each is a thin view over the shared driver and
// may be retained for the lifetime of the Microscope.

func (m *Microscope) Stage() *Stage { return &Stage{driver: m.driver} }
func (m *Microscope) Gun() *Gun     { return &Gun{driver: m.driver} }
func (m *Microscope) Illumination() *Illumination {
	return &Illumination{driver: m.driver}
}
func (m *Microscope) Projection() *Projection   { return &Projection{driver: m.driver} }
func (m *Microscope) Vacuum() *Vacuum           { return &Vacuum{driver: m.driver} }
func (m *Microscope) Acquisition() *Acquisition { return &Acquisition{driver: m.driver} }
func (m *Microscope) Temperature() *Temperature { return &Temperature{driver: m.driver} }
func (m *Microscope) Autoloader() *Autoloader   { return &Autoloader{driver: m.driver} }

// getFloat reads a float property.
func getFloat(ctx context.Context, d instrument.Driver, subsystem, item string) (float64, error) {
	v, err := d.Get(ctx, subsystem, item)
	if err != nil {
		return 0, err
	}
	return v.Num, nil
}

// getVec2 reads a 2-tuple property.
func getVec2(ctx context.Context, d instrument.Driver, subsystem, item string) (Vector, error) {
	v, err := d.Get(ctx, subsystem, item)
	if err != nil {
		return Vector{}, err
	}
	return Vector{X: v.Tuple[0], Y: v.Tuple[1]}, nil
}

// setVec2 writes a 2-tuple property.
func setVec2(ctx context.Context, d instrument.Driver, subsystem, item string, vec Vector) error {
	return d.Set(ctx, subsystem, item, wire.Vec2(vec.X, vec.Y))
}

// Vector is a 2D optics vector (shifts and tilts). Units follow the
// vendor scripting interface: logical units in [-1, 1] for deflectors.
type Vector struct {
	X float64
	Y float64
}
