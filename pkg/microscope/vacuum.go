package microscope

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Gauge is one vacuum gauge reading in pascal.
type Gauge struct {
	Name     string
	Pressure float64
}

// Vacuum controls the vacuum system.
type Vacuum struct {
	driver instrument.Driver
}

// Status reads the overall vacuum state.
func (v *Vacuum) Status(ctx context.Context) (VacuumStatus, error) {
	val, err := v.driver.Get(ctx, schema.SubVacuum, "status")
	if err != nil {
		return 0, err
	}
	return VacuumStatus(val.Int), nil
}

// ColumnValvesOpen reads the column valve state.
func (v *Vacuum) ColumnValvesOpen(ctx context.Context) (bool, error) {
	val, err := v.driver.Get(ctx, schema.SubVacuum, "column_valves_open")
	if err != nil {
		return false, err
	}
	return val.Bool, nil
}

// SetColumnValvesOpen opens or closes the column valves. Opening fails
// unless the column vacuum is ready.
func (v *Vacuum) SetColumnValvesOpen(ctx context.Context, open bool) error {
	return v.driver.Set(ctx, schema.SubVacuum, "column_valves_open", wire.Bool(open))
}

// Gauges reads all vacuum gauges in catalog order.
func (v *Vacuum) Gauges(ctx context.Context) ([]Gauge, error) {
	val, err := v.driver.Get(ctx, schema.SubVacuum, "gauges")
	if err != nil {
		return nil, err
	}
	gauges := make([]Gauge, 0, len(val.Rec))
	for _, field := range val.Rec {
		gauges = append(gauges, Gauge{Name: field.Name, Pressure: field.Value.Num})
	}
	return gauges, nil
}

// RunBufferCycle starts a buffer tank pump cycle.
func (v *Vacuum) RunBufferCycle(ctx context.Context) error {
	_, err := v.driver.Call(ctx, schema.SubVacuum, "run_buffer_cycle", nil)
	return err
}
