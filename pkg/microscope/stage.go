package microscope

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Position is a stage translation in micrometers.
type Position struct {
	X float64
	Y float64
	Z float64
}

// TiltAngles is the stage tilt in degrees. B is meaningful only with a
// double tilt holder.
type TiltAngles struct {
	A float64
	B float64
}

// AxisLimit is the travel range of one stage axis.
type AxisLimit struct {
	Min float64
	Max float64
}

// Limits holds the travel ranges of all five axes.
type Limits struct {
	X AxisLimit
	Y AxisLimit
	Z AxisLimit
	A AxisLimit
	B AxisLimit
}

// Move describes a stage move. Nil axes keep their current value.
// Speed, when set, is a fraction of maximum speed in (0, 1]; Relative
// makes all axis values offsets from the current position.
type Move struct {
	X        *float64
	Y        *float64
	Z        *float64
	A        *float64
	B        *float64
	Speed    *float64
	Relative bool
}

// Stage controls the specimen stage.
type Stage struct {
	driver instrument.Driver
}

// Status reads the stage movement state.
func (s *Stage) Status(ctx context.Context) (StageStatus, error) {
	v, err := s.driver.Get(ctx, schema.SubStage, "status")
	if err != nil {
		return 0, err
	}
	return StageStatus(v.Int), nil
}

// Holder reads the mounted specimen holder type.
func (s *Stage) Holder(ctx context.Context) (HolderType, error) {
	v, err := s.driver.Get(ctx, schema.SubStage, "holder")
	if err != nil {
		return 0, err
	}
	return HolderType(v.Int), nil
}

// Position reads the current translation.
func (s *Stage) Position(ctx context.Context) (Position, error) {
	v, err := s.driver.Get(ctx, schema.SubStage, "position")
	if err != nil {
		return Position{}, err
	}
	return Position{X: v.Tuple[0], Y: v.Tuple[1], Z: v.Tuple[2]}, nil
}

// Tilt reads the current tilt angles.
func (s *Stage) Tilt(ctx context.Context) (TiltAngles, error) {
	v, err := s.driver.Get(ctx, schema.SubStage, "tilt")
	if err != nil {
		return TiltAngles{}, err
	}
	return TiltAngles{A: v.Tuple[0], B: v.Tuple[1]}, nil
}

// Limits reads the travel ranges.
func (s *Stage) Limits(ctx context.Context) (Limits, error) {
	v, err := s.driver.Get(ctx, schema.SubStage, "limits")
	if err != nil {
		return Limits{}, err
	}
	var limits Limits
	for _, field := range v.Rec {
		axis := decodeAxisLimit(field.Value)
		switch field.Name {
		case "x":
			limits.X = axis
		case "y":
			limits.Y = axis
		case "z":
			limits.Z = axis
		case "a":
			limits.A = axis
		case "b":
			limits.B = axis
		}
	}
	return limits, nil
}

func decodeAxisLimit(v wire.Value) AxisLimit {
	var limit AxisLimit
	for _, field := range v.Rec {
		switch field.Name {
		case "min":
			limit.Min = field.Value.Num
		case "max":
			limit.Max = field.Value.Num
		}
	}
	return limit
}

// GoTo moves the stage with speed control.
func (s *Stage) GoTo(ctx context.Context, move Move) error {
	_, err := s.driver.Call(ctx, schema.SubStage, "go_to", move.args(true))
	return err
}

// MoveTo moves the stage at full speed along the default axis order.
func (s *Stage) MoveTo(ctx context.Context, move Move) error {
	_, err := s.driver.Call(ctx, schema.SubStage, "move_to", move.args(false))
	return err
}

func (m Move) args(withSpeed bool) wire.Args {
	var args wire.Args
	add := func(name string, v *float64) {
		if v != nil {
			args = append(args, wire.Arg{Name: name, Value: wire.Float(*v)})
		}
	}
	add("x", m.X)
	add("y", m.Y)
	add("z", m.Z)
	add("a", m.A)
	add("b", m.B)
	if withSpeed {
		add("speed", m.Speed)
		if m.Relative {
			args = append(args, wire.Arg{Name: "relative", Value: wire.Bool(true)})
		}
	}
	return args
}

// F is a convenience for building optional Move axes inline.
func F(v float64) *float64 { return &v }
