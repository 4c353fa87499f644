package microscope

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Gun controls the electron source.
type Gun struct {
	driver instrument.Driver
}

// HTState reads the high tension state.
func (g *Gun) HTState(ctx context.Context) (HTState, error) {
	v, err := g.driver.Get(ctx, schema.SubGun, "ht_state")
	if err != nil {
		return 0, err
	}
	return HTState(v.Int), nil
}

// SetHTState switches the high tension. Enabling from Disabled is a
// service operation and fails on real instruments.
func (g *Gun) SetHTState(ctx context.Context, state HTState) error {
	return g.driver.Set(ctx, schema.SubGun, "ht_state", wire.Enum(int64(state)))
}

// Voltage reads the acceleration voltage in volts. Zero when the high
// tension is off.
func (g *Gun) Voltage(ctx context.Context) (float64, error) {
	return getFloat(ctx, g.driver, schema.SubGun, "voltage")
}

// VoltageOffset reads the offset from the nominal voltage.
func (g *Gun) VoltageOffset(ctx context.Context) (float64, error) {
	return getFloat(ctx, g.driver, schema.SubGun, "voltage_offset")
}

// SetVoltageOffset sets the offset from the nominal voltage.
func (g *Gun) SetVoltageOffset(ctx context.Context, offset float64) error {
	return g.driver.Set(ctx, schema.SubGun, "voltage_offset", wire.Float(offset))
}

// Shift reads the gun shift deflector.
func (g *Gun) Shift(ctx context.Context) (Vector, error) {
	return getVec2(ctx, g.driver, schema.SubGun, "shift")
}

// SetShift sets the gun shift deflector.
func (g *Gun) SetShift(ctx context.Context, v Vector) error {
	return setVec2(ctx, g.driver, schema.SubGun, "shift", v)
}

// Tilt reads the gun tilt deflector.
func (g *Gun) Tilt(ctx context.Context) (Vector, error) {
	return getVec2(ctx, g.driver, schema.SubGun, "tilt")
}

// SetTilt sets the gun tilt deflector.
func (g *Gun) SetTilt(ctx context.Context, v Vector) error {
	return setVec2(ctx, g.driver, schema.SubGun, "tilt", v)
}

// Illumination controls the condenser system.
type Illumination struct {
	driver instrument.Driver
}

// Mode reads the probe mode.
func (i *Illumination) Mode(ctx context.Context) (IlluminationMode, error) {
	v, err := i.driver.Get(ctx, schema.SubIllumination, "mode")
	if err != nil {
		return 0, err
	}
	return IlluminationMode(v.Int), nil
}

// SetMode switches between nanoprobe and microprobe.
func (i *Illumination) SetMode(ctx context.Context, mode IlluminationMode) error {
	return i.driver.Set(ctx, schema.SubIllumination, "mode", wire.Enum(int64(mode)))
}

// SpotSize reads the spot size index (1 is the largest probe current).
func (i *Illumination) SpotSize(ctx context.Context) (int64, error) {
	v, err := i.driver.Get(ctx, schema.SubIllumination, "spot_size")
	if err != nil {
		return 0, err
	}
	return v.Int, nil
}

// SetSpotSize sets the spot size index.
func (i *Illumination) SetSpotSize(ctx context.Context, size int64) error {
	return i.driver.Set(ctx, schema.SubIllumination, "spot_size", wire.Int(size))
}

// Intensity reads the C2 lens intensity setting in [0, 1].
func (i *Illumination) Intensity(ctx context.Context) (float64, error) {
	return getFloat(ctx, i.driver, schema.SubIllumination, "intensity")
}

// SetIntensity sets the C2 lens intensity.
func (i *Illumination) SetIntensity(ctx context.Context, intensity float64) error {
	return i.driver.Set(ctx, schema.SubIllumination, "intensity", wire.Float(intensity))
}

// BeamShift reads the beam shift deflector.
func (i *Illumination) BeamShift(ctx context.Context) (Vector, error) {
	return getVec2(ctx, i.driver, schema.SubIllumination, "beam_shift")
}

// SetBeamShift sets the beam shift deflector.
func (i *Illumination) SetBeamShift(ctx context.Context, v Vector) error {
	return setVec2(ctx, i.driver, schema.SubIllumination, "beam_shift", v)
}

// BeamTilt reads the beam tilt deflector.
func (i *Illumination) BeamTilt(ctx context.Context) (Vector, error) {
	return getVec2(ctx, i.driver, schema.SubIllumination, "beam_tilt")
}

// SetBeamTilt sets the beam tilt deflector.
func (i *Illumination) SetBeamTilt(ctx context.Context, v Vector) error {
	return setVec2(ctx, i.driver, schema.SubIllumination, "beam_tilt", v)
}

// Normalize runs condenser lens normalization.
func (i *Illumination) Normalize(ctx context.Context) error {
	_, err := i.driver.Call(ctx, schema.SubIllumination, "normalize", nil)
	return err
}

// Projection controls the imaging system.
type Projection struct {
	driver instrument.Driver
}

// Mode reads imaging versus diffraction.
func (p *Projection) Mode(ctx context.Context) (ProjectionMode, error) {
	v, err := p.driver.Get(ctx, schema.SubProjection, "mode")
	if err != nil {
		return 0, err
	}
	return ProjectionMode(v.Int), nil
}

// SetMode switches between imaging and diffraction.
func (p *Projection) SetMode(ctx context.Context, mode ProjectionMode) error {
	return p.driver.Set(ctx, schema.SubProjection, "mode", wire.Enum(int64(mode)))
}

// Magnification reads the current magnification (imaging mode).
func (p *Projection) Magnification(ctx context.Context) (float64, error) {
	return getFloat(ctx, p.driver, schema.SubProjection, "magnification")
}

// CameraLength reads the camera length in meters (diffraction mode).
func (p *Projection) CameraLength(ctx context.Context) (float64, error) {
	return getFloat(ctx, p.driver, schema.SubProjection, "camera_length")
}

// Focus reads the objective focus setting in [-1, 1].
func (p *Projection) Focus(ctx context.Context) (float64, error) {
	return getFloat(ctx, p.driver, schema.SubProjection, "focus")
}

// SetFocus sets the objective focus.
func (p *Projection) SetFocus(ctx context.Context, focus float64) error {
	return p.driver.Set(ctx, schema.SubProjection, "focus", wire.Float(focus))
}

// Defocus reads the defocus relative to the eucentric focus.
func (p *Projection) Defocus(ctx context.Context) (float64, error) {
	return getFloat(ctx, p.driver, schema.SubProjection, "defocus")
}

// SetDefocus sets the defocus.
func (p *Projection) SetDefocus(ctx context.Context, defocus float64) error {
	return p.driver.Set(ctx, schema.SubProjection, "defocus", wire.Float(defocus))
}

// ImageShift reads the image shift deflector.
func (p *Projection) ImageShift(ctx context.Context) (Vector, error) {
	return getVec2(ctx, p.driver, schema.SubProjection, "image_shift")
}

// SetImageShift sets the image shift deflector.
func (p *Projection) SetImageShift(ctx context.Context, v Vector) error {
	return setVec2(ctx, p.driver, schema.SubProjection, "image_shift", v)
}

// ImageBeamShift reads the coupled image-beam shift.
func (p *Projection) ImageBeamShift(ctx context.Context) (Vector, error) {
	return getVec2(ctx, p.driver, schema.SubProjection, "image_beam_shift")
}

// SetImageBeamShift sets the coupled image-beam shift.
func (p *Projection) SetImageBeamShift(ctx context.Context, v Vector) error {
	return setVec2(ctx, p.driver, schema.SubProjection, "image_beam_shift", v)
}

// Normalize runs projection lens normalization. The lenses argument
// names the lens group ("objective", "projector", "all"); empty means
// all.
func (p *Projection) Normalize(ctx context.Context, lenses string) error {
	var args wire.Args
	if lenses != "" {
		args = wire.Args{{Name: "lenses", Value: wire.Str(lenses)}}
	}
	_, err := p.driver.Call(ctx, schema.SubProjection, "normalize", args)
	return err
}
