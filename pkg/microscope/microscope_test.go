package microscope_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/instrument/sim"
	"github.com/temscript/temscript-go/pkg/microscope"
)

func newTestMicroscope(t *testing.T) *microscope.Microscope {
	t.Helper()
	m := microscope.New(sim.New())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestConfiguration(t *testing.T) {
	m := newTestMicroscope(t)
	ctx := context.Background()

	family, err := m.Family(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.FamilyTitan, family)

	mode, err := m.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.ModeTEM, mode)
}

func TestStageFacade(t *testing.T) {
	m := newTestMicroscope(t)
	stage := m.Stage()
	ctx := context.Background()

	status, err := stage.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.StageReady, status)

	holder, err := stage.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.HolderSingleTilt, holder)

	require.NoError(t, stage.GoTo(ctx, microscope.Move{
		X: microscope.F(-30.0),
		Y: microscope.F(25.5),
	}))

	pos, err := stage.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.Position{X: -30.0, Y: 25.5, Z: 0.0}, pos)

	// A relative move accumulates.
	require.NoError(t, stage.GoTo(ctx, microscope.Move{
		X:        microscope.F(5.0),
		Relative: true,
	}))
	pos, err = stage.Position(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -25.0, pos.X, 1e-9)

	tilt, err := stage.Tilt(ctx)
	require.NoError(t, err)
	assert.Zero(t, tilt.A)
}

func TestStageLimits(t *testing.T) {
	m := newTestMicroscope(t)

	limits, err := m.Stage().Limits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, microscope.AxisLimit{Min: -1000, Max: 1000}, limits.X)
	assert.Equal(t, microscope.AxisLimit{Min: -375, Max: 375}, limits.Z)
	assert.Equal(t, microscope.AxisLimit{Min: -70, Max: 70}, limits.A)
	assert.Equal(t, microscope.AxisLimit{Min: -30, Max: 30}, limits.B)
}

func TestStageMoveOutOfRange(t *testing.T) {
	m := newTestMicroscope(t)

	err := m.Stage().MoveTo(context.Background(), microscope.Move{
		X: microscope.F(1500.0),
	})
	require.Error(t, err)
	f, ok := instrument.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, instrument.ReasonOutOfRange, f.Reason)
}

func TestGunFacade(t *testing.T) {
	m := newTestMicroscope(t)
	gun := m.Gun()
	ctx := context.Background()

	state, err := gun.HTState(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.HTOn, state)

	voltage, err := gun.Voltage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300e3, voltage)

	// Voltage reads zero with the high tension off.
	require.NoError(t, gun.SetHTState(ctx, microscope.HTOff))
	voltage, err = gun.Voltage(ctx)
	require.NoError(t, err)
	assert.Zero(t, voltage)

	require.NoError(t, gun.SetShift(ctx, microscope.Vector{X: 0.1, Y: -0.2}))
	shift, err := gun.Shift(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.Vector{X: 0.1, Y: -0.2}, shift)
}

func TestIlluminationFacade(t *testing.T) {
	m := newTestMicroscope(t)
	ill := m.Illumination()
	ctx := context.Background()

	require.NoError(t, ill.SetMode(ctx, microscope.Microprobe))
	mode, err := ill.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.Microprobe, mode)

	require.NoError(t, ill.SetSpotSize(ctx, 5))
	spot, err := ill.SpotSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), spot)

	assert.Error(t, ill.SetSpotSize(ctx, 12), "spot size beyond range")

	require.NoError(t, ill.SetBeamShift(ctx, microscope.Vector{X: 0.0, Y: 1.02}))
	shift, err := ill.BeamShift(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.Vector{X: 0.0, Y: 1.02}, shift)

	require.NoError(t, ill.Normalize(ctx))
}

func TestProjectionFacade(t *testing.T) {
	m := newTestMicroscope(t)
	proj := m.Projection()
	ctx := context.Background()

	mag, err := proj.Magnification(ctx)
	require.NoError(t, err)
	assert.Equal(t, 57000.0, mag)

	require.NoError(t, proj.SetMode(ctx, microscope.ProjDiffraction))
	mode, err := proj.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.ProjDiffraction, mode)

	require.NoError(t, proj.SetDefocus(ctx, -2.5e-6))
	defocus, err := proj.Defocus(ctx)
	require.NoError(t, err)
	assert.Equal(t, -2.5e-6, defocus)

	require.NoError(t, proj.Normalize(ctx, "objective"))
	require.NoError(t, proj.Normalize(ctx, ""))
}

func TestVacuumFacade(t *testing.T) {
	m := newTestMicroscope(t)
	vac := m.Vacuum()
	ctx := context.Background()

	status, err := vac.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, microscope.VacuumReady, status)

	require.NoError(t, vac.SetColumnValvesOpen(ctx, true))
	open, err := vac.ColumnValvesOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	gauges, err := vac.Gauges(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, gauges)
	assert.Equal(t, "IGP1", gauges[0].Name)
	assert.Positive(t, gauges[0].Pressure)

	require.NoError(t, vac.RunBufferCycle(ctx))
}

func TestAcquisitionFacade(t *testing.T) {
	m := newTestMicroscope(t)
	acq := m.Acquisition()
	ctx := context.Background()

	cameras, err := acq.Cameras(ctx)
	require.NoError(t, err)
	require.Len(t, cameras, 2)
	assert.Equal(t, "BM-Ceta", cameras[0].Name)
	assert.Equal(t, int64(4096), cameras[0].Width)

	detectors, err := acq.Detectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BF", "HAADF"}, detectors)

	img, err := acq.AcquireTEMImage(ctx, "BM-Ceta", microscope.AcquireOptions{
		Size:     microscope.AcqSizeQuarter,
		Exposure: 0.5,
		Binning:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(512), img.Header.Width)
	assert.NoError(t, img.Validate())

	stem, err := acq.AcquireSTEMImage(ctx, "HAADF", microscope.AcquireOptions{
		Exposure: 2e-6,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(2048), stem.Header.Width)
}

func TestCryoFacades(t *testing.T) {
	m := newTestMicroscope(t)
	ctx := context.Background()

	temp := m.Temperature()
	filling, err := temp.IsFilling(ctx)
	require.NoError(t, err)
	assert.False(t, filling)

	level, err := temp.DewarLevel(ctx, "autoloader")
	require.NoError(t, err)
	assert.Equal(t, 83.5, level)

	require.NoError(t, temp.ForceRefill(ctx))
	remaining, err := temp.RemainingTime(ctx)
	require.NoError(t, err)
	assert.Positive(t, remaining)

	loader := m.Autoloader()
	slots, err := loader.NumberOfSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), slots)

	require.NoError(t, loader.LoadCartridge(ctx, 2))
	status, err := loader.SlotStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "loaded", status)

	require.NoError(t, loader.UnloadCartridge(ctx))
	status, err = loader.SlotStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "occupied", status)
}
