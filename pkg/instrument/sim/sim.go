package sim

import (
	"context"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/microscope"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Stage travel limits, micrometers and degrees.
const (
	limitXY    = 1000.0
	limitZ     = 375.0
	limitAlpha = 70.0
	limitBeta  = 30.0
)

type camera struct {
	name   string
	width  uint32
	height uint32
}

type slot struct {
	occupied bool
}

// Driver is the simulated instrument. The zero value is not usable;
// create instances with New.
//
// Driver is not safe for concurrent use. The server dispatcher
// serializes all invocations, matching the single-threaded vendor
// scripting interface the simulator stands in for.
type Driver struct {
	family microscope.ProductFamily
	mode   microscope.InstrumentMode

	stageStatus microscope.StageStatus
	holder      microscope.HolderType
	x, y, z     float64
	a, b        float64

	htState       microscope.HTState
	voltage       float64
	voltageOffset float64
	gunShift      [2]float64
	gunTilt       [2]float64

	illMode   microscope.IlluminationMode
	spotSize  int64
	intensity float64
	beamShift [2]float64
	beamTilt  [2]float64

	projMode       microscope.ProjectionMode
	magnification  float64
	cameraLength   float64
	focus          float64
	defocus        float64
	imageShift     [2]float64
	imageBeamShift [2]float64

	vacuumStatus microscope.VacuumStatus
	valvesOpen   bool

	cameras       []camera
	detectors     []string
	screenCurrent float64

	isFilling     bool
	remainingTime int64
	dewarLevels   map[string]float64

	slots      []slot
	loadedSlot int // 0 = none

	noise noiseSource
}

// New creates a simulator in a ready-to-work state: vacuum pumped,
// high tension on, a single tilt holder mounted.
func New() *Driver {
	return &Driver{
		family: microscope.FamilyTitan,
		mode:   microscope.ModeTEM,

		stageStatus: microscope.StageReady,
		holder:      microscope.HolderSingleTilt,

		htState:  microscope.HTOn,
		voltage:  300e3,
		illMode:  microscope.Nanoprobe,
		spotSize: 3,
		// Roughly parallel illumination.
		intensity: 0.45,

		projMode:      microscope.ProjImaging,
		magnification: 57000,
		cameraLength:  0.195,
		focus:         0.0,

		vacuumStatus: microscope.VacuumReady,
		valvesOpen:   false,

		cameras: []camera{
			{name: "BM-Ceta", width: 4096, height: 4096},
			{name: "BM-Falcon", width: 4096, height: 4096},
		},
		detectors:     []string{"BF", "HAADF"},
		screenCurrent: 1.2e-9,

		remainingTime: 0,
		dewarLevels: map[string]float64{
			"autoloader": 83.5,
			"column":     91.0,
		},

		slots:      makeSlots(12),
		loadedSlot: 0,

		noise: noiseSource{state: 0x9e3779b9},
	}
}

func makeSlots(n int) []slot {
	s := make([]slot, n)
	// Slots 1-4 hold cartridges out of the box.
	for i := 0; i < 4 && i < n; i++ {
		s[i].occupied = true
	}
	return s
}

// Close implements instrument.Driver. The simulator holds no handle.
func (d *Driver) Close() error { return nil }

// Get implements instrument.Driver.
func (d *Driver) Get(_ context.Context, subsystem, item string) (wire.Value, error) {
	switch subsystem {
	case schema.SubConfiguration:
		return d.getConfiguration(item)
	case schema.SubStage:
		return d.getStage(item)
	case schema.SubGun:
		return d.getGun(item)
	case schema.SubIllumination:
		return d.getIllumination(item)
	case schema.SubProjection:
		return d.getProjection(item)
	case schema.SubVacuum:
		return d.getVacuum(item)
	case schema.SubAcquisition:
		return d.getAcquisition(item)
	case schema.SubTemperature:
		return d.getTemperature(item)
	case schema.SubAutoloader:
		return d.getAutoloader(item)
	}
	return wire.Value{}, unsupported(subsystem, item)
}

// Set implements instrument.Driver.
func (d *Driver) Set(_ context.Context, subsystem, item string, v wire.Value) error {
	switch subsystem {
	case schema.SubGun:
		return d.setGun(item, v)
	case schema.SubIllumination:
		return d.setIllumination(item, v)
	case schema.SubProjection:
		return d.setProjection(item, v)
	case schema.SubVacuum:
		return d.setVacuum(item, v)
	}
	return unsupported(subsystem, item)
}

// Call implements instrument.Driver.
func (d *Driver) Call(_ context.Context, subsystem, item string, args wire.Args) (wire.Value, error) {
	switch subsystem {
	case schema.SubStage:
		return d.callStage(item, args)
	case schema.SubIllumination, schema.SubProjection:
		if item == "normalize" {
			// Lens normalization is instantaneous here.
			return wire.None(), nil
		}
	case schema.SubVacuum:
		if item == "run_buffer_cycle" {
			return wire.None(), nil
		}
	case schema.SubAcquisition:
		return d.callAcquisition(item, args)
	case schema.SubTemperature:
		return d.callTemperature(item, args)
	case schema.SubAutoloader:
		return d.callAutoloader(item, args)
	}
	return wire.Value{}, unsupported(subsystem, item)
}

func unsupported(subsystem, item string) *instrument.Fault {
	return instrument.NewFault(instrument.ReasonGeneral, subsystem, item, "not supported by simulator")
}

// configuration

func (d *Driver) getConfiguration(item string) (wire.Value, error) {
	switch item {
	case "family":
		return wire.Enum(int64(d.family)), nil
	case "instrument_mode":
		return wire.Enum(int64(d.mode)), nil
	}
	return wire.Value{}, unsupported(schema.SubConfiguration, item)
}

// stage

func (d *Driver) getStage(item string) (wire.Value, error) {
	switch item {
	case "status":
		return wire.Enum(int64(d.stageStatus)), nil
	case "holder":
		return wire.Enum(int64(d.holder)), nil
	case "position":
		return wire.Vec3(d.x, d.y, d.z), nil
	case "tilt":
		return wire.Vec2(d.a, d.b), nil
	case "limits":
		return wire.Rec(
			wire.RecordField{Name: "x", Value: axisLimit(limitXY)},
			wire.RecordField{Name: "y", Value: axisLimit(limitXY)},
			wire.RecordField{Name: "z", Value: axisLimit(limitZ)},
			wire.RecordField{Name: "a", Value: axisLimit(limitAlpha)},
			wire.RecordField{Name: "b", Value: axisLimit(limitBeta)},
		), nil
	}
	return wire.Value{}, unsupported(schema.SubStage, item)
}

func axisLimit(l float64) wire.Value {
	return wire.Rec(
		wire.RecordField{Name: "min", Value: wire.Float(-l)},
		wire.RecordField{Name: "max", Value: wire.Float(l)},
	)
}

func (d *Driver) callStage(item string, args wire.Args) (wire.Value, error) {
	switch item {
	case "go_to", "move_to":
		return wire.None(), d.moveStage(item, args)
	}
	return wire.Value{}, unsupported(schema.SubStage, item)
}

func (d *Driver) moveStage(item string, args wire.Args) error {
	if d.stageStatus != microscope.StageReady {
		return instrument.NewFault(instrument.ReasonBusy, schema.SubStage, item,
			"stage is %s", d.stageStatus)
	}

	relative := false
	if v, ok := args.Get("relative"); ok {
		relative = v.Bool
	}
	if v, ok := args.Get("speed"); ok {
		if v.Num < 0 || v.Num > 1 {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubStage, item,
				"speed %g outside [0, 1]", v.Num)
		}
	}

	target := func(name string, cur float64) float64 {
		v, ok := args.Get(name)
		if !ok {
			return cur
		}
		if relative {
			return cur + v.Num
		}
		return v.Num
	}

	x := target("x", d.x)
	y := target("y", d.y)
	z := target("z", d.z)
	a := target("a", d.a)
	b := target("b", d.b)

	for _, ax := range []struct {
		name  string
		value float64
		limit float64
	}{
		{"x", x, limitXY},
		{"y", y, limitXY},
		{"z", z, limitZ},
		{"a", a, limitAlpha},
		{"b", b, limitBeta},
	} {
		if ax.value < -ax.limit || ax.value > ax.limit {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubStage, item,
				"axis %s target %g outside ±%g", ax.name, ax.value, ax.limit)
		}
	}

	if _, ok := args.Get("b"); ok && d.holder != microscope.HolderDoubleTilt {
		return instrument.NewFault(instrument.ReasonGeneral, schema.SubStage, item,
			"holder %s has no b axis", d.holder)
	}

	d.x, d.y, d.z, d.a, d.b = x, y, z, a, b
	return nil
}

// gun

func (d *Driver) getGun(item string) (wire.Value, error) {
	switch item {
	case "ht_state":
		return wire.Enum(int64(d.htState)), nil
	case "voltage":
		if d.htState != microscope.HTOn {
			return wire.Float(0), nil
		}
		return wire.Float(d.voltage), nil
	case "voltage_offset":
		return wire.Float(d.voltageOffset), nil
	case "shift":
		return wire.Vec2(d.gunShift[0], d.gunShift[1]), nil
	case "tilt":
		return wire.Vec2(d.gunTilt[0], d.gunTilt[1]), nil
	}
	return wire.Value{}, unsupported(schema.SubGun, item)
}

func (d *Driver) setGun(item string, v wire.Value) error {
	switch item {
	case "ht_state":
		state := microscope.HTState(v.Int)
		switch state {
		case microscope.HTOff, microscope.HTOn, microscope.HTDisabled:
			d.htState = state
			return nil
		}
		return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubGun, item,
			"unknown ht state %d", v.Int)
	case "voltage_offset":
		d.voltageOffset = v.Num
		return nil
	case "shift":
		d.gunShift = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	case "tilt":
		d.gunTilt = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	}
	return unsupported(schema.SubGun, item)
}

// illumination

func (d *Driver) getIllumination(item string) (wire.Value, error) {
	switch item {
	case "mode":
		return wire.Enum(int64(d.illMode)), nil
	case "spot_size":
		return wire.Int(d.spotSize), nil
	case "intensity":
		return wire.Float(d.intensity), nil
	case "beam_shift":
		return wire.Vec2(d.beamShift[0], d.beamShift[1]), nil
	case "beam_tilt":
		return wire.Vec2(d.beamTilt[0], d.beamTilt[1]), nil
	}
	return wire.Value{}, unsupported(schema.SubIllumination, item)
}

func (d *Driver) setIllumination(item string, v wire.Value) error {
	switch item {
	case "mode":
		mode := microscope.IlluminationMode(v.Int)
		if mode != microscope.Nanoprobe && mode != microscope.Microprobe {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubIllumination, item,
				"unknown probe mode %d", v.Int)
		}
		d.illMode = mode
		return nil
	case "spot_size":
		if v.Int < 1 || v.Int > 11 {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubIllumination, item,
				"spot size %d outside [1, 11]", v.Int)
		}
		d.spotSize = v.Int
		return nil
	case "intensity":
		if v.Num < 0 || v.Num > 1 {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubIllumination, item,
				"intensity %g outside [0, 1]", v.Num)
		}
		d.intensity = v.Num
		return nil
	case "beam_shift":
		d.beamShift = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	case "beam_tilt":
		d.beamTilt = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	}
	return unsupported(schema.SubIllumination, item)
}

// projection

func (d *Driver) getProjection(item string) (wire.Value, error) {
	switch item {
	case "mode":
		return wire.Enum(int64(d.projMode)), nil
	case "magnification":
		return wire.Float(d.magnification), nil
	case "camera_length":
		return wire.Float(d.cameraLength), nil
	case "focus":
		return wire.Float(d.focus), nil
	case "defocus":
		return wire.Float(d.defocus), nil
	case "image_shift":
		return wire.Vec2(d.imageShift[0], d.imageShift[1]), nil
	case "image_beam_shift":
		return wire.Vec2(d.imageBeamShift[0], d.imageBeamShift[1]), nil
	}
	return wire.Value{}, unsupported(schema.SubProjection, item)
}

func (d *Driver) setProjection(item string, v wire.Value) error {
	switch item {
	case "mode":
		mode := microscope.ProjectionMode(v.Int)
		if mode != microscope.ProjImaging && mode != microscope.ProjDiffraction {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubProjection, item,
				"unknown projection mode %d", v.Int)
		}
		d.projMode = mode
		return nil
	case "focus":
		if v.Num < -1 || v.Num > 1 {
			return instrument.NewFault(instrument.ReasonOutOfRange, schema.SubProjection, item,
				"focus %g outside [-1, 1]", v.Num)
		}
		d.focus = v.Num
		return nil
	case "defocus":
		d.defocus = v.Num
		return nil
	case "image_shift":
		d.imageShift = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	case "image_beam_shift":
		d.imageBeamShift = [2]float64{v.Tuple[0], v.Tuple[1]}
		return nil
	}
	return unsupported(schema.SubProjection, item)
}

// vacuum

func (d *Driver) getVacuum(item string) (wire.Value, error) {
	switch item {
	case "status":
		return wire.Enum(int64(d.vacuumStatus)), nil
	case "column_valves_open":
		return wire.Bool(d.valvesOpen), nil
	case "gauges":
		return wire.Rec(
			wire.RecordField{Name: "IGP1", Value: wire.Float(2.1e-7)},
			wire.RecordField{Name: "IGP2", Value: wire.Float(3.4e-7)},
			wire.RecordField{Name: "P4", Value: wire.Float(1.2e-2)},
		), nil
	}
	return wire.Value{}, unsupported(schema.SubVacuum, item)
}

func (d *Driver) setVacuum(item string, v wire.Value) error {
	switch item {
	case "column_valves_open":
		if v.Bool && d.vacuumStatus != microscope.VacuumReady {
			return instrument.NewFault(instrument.ReasonGeneral, schema.SubVacuum, item,
				"column vacuum is %s, cannot open valves", d.vacuumStatus)
		}
		d.valvesOpen = v.Bool
		return nil
	}
	return unsupported(schema.SubVacuum, item)
}

// acquisition

func (d *Driver) getAcquisition(item string) (wire.Value, error) {
	switch item {
	case "cameras":
		var fields []wire.RecordField
		for _, c := range d.cameras {
			fields = append(fields, wire.RecordField{
				Name: c.name,
				Value: wire.Rec(
					wire.RecordField{Name: "width", Value: wire.Int(int64(c.width))},
					wire.RecordField{Name: "height", Value: wire.Int(int64(c.height))},
				),
			})
		}
		return wire.Rec(fields...), nil
	case "stem_detectors":
		var fields []wire.RecordField
		for _, name := range d.detectors {
			fields = append(fields, wire.RecordField{Name: name, Value: wire.Bool(true)})
		}
		return wire.Rec(fields...), nil
	case "screen_current":
		return wire.Float(d.screenCurrent), nil
	}
	return wire.Value{}, unsupported(schema.SubAcquisition, item)
}

func (d *Driver) callAcquisition(item string, args wire.Args) (wire.Value, error) {
	switch item {
	case "acquire_tem_image":
		name, _ := args.Get("camera")
		cam := d.cameraByName(name.Str)
		if cam == nil {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAcquisition, item, "no camera named %q", name.Str)
		}
		if d.mode != microscope.ModeTEM {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAcquisition, item, "instrument is in %s mode", d.mode)
		}
		return d.acquire(cam.name, cam.width, cam.height, args, "exposure_s", 1.0)

	case "acquire_stem_image":
		name, _ := args.Get("detector")
		if !d.hasDetector(name.Str) {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAcquisition, item, "no detector named %q", name.Str)
		}
		return d.acquire(name.Str, 2048, 2048, args, "dwell_time_s", 1e-6)
	}
	return wire.Value{}, unsupported(schema.SubAcquisition, item)
}

func (d *Driver) cameraByName(name string) *camera {
	for i := range d.cameras {
		if d.cameras[i].name == name {
			return &d.cameras[i]
		}
	}
	return nil
}

func (d *Driver) hasDetector(name string) bool {
	for _, det := range d.detectors {
		if det == name {
			return true
		}
	}
	return false
}

func (d *Driver) acquire(source string, fullW, fullH uint32, args wire.Args, timeKey string, timeDefault float64) (wire.Value, error) {
	w, h := fullW, fullH
	if v, ok := args.Get("size"); ok {
		switch microscope.AcqImageSize(v.Int) {
		case microscope.AcqSizeFull:
		case microscope.AcqSizeHalf:
			w, h = w/2, h/2
		case microscope.AcqSizeQuarter:
			w, h = w/4, h/4
		default:
			return wire.Value{}, instrument.NewFault(instrument.ReasonOutOfRange,
				schema.SubAcquisition, "size", "unknown readout size %d", v.Int)
		}
	}

	binning := int64(1)
	if v, ok := args.Get("binning"); ok {
		switch v.Int {
		case 1, 2, 4:
			binning = v.Int
		default:
			return wire.Value{}, instrument.NewFault(instrument.ReasonOutOfRange,
				schema.SubAcquisition, "binning", "binning %d not in {1, 2, 4}", v.Int)
		}
	}
	w = w / uint32(binning)
	h = h / uint32(binning)

	timeVal := timeDefault
	if v, ok := args.Get("exposure"); ok {
		timeVal = v.Num
	} else if v, ok := args.Get("dwell_time"); ok {
		timeVal = v.Num
	}
	if timeVal <= 0 {
		return wire.Value{}, instrument.NewFault(instrument.ReasonOutOfRange,
			schema.SubAcquisition, "exposure", "%s must be positive, got %g", timeKey, timeVal)
	}

	img := d.renderImage(w, h, source, timeKey, timeVal, binning)
	return wire.ImageValue(img), nil
}

// temperature

func (d *Driver) getTemperature(item string) (wire.Value, error) {
	switch item {
	case "is_filling":
		return wire.Bool(d.isFilling), nil
	case "remaining_time":
		return wire.Int(d.remainingTime), nil
	}
	return wire.Value{}, unsupported(schema.SubTemperature, item)
}

func (d *Driver) callTemperature(item string, args wire.Args) (wire.Value, error) {
	switch item {
	case "dewar_level":
		name, _ := args.Get("dewar")
		level, ok := d.dewarLevels[name.Str]
		if !ok {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubTemperature, item, "no dewar named %q", name.Str)
		}
		return wire.Float(level), nil
	case "force_refill":
		if d.isFilling {
			return wire.Value{}, instrument.NewFault(instrument.ReasonBusy,
				schema.SubTemperature, item, "refill already in progress")
		}
		d.isFilling = true
		d.remainingTime = 600
		return wire.None(), nil
	}
	return wire.Value{}, unsupported(schema.SubTemperature, item)
}

// autoloader

func (d *Driver) getAutoloader(item string) (wire.Value, error) {
	switch item {
	case "number_of_slots":
		return wire.Int(int64(len(d.slots))), nil
	}
	return wire.Value{}, unsupported(schema.SubAutoloader, item)
}

func (d *Driver) callAutoloader(item string, args wire.Args) (wire.Value, error) {
	switch item {
	case "load_cartridge":
		slotArg, _ := args.Get("slot")
		n := slotArg.Int
		if n < 1 || n > int64(len(d.slots)) {
			return wire.Value{}, instrument.NewFault(instrument.ReasonOutOfRange,
				schema.SubAutoloader, item, "slot %d outside [1, %d]", n, len(d.slots))
		}
		if !d.slots[n-1].occupied {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAutoloader, item, "slot %d is empty", n)
		}
		if d.loadedSlot != 0 {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAutoloader, item, "cartridge from slot %d is on the stage", d.loadedSlot)
		}
		d.loadedSlot = int(n)
		return wire.None(), nil

	case "unload_cartridge":
		if d.loadedSlot == 0 {
			return wire.Value{}, instrument.NewFault(instrument.ReasonGeneral,
				schema.SubAutoloader, item, "no cartridge on the stage")
		}
		d.loadedSlot = 0
		return wire.None(), nil

	case "slot_status":
		slotArg, _ := args.Get("slot")
		n := slotArg.Int
		if n < 1 || n > int64(len(d.slots)) {
			return wire.Value{}, instrument.NewFault(instrument.ReasonOutOfRange,
				schema.SubAutoloader, item, "slot %d outside [1, %d]", n, len(d.slots))
		}
		return wire.Str(d.slotStatus(int(n))), nil
	}
	return wire.Value{}, unsupported(schema.SubAutoloader, item)
}

func (d *Driver) slotStatus(n int) string {
	if d.loadedSlot == n {
		return "loaded"
	}
	if d.slots[n-1].occupied {
		return "occupied"
	}
	return "empty"
}

// Compile-time interface satisfaction check.
var _ instrument.Driver = (*Driver)(nil)
