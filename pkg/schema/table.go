package schema

// Subsystem names. Stable wire identifiers shared between client and
// server builds.
const (
	SubConfiguration = "configuration"
	SubStage         = "stage"
	SubGun           = "gun"
	SubIllumination  = "illumination"
	SubProjection    = "projection"
	SubVacuum        = "vacuum"
	SubAcquisition   = "acquisition"
	SubTemperature   = "temperature"
	SubAutoloader    = "autoloader"
)

// capabilityTable returns the pinned capability catalog. The table is
// rebuilt per call so NewRegistry can take ownership of the slice.
func capabilityTable() []Descriptor {
	return []Descriptor{
		// configuration: identity items, queryable before the instrument
		// finishes initializing.
		{Subsystem: SubConfiguration, Item: "family", Kind: KindReadProp, Type: TypeEnum, PreInit: true},
		{Subsystem: SubConfiguration, Item: "instrument_mode", Kind: KindReadProp, Type: TypeEnum, PreInit: true},

		// stage
		{Subsystem: SubStage, Item: "status", Kind: KindReadProp, Type: TypeEnum},
		{Subsystem: SubStage, Item: "holder", Kind: KindReadProp, Type: TypeEnum},
		{Subsystem: SubStage, Item: "position", Kind: KindReadProp, Type: TypeVec3},
		{Subsystem: SubStage, Item: "tilt", Kind: KindReadProp, Type: TypeVec2},
		{Subsystem: SubStage, Item: "limits", Kind: KindReadProp, Type: TypeRecord},
		{Subsystem: SubStage, Item: "go_to", Kind: KindMethod, Type: TypeNone, Params: []Param{
			{Name: "x", Type: TypeFloat64},
			{Name: "y", Type: TypeFloat64},
			{Name: "z", Type: TypeFloat64},
			{Name: "a", Type: TypeFloat64},
			{Name: "b", Type: TypeFloat64},
			{Name: "speed", Type: TypeFloat64},
			{Name: "relative", Type: TypeBool},
		}},
		{Subsystem: SubStage, Item: "move_to", Kind: KindMethod, Type: TypeNone, Params: []Param{
			{Name: "x", Type: TypeFloat64},
			{Name: "y", Type: TypeFloat64},
			{Name: "z", Type: TypeFloat64},
			{Name: "a", Type: TypeFloat64},
			{Name: "b", Type: TypeFloat64},
		}},

		// gun
		{Subsystem: SubGun, Item: "ht_state", Kind: KindReadWriteProp, Type: TypeEnum},
		{Subsystem: SubGun, Item: "voltage", Kind: KindReadProp, Type: TypeFloat64},
		{Subsystem: SubGun, Item: "voltage_offset", Kind: KindReadWriteProp, Type: TypeFloat64},
		{Subsystem: SubGun, Item: "shift", Kind: KindReadWriteProp, Type: TypeVec2},
		{Subsystem: SubGun, Item: "tilt", Kind: KindReadWriteProp, Type: TypeVec2},

		// illumination
		{Subsystem: SubIllumination, Item: "mode", Kind: KindReadWriteProp, Type: TypeEnum},
		{Subsystem: SubIllumination, Item: "spot_size", Kind: KindReadWriteProp, Type: TypeInt64},
		{Subsystem: SubIllumination, Item: "intensity", Kind: KindReadWriteProp, Type: TypeFloat64},
		{Subsystem: SubIllumination, Item: "beam_shift", Kind: KindReadWriteProp, Type: TypeVec2},
		{Subsystem: SubIllumination, Item: "beam_tilt", Kind: KindReadWriteProp, Type: TypeVec2},
		{Subsystem: SubIllumination, Item: "normalize", Kind: KindMethod, Type: TypeNone},

		// projection
		{Subsystem: SubProjection, Item: "mode", Kind: KindReadWriteProp, Type: TypeEnum},
		{Subsystem: SubProjection, Item: "magnification", Kind: KindReadProp, Type: TypeFloat64},
		{Subsystem: SubProjection, Item: "camera_length", Kind: KindReadProp, Type: TypeFloat64},
		{Subsystem: SubProjection, Item: "focus", Kind: KindReadWriteProp, Type: TypeFloat64},
		{Subsystem: SubProjection, Item: "defocus", Kind: KindReadWriteProp, Type: TypeFloat64},
		{Subsystem: SubProjection, Item: "image_shift", Kind: KindReadWriteProp, Type: TypeVec2},
		{Subsystem: SubProjection, Item: "image_beam_shift", Kind: KindReadWriteProp, Type: TypeVec2},
		{Subsystem: SubProjection, Item: "normalize", Kind: KindMethod, Type: TypeNone, Params: []Param{
			{Name: "lenses", Type: TypeString},
		}},

		// vacuum
		{Subsystem: SubVacuum, Item: "status", Kind: KindReadProp, Type: TypeEnum},
		{Subsystem: SubVacuum, Item: "column_valves_open", Kind: KindReadWriteProp, Type: TypeBool},
		{Subsystem: SubVacuum, Item: "gauges", Kind: KindReadProp, Type: TypeRecord},
		{Subsystem: SubVacuum, Item: "run_buffer_cycle", Kind: KindMethod, Type: TypeNone},

		// acquisition
		{Subsystem: SubAcquisition, Item: "cameras", Kind: KindReadProp, Type: TypeRecord},
		{Subsystem: SubAcquisition, Item: "stem_detectors", Kind: KindReadProp, Type: TypeRecord},
		{Subsystem: SubAcquisition, Item: "screen_current", Kind: KindReadProp, Type: TypeFloat64},
		{Subsystem: SubAcquisition, Item: "acquire_tem_image", Kind: KindMethod, Type: TypeImage, Params: []Param{
			{Name: "camera", Type: TypeString, Required: true},
			{Name: "size", Type: TypeEnum},
			{Name: "exposure", Type: TypeFloat64},
			{Name: "binning", Type: TypeInt64},
		}},
		{Subsystem: SubAcquisition, Item: "acquire_stem_image", Kind: KindMethod, Type: TypeImage, Params: []Param{
			{Name: "detector", Type: TypeString, Required: true},
			{Name: "size", Type: TypeEnum},
			{Name: "dwell_time", Type: TypeFloat64},
			{Name: "binning", Type: TypeInt64},
		}},

		// temperature
		{Subsystem: SubTemperature, Item: "is_filling", Kind: KindReadProp, Type: TypeBool},
		{Subsystem: SubTemperature, Item: "remaining_time", Kind: KindReadProp, Type: TypeInt64},
		{Subsystem: SubTemperature, Item: "dewar_level", Kind: KindMethod, Type: TypeFloat64, Params: []Param{
			{Name: "dewar", Type: TypeString, Required: true},
		}},
		{Subsystem: SubTemperature, Item: "force_refill", Kind: KindMethod, Type: TypeNone},

		// autoloader
		{Subsystem: SubAutoloader, Item: "number_of_slots", Kind: KindReadProp, Type: TypeInt64},
		{Subsystem: SubAutoloader, Item: "load_cartridge", Kind: KindMethod, Type: TypeNone, Params: []Param{
			{Name: "slot", Type: TypeInt64, Required: true},
		}},
		{Subsystem: SubAutoloader, Item: "unload_cartridge", Kind: KindMethod, Type: TypeNone},
		{Subsystem: SubAutoloader, Item: "slot_status", Kind: KindMethod, Type: TypeString, Params: []Param{
			{Name: "slot", Type: TypeInt64, Required: true},
		}},
	}
}
