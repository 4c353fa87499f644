package microscope

// Enumeration ordinals travel on the wire as plain integers; both sides
// share the values below. They follow the vendor scripting constants,
// which is why some are zero-based and some start at one.

// ProductFamily identifies the instrument family.
type ProductFamily int64

const (
	FamilyTecnai ProductFamily = 0
	FamilyTitan  ProductFamily = 1
	FamilyTalos  ProductFamily = 2
)

// String returns the family name.
func (f ProductFamily) String() string {
	switch f {
	case FamilyTecnai:
		return "Tecnai"
	case FamilyTitan:
		return "Titan"
	case FamilyTalos:
		return "Talos"
	default:
		return "Unknown"
	}
}

// InstrumentMode distinguishes TEM and STEM operation.
type InstrumentMode int64

const (
	ModeTEM  InstrumentMode = 0
	ModeSTEM InstrumentMode = 1
)

// String returns the mode name.
func (m InstrumentMode) String() string {
	switch m {
	case ModeTEM:
		return "TEM"
	case ModeSTEM:
		return "STEM"
	default:
		return "Unknown"
	}
}

// StageStatus reports the stage movement state.
type StageStatus int64

const (
	StageReady    StageStatus = 0
	StageDisabled StageStatus = 1
	StageNotReady StageStatus = 2
	StageGoing    StageStatus = 3
	StageMoving   StageStatus = 4
	StageWobbling StageStatus = 5
)

// String returns the stage status name.
func (s StageStatus) String() string {
	switch s {
	case StageReady:
		return "Ready"
	case StageDisabled:
		return "Disabled"
	case StageNotReady:
		return "NotReady"
	case StageGoing:
		return "Going"
	case StageMoving:
		return "Moving"
	case StageWobbling:
		return "Wobbling"
	default:
		return "Unknown"
	}
}

// HolderType identifies the mounted specimen holder.
type HolderType int64

const (
	HolderNone       HolderType = 0
	HolderSingleTilt HolderType = 1
	HolderDoubleTilt HolderType = 2
)

// String returns the holder name.
func (h HolderType) String() string {
	switch h {
	case HolderNone:
		return "None"
	case HolderSingleTilt:
		return "SingleTilt"
	case HolderDoubleTilt:
		return "DoubleTilt"
	default:
		return "Unknown"
	}
}

// HTState reports the high tension state.
type HTState int64

const (
	HTOff      HTState = 1
	HTOn       HTState = 2
	HTDisabled HTState = 3
)

// String returns the state name.
func (h HTState) String() string {
	switch h {
	case HTOff:
		return "Off"
	case HTOn:
		return "On"
	case HTDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// IlluminationMode distinguishes probe modes.
type IlluminationMode int64

const (
	Nanoprobe  IlluminationMode = 0
	Microprobe IlluminationMode = 1
)

// String returns the mode name.
func (m IlluminationMode) String() string {
	switch m {
	case Nanoprobe:
		return "Nanoprobe"
	case Microprobe:
		return "Microprobe"
	default:
		return "Unknown"
	}
}

// ProjectionMode distinguishes imaging and diffraction.
type ProjectionMode int64

const (
	ProjImaging     ProjectionMode = 1
	ProjDiffraction ProjectionMode = 2
)

// String returns the mode name.
func (m ProjectionMode) String() string {
	switch m {
	case ProjImaging:
		return "Imaging"
	case ProjDiffraction:
		return "Diffraction"
	default:
		return "Unknown"
	}
}

// VacuumStatus reports the vacuum system state.
type VacuumStatus int64

const (
	VacuumUnknown   VacuumStatus = 1
	VacuumOff       VacuumStatus = 2
	VacuumCameraAir VacuumStatus = 3
	VacuumBusy      VacuumStatus = 4
	VacuumReady     VacuumStatus = 5
	VacuumElsewhere VacuumStatus = 6
)

// String returns the vacuum status name.
func (v VacuumStatus) String() string {
	switch v {
	case VacuumUnknown:
		return "Unknown"
	case VacuumOff:
		return "Off"
	case VacuumCameraAir:
		return "CameraAir"
	case VacuumBusy:
		return "Busy"
	case VacuumReady:
		return "Ready"
	case VacuumElsewhere:
		return "Elsewhere"
	default:
		return "Invalid"
	}
}

// AcqImageSize selects the acquisition readout area.
type AcqImageSize int64

const (
	AcqSizeFull    AcqImageSize = 0
	AcqSizeHalf    AcqImageSize = 1
	AcqSizeQuarter AcqImageSize = 2
)

// String returns the size name.
func (s AcqImageSize) String() string {
	switch s {
	case AcqSizeFull:
		return "Full"
	case AcqSizeHalf:
		return "Half"
	case AcqSizeQuarter:
		return "Quarter"
	default:
		return "Unknown"
	}
}
