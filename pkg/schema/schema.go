package schema

import "errors"

// Catalog errors.
var (
	// ErrUnknownCapability indicates the (subsystem, item) pair is not in
	// the catalog.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrInvalidOperation indicates the requested operation does not match
	// the descriptor kind (e.g. SET on a read-only property).
	ErrInvalidOperation = errors.New("invalid operation for capability")
)

// Kind classifies a capability.
type Kind uint8

const (
	// KindReadProp is a read-only property.
	KindReadProp Kind = 1

	// KindReadWriteProp is a readable and writable property.
	KindReadWriteProp Kind = 2

	// KindMethod is an invocable method.
	KindMethod Kind = 3
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindReadProp:
		return "read-only"
	case KindReadWriteProp:
		return "read-write"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// ValueType tags the wire type of a property value, method argument or
// method return value.
type ValueType uint8

const (
	// TypeNone marks methods without a return value.
	TypeNone ValueType = 0

	// TypeFloat64 is a double-precision float.
	TypeFloat64 ValueType = 1

	// TypeInt64 is a signed integer.
	TypeInt64 ValueType = 2

	// TypeEnum is an enumeration ordinal (carried as int64).
	TypeEnum ValueType = 3

	// TypeString is a UTF-8 string.
	TypeString ValueType = 4

	// TypeBool is a boolean.
	TypeBool ValueType = 5

	// TypeVec2 is a fixed 2-tuple of float64.
	TypeVec2 ValueType = 6

	// TypeVec3 is a fixed 3-tuple of float64.
	TypeVec3 ValueType = 7

	// TypeRecord is an ordered set of named typed values.
	TypeRecord ValueType = 8

	// TypeImage is a binary pixel buffer with acquisition metadata.
	TypeImage ValueType = 9
)

// String returns the value type name.
func (t ValueType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeFloat64:
		return "float64"
	case TypeInt64:
		return "int64"
	case TypeEnum:
		return "enum"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeRecord:
		return "record"
	case TypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// Arity returns the tuple length for tuple types, 0 otherwise.
func (t ValueType) Arity() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	default:
		return 0
	}
}

// Param describes one method parameter.
type Param struct {
	Name     string
	Type     ValueType
	Required bool
}

// Field describes one declared record field. Records with no declared
// fields accept any field set (used for open-ended data like vacuum
// gauge tables).
type Field struct {
	Name     string
	Type     ValueType
	Required bool
}

// Descriptor is the static metadata record for one capability.
// Descriptors are immutable after catalog construction and shared
// read-only by all requests.
type Descriptor struct {
	// Subsystem is the owning subsystem name (e.g. "stage").
	Subsystem string

	// Item is the property or method name (e.g. "position").
	Item string

	// Kind classifies the capability.
	Kind Kind

	// Type is the property value type, or the method return type
	// (TypeNone for methods returning nothing).
	Type ValueType

	// Params lists method parameters in declaration order. Nil for
	// properties.
	Params []Param

	// Fields lists declared record fields for TypeRecord items. Nil
	// means the record shape is not constrained.
	Fields []Field

	// PreInit marks items that are safe to query before the instrument
	// is fully initialized.
	PreInit bool
}

// Readable reports whether the item can be read with GET.
func (d *Descriptor) Readable() bool {
	return d.Kind == KindReadProp || d.Kind == KindReadWriteProp
}

// Writable reports whether the item can be written with SET.
func (d *Descriptor) Writable() bool {
	return d.Kind == KindReadWriteProp
}

// IsMethod reports whether the item can be invoked with CALL.
func (d *Descriptor) IsMethod() bool {
	return d.Kind == KindMethod
}

// Param returns the named parameter, or nil.
func (d *Descriptor) Param(name string) *Param {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return &d.Params[i]
		}
	}
	return nil
}

// Field returns the named record field, or nil.
func (d *Descriptor) Field(name string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}
