package wire

import (
	"errors"
	"fmt"

	"github.com/temscript/temscript-go/pkg/schema"
)

// Codec errors.
var (
	// ErrMalformedValue indicates a value does not match the declared
	// capability type (wrong tag, wrong tuple arity, missing record
	// field, undeclared argument).
	ErrMalformedValue = errors.New("malformed value")
)

// Value is the tagged union over all instrument value types. The tag
// must match the capability catalog's declared type for the item; the
// codec rejects mismatches instead of coercing.
type Value struct {
	Type schema.ValueType

	Num   float64   // TypeFloat64
	Int   int64     // TypeInt64, TypeEnum
	Str   string    // TypeString
	Bool  bool      // TypeBool
	Tuple []float64 // TypeVec2, TypeVec3
	Rec   Record    // TypeRecord
	Img   *Image    // TypeImage
}

// Record is an ordered set of named typed values. Order is preserved
// across encoding; unknown fields are ignored on decode when the
// catalog declares the record's shape.
type Record []RecordField

// RecordField is one named value inside a Record.
type RecordField struct {
	Name  string
	Value Value
}

// Get returns the named field's value.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Value constructors.

// None returns the empty value (method without return).
func None() Value { return Value{Type: schema.TypeNone} }

// Float returns a float64 value.
func Float(v float64) Value { return Value{Type: schema.TypeFloat64, Num: v} }

// Int returns an integer value.
func Int(v int64) Value { return Value{Type: schema.TypeInt64, Int: v} }

// Enum returns an enumeration ordinal value.
func Enum(v int64) Value { return Value{Type: schema.TypeEnum, Int: v} }

// Str returns a string value.
func Str(v string) Value { return Value{Type: schema.TypeString, Str: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{Type: schema.TypeBool, Bool: v} }

// Vec2 returns a 2-tuple value.
func Vec2(x, y float64) Value {
	return Value{Type: schema.TypeVec2, Tuple: []float64{x, y}}
}

// Vec3 returns a 3-tuple value.
func Vec3(x, y, z float64) Value {
	return Value{Type: schema.TypeVec3, Tuple: []float64{x, y, z}}
}

// Rec returns a record value with the given fields, in order.
func Rec(fields ...RecordField) Value {
	return Value{Type: schema.TypeRecord, Rec: Record(fields)}
}

// ImageValue returns an image value. Images travel as a binary segment
// outside the CBOR envelope; see EncodeImageResponse.
func ImageValue(img *Image) Value {
	return Value{Type: schema.TypeImage, Img: img}
}

// IsNone reports whether the value is empty.
func (v Value) IsNone() bool { return v.Type == schema.TypeNone }

// Equal reports deep equality of two values, including the tag.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case schema.TypeNone:
		return true
	case schema.TypeFloat64:
		return v.Num == o.Num
	case schema.TypeInt64, schema.TypeEnum:
		return v.Int == o.Int
	case schema.TypeString:
		return v.Str == o.Str
	case schema.TypeBool:
		return v.Bool == o.Bool
	case schema.TypeVec2, schema.TypeVec3:
		if len(v.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range v.Tuple {
			if v.Tuple[i] != o.Tuple[i] {
				return false
			}
		}
		return true
	case schema.TypeRecord:
		if len(v.Rec) != len(o.Rec) {
			return false
		}
		for i := range v.Rec {
			if v.Rec[i].Name != o.Rec[i].Name || !v.Rec[i].Value.Equal(o.Rec[i].Value) {
				return false
			}
		}
		return true
	case schema.TypeImage:
		return v.Img.Equal(o.Img)
	default:
		return false
	}
}

// String renders the value for logs and the interactive shell.
func (v Value) String() string {
	switch v.Type {
	case schema.TypeNone:
		return "<none>"
	case schema.TypeFloat64:
		return fmt.Sprintf("%g", v.Num)
	case schema.TypeInt64, schema.TypeEnum:
		return fmt.Sprintf("%d", v.Int)
	case schema.TypeString:
		return v.Str
	case schema.TypeBool:
		return fmt.Sprintf("%t", v.Bool)
	case schema.TypeVec2, schema.TypeVec3:
		return fmt.Sprintf("%v", v.Tuple)
	case schema.TypeRecord:
		s := "{"
		for i, f := range v.Rec {
			if i > 0 {
				s += ", "
			}
			s += f.Name + ": " + f.Value.String()
		}
		return s + "}"
	case schema.TypeImage:
		if v.Img == nil {
			return "<image nil>"
		}
		return fmt.Sprintf("<image %dx%d %d-bit>", v.Img.Header.Width, v.Img.Header.Height, v.Img.Header.BitDepth)
	default:
		return "<invalid>"
	}
}

// EncodeValue converts a Value to its wire-native form for embedding in
// a CBOR message payload. Image values are rejected: pixel buffers go
// through EncodeImageResponse.
func EncodeValue(v Value) (any, error) {
	switch v.Type {
	case schema.TypeNone:
		return nil, nil
	case schema.TypeFloat64:
		return v.Num, nil
	case schema.TypeInt64, schema.TypeEnum:
		return v.Int, nil
	case schema.TypeString:
		return v.Str, nil
	case schema.TypeBool:
		return v.Bool, nil
	case schema.TypeVec2, schema.TypeVec3:
		if len(v.Tuple) != v.Type.Arity() {
			return nil, fmt.Errorf("%w: tuple arity %d, want %d", ErrMalformedValue, len(v.Tuple), v.Type.Arity())
		}
		out := make([]any, len(v.Tuple))
		for i, f := range v.Tuple {
			out[i] = f
		}
		return out, nil
	case schema.TypeRecord:
		out := make([]any, len(v.Rec))
		for i, f := range v.Rec {
			enc, err := EncodeValue(f.Value)
			if err != nil {
				return nil, err
			}
			out[i] = []any{f.Name, enc}
		}
		return out, nil
	case schema.TypeImage:
		return nil, fmt.Errorf("%w: image values cannot be embedded in the envelope", ErrMalformedValue)
	default:
		return nil, fmt.Errorf("%w: unknown value type %d", ErrMalformedValue, v.Type)
	}
}

// DecodeValue converts a raw CBOR-decoded payload back into a Value of
// the expected type. fields constrains record shapes; nil leaves the
// record open and infers field types.
func DecodeValue(raw any, vt schema.ValueType, fields []schema.Field) (Value, error) {
	switch vt {
	case schema.TypeNone:
		if raw != nil {
			return Value{}, fmt.Errorf("%w: unexpected payload for none type", ErrMalformedValue)
		}
		return None(), nil

	case schema.TypeFloat64:
		f, ok := raw.(float64)
		if !ok {
			return Value{}, typeMismatch(vt, raw)
		}
		return Float(f), nil

	case schema.TypeInt64, schema.TypeEnum:
		i, ok := asInt64(raw)
		if !ok {
			return Value{}, typeMismatch(vt, raw)
		}
		v := Value{Type: vt, Int: i}
		return v, nil

	case schema.TypeString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, typeMismatch(vt, raw)
		}
		return Str(s), nil

	case schema.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, typeMismatch(vt, raw)
		}
		return Bool(b), nil

	case schema.TypeVec2, schema.TypeVec3:
		tuple, err := asTuple(raw)
		if err != nil {
			return Value{}, err
		}
		if len(tuple) != vt.Arity() {
			return Value{}, fmt.Errorf("%w: tuple arity %d, want %d", ErrMalformedValue, len(tuple), vt.Arity())
		}
		return Value{Type: vt, Tuple: tuple}, nil

	case schema.TypeRecord:
		return decodeRecord(raw, fields)

	case schema.TypeImage:
		return Value{}, fmt.Errorf("%w: image values are decoded from the binary segment", ErrMalformedValue)

	default:
		return Value{}, fmt.Errorf("%w: unknown value type %d", ErrMalformedValue, vt)
	}
}

func typeMismatch(want schema.ValueType, raw any) error {
	return fmt.Errorf("%w: got %T, want %s", ErrMalformedValue, raw, want)
}

// asInt64 converts CBOR integer forms. CBOR decodes non-negative
// integers as uint64 and negative ones as int64.
func asInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asTuple(raw any) ([]float64, error) {
	switch arr := raw.(type) {
	case []float64:
		out := make([]float64, len(arr))
		copy(out, arr)
		return out, nil
	case []any:
		out := make([]float64, len(arr))
		for i, e := range arr {
			f, ok := e.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: tuple element %d is %T, want float64", ErrMalformedValue, i, e)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %T, want tuple", ErrMalformedValue, raw)
	}
}

// decodeRecord decodes the ordered field-pair encoding. When the
// catalog declares fields, undeclared pairs are skipped (forward
// compatibility) and missing required fields fail.
func decodeRecord(raw any, fields []schema.Field) (Value, error) {
	pairs, ok := raw.([]any)
	if !ok {
		return Value{}, fmt.Errorf("%w: got %T, want record", ErrMalformedValue, raw)
	}

	var rec Record
	seen := make(map[string]bool)
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return Value{}, fmt.Errorf("%w: record entry is not a name/value pair", ErrMalformedValue)
		}
		name, ok := pair[0].(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: record field name is %T", ErrMalformedValue, pair[0])
		}

		var fv Value
		var err error
		if fields != nil {
			decl := fieldByName(fields, name)
			if decl == nil {
				continue // unknown field, ignore
			}
			fv, err = DecodeValue(pair[1], decl.Type, nil)
		} else {
			fv, err = inferValue(pair[1])
		}
		if err != nil {
			return Value{}, fmt.Errorf("record field %q: %w", name, err)
		}
		rec = append(rec, RecordField{Name: name, Value: fv})
		seen[name] = true
	}

	for _, f := range fields {
		if f.Required && !seen[f.Name] {
			return Value{}, fmt.Errorf("%w: missing required record field %q", ErrMalformedValue, f.Name)
		}
	}

	return Value{Type: schema.TypeRecord, Rec: rec}, nil
}

func fieldByName(fields []schema.Field, name string) *schema.Field {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// inferValue decodes a raw payload without a declared type. Used for
// open records such as vacuum gauge tables.
func inferValue(raw any) (Value, error) {
	switch x := raw.(type) {
	case float64:
		return Float(x), nil
	case uint64:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case string:
		return Str(x), nil
	case bool:
		return Bool(x), nil
	case []any:
		// Nested record (pairs) or float tuple.
		if isPairList(x) {
			return decodeRecord(x, nil)
		}
		tuple, err := asTuple(x)
		if err != nil {
			return Value{}, err
		}
		switch len(tuple) {
		case 2:
			return Value{Type: schema.TypeVec2, Tuple: tuple}, nil
		case 3:
			return Value{Type: schema.TypeVec3, Tuple: tuple}, nil
		default:
			return Value{}, fmt.Errorf("%w: tuple of length %d is not a known type", ErrMalformedValue, len(tuple))
		}
	default:
		return Value{}, fmt.Errorf("%w: cannot infer type of %T", ErrMalformedValue, raw)
	}
}

func isPairList(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	for _, e := range arr {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return false
		}
		if _, ok := pair[0].(string); !ok {
			return false
		}
	}
	return true
}

// Arg is one named method argument.
type Arg struct {
	Name  string
	Value Value
}

// Args is an ordered method argument list.
type Args []Arg

// Get returns the named argument's value.
func (a Args) Get(name string) (Value, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return Value{}, false
}

// EncodeArgs converts an argument list to its wire-native form: an
// ordered array of name/value pairs.
func EncodeArgs(args Args) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		enc, err := EncodeValue(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		out[i] = []any{arg.Name, enc}
	}
	return out, nil
}

// DecodeArgs decodes a CALL payload against the method's declared
// parameters. Undeclared arguments and missing required arguments fail
// with ErrMalformedValue.
func DecodeArgs(raw any, params []schema.Param) (Args, error) {
	if raw == nil {
		for _, p := range params {
			if p.Required {
				return nil, fmt.Errorf("%w: missing required argument %q", ErrMalformedValue, p.Name)
			}
		}
		return nil, nil
	}

	pairs, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T, want argument list", ErrMalformedValue, raw)
	}

	var args Args
	seen := make(map[string]bool)
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: argument entry is not a name/value pair", ErrMalformedValue)
		}
		name, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: argument name is %T", ErrMalformedValue, pair[0])
		}
		decl := paramByName(params, name)
		if decl == nil {
			return nil, fmt.Errorf("%w: undeclared argument %q", ErrMalformedValue, name)
		}
		v, err := DecodeValue(pair[1], decl.Type, nil)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args = append(args, Arg{Name: name, Value: v})
		seen[name] = true
	}

	for _, p := range params {
		if p.Required && !seen[p.Name] {
			return nil, fmt.Errorf("%w: missing required argument %q", ErrMalformedValue, p.Name)
		}
	}

	return args, nil
}

func paramByName(params []schema.Param, name string) *schema.Param {
	for i := range params {
		if params[i].Name == name {
			return &params[i]
		}
	}
	return nil
}
