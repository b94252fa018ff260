package ply

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// ScalarType is one of PLY's eight scalar types. Each has two spellings,
// sixteen in all (char/int8 and uchar/uint8 etc. are aliases of the same
// type). The set is closed and finite, so
// it is modeled as a tagged enum dispatched on at codec entry points
// rather than through an interface hierarchy.
type ScalarType uint8

const (
	Int8 ScalarType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

func (t ScalarType) String() string {
	name, ok := explicitNames[t]
	if !ok {
		return fmt.Sprintf("ScalarType(%d)", uint8(t))
	}
	return name
}

var explicitNames = map[ScalarType]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

var shortNames = map[ScalarType]string{
	Int8:    "char",
	Uint8:   "uchar",
	Int16:   "short",
	Uint16:  "ushort",
	Int32:   "int",
	Uint32:  "uint",
	Float32: "float",
	Float64: "double",
}

var nameToType = func() map[string]ScalarType {
	m := make(map[string]ScalarType, 16)
	for t, n := range explicitNames {
		m[n] = t
	}
	for t, n := range shortNames {
		m[n] = t
	}
	return m
}()

var byteWidths = map[ScalarType]int{
	Int8: 1, Uint8: 1,
	Int16: 2, Uint16: 2,
	Int32: 4, Uint32: 4,
	Float32: 4, Float64: 8,
}

// ParseTypeName maps either the short ("int") or explicit ("int32")
// spelling of a scalar type to its ScalarType. Matching is case-sensitive,
// matching the PLY header grammar.
func ParseTypeName(tok string) (ScalarType, error) {
	t, ok := nameToType[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeyword, tok)
	}
	return t, nil
}

// CanonicalName returns the explicit, width-bearing spelling used for
// header emission.
func CanonicalName(t ScalarType) string { return explicitNames[t] }

// ByteWidth returns the fixed on-disk width of t in bytes: 1, 2, 4, or 8.
func ByteWidth(t ScalarType) int { return byteWidths[t] }

// IsFloat reports whether t is an IEEE-754 floating-point type.
func IsFloat(t ScalarType) bool { return t == Float32 || t == Float64 }

// IsSigned reports whether t is a signed integer type. Floats are not
// considered signed or unsigned for the purposes of this predicate.
func IsSigned(t ScalarType) bool { return t == Int8 || t == Int16 || t == Int32 }

// ParseASCII parses one whitespace-delimited token into the numeric
// value of an ASCII-mode field declared as type t. Integer literals are
// decimal and may be signed; overflow of the declared width is a parse
// error. Floats use Go's standard round-trippable decimal conversion.
func ParseASCII(tok string, t ScalarType) (float64, error) {
	if IsFloat(t) {
		bits := 64
		if t == Float32 {
			bits = 32
		}
		v, err := strconv.ParseFloat(tok, bits)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidLiteral, tok, t)
		}
		return v, nil
	}

	width := byteWidths[t]
	bitSize := width * 8
	if IsSigned(t) {
		v, err := strconv.ParseInt(tok, 10, bitSize)
		if err != nil {
			return 0, fmt.Errorf("%w: %q does not fit %s", ErrIntegerOverflow, tok, t)
		}
		return float64(v), nil
	}
	v, err := strconv.ParseUint(tok, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q does not fit %s", ErrIntegerOverflow, tok, t)
	}
	return float64(v), nil
}

// FormatASCII renders v as the ASCII-mode token for declared type t.
func FormatASCII(v float64, t ScalarType) string {
	switch {
	case t == Float32:
		return strconv.FormatFloat(v, 'g', -1, 32)
	case t == Float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case IsSigned(t):
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatUint(uint64(v), 10)
	}
}

// decodeScalar reads one value of type t from the start of b, honoring
// byte order for multi-byte types. b must have length >= ByteWidth(t).
func decodeScalar(b []byte, t ScalarType, order binary.ByteOrder) float64 {
	switch t {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(order.Uint16(b)))
	case Uint16:
		return float64(order.Uint16(b))
	case Int32:
		return float64(int32(order.Uint32(b)))
	case Uint32:
		return float64(order.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	default:
		panic("ply: unreachable scalar type")
	}
}

// encodeScalar writes v into the start of b as type t, honoring byte
// order. b must have length >= ByteWidth(t). Returns ErrLossyCast if t
// is an integer type and v is not an integer within its range; for
// Float32, v is rounded to the nearest float32 without error.
func encodeScalar(b []byte, t ScalarType, order binary.ByteOrder, v float64) error {
	switch t {
	case Int8:
		if v != math.Trunc(v) || v < math.MinInt8 || v > math.MaxInt8 {
			return fmt.Errorf("%w: %v does not fit int8", ErrLossyCast, v)
		}
		b[0] = byte(int8(v))
	case Uint8:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint8 {
			return fmt.Errorf("%w: %v does not fit uint8", ErrLossyCast, v)
		}
		b[0] = byte(uint8(v))
	case Int16:
		if v != math.Trunc(v) || v < math.MinInt16 || v > math.MaxInt16 {
			return fmt.Errorf("%w: %v does not fit int16", ErrLossyCast, v)
		}
		order.PutUint16(b, uint16(int16(v)))
	case Uint16:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint16 {
			return fmt.Errorf("%w: %v does not fit uint16", ErrLossyCast, v)
		}
		order.PutUint16(b, uint16(v))
	case Int32:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: %v does not fit int32", ErrLossyCast, v)
		}
		order.PutUint32(b, uint32(int32(v)))
	case Uint32:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint32 {
			return fmt.Errorf("%w: %v does not fit uint32", ErrLossyCast, v)
		}
		order.PutUint32(b, uint32(v))
	case Float32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		order.PutUint64(b, math.Float64bits(v))
	default:
		panic("ply: unreachable scalar type")
	}
	return nil
}
