package ply

import (
	"fmt"
	"strings"
)

// PropertyKind distinguishes a scalar column from a list column. The set
// is closed: PLY has no other property shapes, and list-of-list is
// disallowed by the grammar.
type PropertyKind uint8

const (
	ScalarProperty PropertyKind = iota
	ListProperty
)

// Property describes one column of an element: its name, its kind, and
// the scalar type(s) that govern its on-disk representation. For a
// ScalarProperty, ValueType is the field's type and LengthType is unused.
// For a ListProperty, LengthType governs the per-row count prefix and
// ValueType governs each of the n values that follow it.
type Property struct {
	Name       string
	Kind       PropertyKind
	ValueType  ScalarType
	LengthType ScalarType // meaningful only when Kind == ListProperty
}

// NewScalarProperty builds a scalar property descriptor, validating the name.
func NewScalarProperty(name string, valueType ScalarType) (Property, error) {
	if err := validateName(name); err != nil {
		return Property{}, err
	}
	return Property{Name: name, Kind: ScalarProperty, ValueType: valueType}, nil
}

// NewListProperty builds a list property descriptor, validating the name.
func NewListProperty(name string, lengthType, valueType ScalarType) (Property, error) {
	if err := validateName(name); err != nil {
		return Property{}, err
	}
	return Property{Name: name, Kind: ListProperty, LengthType: lengthType, ValueType: valueType}, nil
}

// IsList reports whether p is a list property.
func (p Property) IsList() bool { return p.Kind == ListProperty }

// FixedWidth returns the per-row byte contribution of a scalar property.
// It panics if p is a list property; callers must branch on IsList first,
// since a list property's per-row size depends on the row's length.
func (p Property) FixedWidth() int {
	if p.IsList() {
		panic("ply: FixedWidth called on a list property")
	}
	return ByteWidth(p.ValueType)
}

// RowWidth returns the per-row byte contribution of p given the list
// length n for that row (n is ignored for scalar properties).
func (p Property) RowWidth(n int) int {
	if p.IsList() {
		return ByteWidth(p.LengthType) + n*ByteWidth(p.ValueType)
	}
	return ByteWidth(p.ValueType)
}

// HeaderLine renders the canonical "property ..." header line for p,
// using explicit width-bearing type spellings.
func (p Property) HeaderLine() string {
	if p.IsList() {
		return fmt.Sprintf("property list %s %s %s", CanonicalName(p.LengthType), CanonicalName(p.ValueType), p.Name)
	}
	return fmt.Sprintf("property %s %s", CanonicalName(p.ValueType), p.Name)
}

// ParsePropertyLine parses the token stream following the "property"
// keyword (already consumed by the caller) into a Property.
func ParsePropertyLine(fields []string) (Property, error) {
	if len(fields) == 0 {
		return Property{}, fmt.Errorf("%w: empty property line", ErrUnknownKeyword)
	}
	if fields[0] == "list" {
		if len(fields) != 4 {
			return Property{}, fmt.Errorf("%w: property list requires length-type, value-type, name, got %q",
				ErrUnknownKeyword, strings.Join(fields, " "))
		}
		lengthType, err := ParseTypeName(fields[1])
		if err != nil {
			return Property{}, err
		}
		valueType, err := ParseTypeName(fields[2])
		if err != nil {
			return Property{}, err
		}
		return NewListProperty(fields[3], lengthType, valueType)
	}
	if len(fields) != 2 {
		return Property{}, fmt.Errorf("%w: property requires type and name, got %q",
			ErrUnknownKeyword, strings.Join(fields, " "))
	}
	valueType, err := ParseTypeName(fields[0])
	if err != nil {
		return Property{}, err
	}
	return NewScalarProperty(fields[1], valueType)
}
