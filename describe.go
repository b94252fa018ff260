package ply

import (
	"encoding/binary"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// ColumnData is one named column supplied by the caller to DescribeElement:
// either Scalars (one value per row) or Lists (one variable-length row of
// values per row). Exactly one of the two must be set.
type ColumnData struct {
	Name    string
	Scalars []float64
	Lists   [][]float64

	// ValueType is the column's value type. When Lists is set, a zero
	// ValueType (Int8) is taken as unset and defaults to Int32. LengthType
	// is only consulted when Lists is set; it defaults to Uint8 when zero
	// (Int8), matching the original implementation's default list
	// length-type. Int8 therefore cannot be chosen for either type of a
	// list column.
	ValueType  ScalarType
	LengthType ScalarType
}

// DescribeElement builds an *Element from a caller-supplied set of named,
// typed columns, mirroring PlyElement.describe: this is the primary way
// to construct a container for writing without first reading one.
func DescribeElement(name string, columns []ColumnData) (*Element, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("ply: DescribeElement(%q) requires at least one column", name)
	}
	count := -1
	props := make([]Property, 0, len(columns))
	for _, cd := range columns {
		var n int
		if cd.Lists != nil {
			n = len(cd.Lists)
		} else {
			n = len(cd.Scalars)
		}
		if count == -1 {
			count = n
		} else if n != count {
			return nil, fmt.Errorf("ply: column %q has %d rows, element has %d", cd.Name, n, count)
		}
	}

	e, err := NewElement(name, count, nil, binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	e.scalars = make(map[string]*Column)
	e.lists = make(map[string]*ListColumn)

	for _, cd := range columns {
		if cd.Lists != nil {
			// Int8 is ScalarType's zero value, so it doubles as "caller
			// left this unset" here; matches the original's uchar/int
			// defaults for list length and value types.
			lengthType := cd.LengthType
			if lengthType == Int8 {
				lengthType = Uint8
			}
			valueType := cd.ValueType
			if valueType == Int8 {
				valueType = Int32
			}
			prop, err := NewListProperty(cd.Name, lengthType, valueType)
			if err != nil {
				return nil, err
			}
			props = append(props, prop)
			lc := newListColumn(valueType, count)
			for i, row := range cd.Lists {
				lc.SetRow(i, append([]float64(nil), row...))
			}
			e.lists[cd.Name] = lc
		} else {
			prop, err := NewScalarProperty(cd.Name, cd.ValueType)
			if err != nil {
				return nil, err
			}
			props = append(props, prop)
			col := newOwnedColumn(cd.ValueType, count, binary.LittleEndian)
			for i, v := range cd.Scalars {
				if err := col.Set(i, v); err != nil {
					return nil, fmt.Errorf("ply: column %q: %w", cd.Name, err)
				}
			}
			e.scalars[cd.Name] = col
		}
	}
	e.Properties = props
	if err := e.checkSanity(); err != nil {
		return nil, err
	}
	return e, nil
}

// propertyDescription and elementDescription are the wire shapes for
// DescribeJSON: schema metadata only, never row data, so a caller cannot
// mistake this for a geometry dump.
type propertyDescription struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ValueType  string `json:"value_type"`
	LengthType string `json:"length_type,omitempty"`
}

type elementDescription struct {
	Name       string                `json:"name"`
	Count      int                   `json:"count"`
	Comments   []string              `json:"comments,omitempty"`
	Properties []propertyDescription `json:"properties"`
}

type containerDescription struct {
	Format   string               `json:"format"`
	Comments []string             `json:"comments,omitempty"`
	ObjInfo  []string             `json:"obj_info,omitempty"`
	Elements []elementDescription `json:"elements"`
}

func describeProperty(p Property) propertyDescription {
	pd := propertyDescription{Name: p.Name, ValueType: CanonicalName(p.ValueType)}
	if p.IsList() {
		pd.Kind = "list"
		pd.LengthType = CanonicalName(p.LengthType)
	} else {
		pd.Kind = "scalar"
	}
	return pd
}

func describeElement(e *Element) elementDescription {
	ed := elementDescription{Name: e.Name, Count: e.count, Comments: e.Comments}
	for _, p := range e.Properties {
		ed.Properties = append(ed.Properties, describeProperty(p))
	}
	return ed
}

// DescribeJSON renders e's schema (name, count, properties, comments) —
// never row data — as JSON.
func (e *Element) DescribeJSON() ([]byte, error) {
	return gojson.Marshal(describeElement(e))
}

// DescribeJSON renders c's schema (format, comments, obj_info, and each
// element's schema) — never row data — as JSON.
func (c *Container) DescribeJSON() ([]byte, error) {
	cd := containerDescription{Format: c.Format.String(), Comments: c.Comments, ObjInfo: c.ObjInfo}
	for _, e := range c.Elements {
		cd.Elements = append(cd.Elements, describeElement(e))
	}
	return gojson.Marshal(cd)
}
