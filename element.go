package ply

import (
	"encoding/binary"
	"fmt"
)

// Column is the in-memory backing for one scalar property across every
// row of an element. It can be owned (a dense buffer this package
// allocated and controls) or memory-mapped (a strided view over bytes
// owned by the container's mapping, released when the container is
// closed). Both cases are served by the same decode/encode path since
// decodeScalar/encodeScalar already take an explicit byte order: there
// is no separate "byte-swap" code path, a mismatched order is simply a
// different order parameter at access time.
type Column struct {
	typ      ScalarType
	order    binary.ByteOrder
	data     []byte // count * stride bytes
	stride   int    // byte distance between consecutive rows; == ByteWidth(typ) for owned
	count    int
	writable bool
	mmapped  bool
}

// newOwnedColumn allocates a dense owned column of n rows of type t.
func newOwnedColumn(t ScalarType, n int, order binary.ByteOrder) *Column {
	w := ByteWidth(t)
	return &Column{
		typ:      t,
		order:    order,
		data:     make([]byte, n*w),
		stride:   w,
		count:    n,
		writable: true,
	}
}

// newStridedColumn wraps a strided, non-owning view over data at the
// given stride. data may be a plain heap buffer the binary codec just
// copied into (the bulk fixed-layout read path over a non-seekable
// source) or a genuine memory-mapped file region; mmapped distinguishes
// the two for IsMemoryMapped. order is the byte order declared by the
// file the bytes came from, which may differ from the host's native
// order; callers pay no extra cost for this since decode already takes
// order as a parameter.
func newStridedColumn(t ScalarType, data []byte, stride, n int, order binary.ByteOrder, writable, mmapped bool) *Column {
	return &Column{typ: t, order: order, data: data, stride: stride, count: n, writable: writable, mmapped: mmapped}
}

// Type returns the column's declared scalar type.
func (c *Column) Type() ScalarType { return c.typ }

// Len returns the number of rows in the column.
func (c *Column) Len() int { return c.count }

// IsMemoryMapped reports whether the column is backed by a memory map
// rather than an owned buffer.
func (c *Column) IsMemoryMapped() bool { return c.mmapped }

// At returns the numeric value of row i as a float64. All eight scalar
// types fit exactly in a float64 mantissa, so this representation never
// loses precision relative to the column's declared type.
func (c *Column) At(i int) float64 {
	off := i * c.stride
	return decodeScalar(c.data[off:off+ByteWidth(c.typ)], c.typ, c.order)
}

// Set writes v into row i, casting to the column's declared type.
// Returns ErrReadOnly if the column is not writable, and ErrLossyCast if
// the type is an integer type and v is not an integer in its range;
// values stored into a float32 column are rounded without error.
func (c *Column) Set(i int, v float64) error {
	if !c.writable {
		return ErrReadOnly
	}
	off := i * c.stride
	return encodeScalar(c.data[off:off+ByteWidth(c.typ)], c.typ, c.order, v)
}

// Float64Slice copies the column out as a dense []float64, in row order.
func (c *Column) Float64Slice() []float64 {
	out := make([]float64, c.count)
	for i := range out {
		out[i] = c.At(i)
	}
	return out
}

// ListColumn is the in-memory backing for a list property: one
// variable-length []float64 row per element row. Per §4.5, ragged
// columns are always owned; there is no memory-mapped representation
// here even when the element's fixed-layout sibling columns are mapped.
type ListColumn struct {
	valueType ScalarType
	rows      [][]float64
}

// newListColumn allocates a ListColumn with n empty rows.
func newListColumn(valueType ScalarType, n int) *ListColumn {
	return &ListColumn{valueType: valueType, rows: make([][]float64, n)}
}

// Type returns the column's declared value type (the length type is a
// serialization-only concern, absent from the in-memory representation).
func (c *ListColumn) Type() ScalarType { return c.valueType }

// Len returns the number of rows.
func (c *ListColumn) Len() int { return len(c.rows) }

// Row returns row i's values. The returned slice is shared with the
// column's storage; mutate via SetRow rather than in place if the
// column may be read concurrently.
func (c *ListColumn) Row(i int) []float64 { return c.rows[i] }

// SetRow replaces row i's values.
func (c *ListColumn) SetRow(i int, values []float64) { c.rows[i] = values }

// RowLengths returns the length of every row, in order.
func (c *ListColumn) RowLengths() []int {
	out := make([]int, len(c.rows))
	for i, r := range c.rows {
		out[i] = len(r)
	}
	return out
}

// ConstantRowLength returns (k, true) if every row has the same length
// k, or (0, false) if the column is empty or rows differ in length. This
// backs the convenience "dense 2-D block" conversion noted in §9.
func (c *ListColumn) ConstantRowLength() (int, bool) {
	if len(c.rows) == 0 {
		return 0, false
	}
	k := len(c.rows[0])
	for _, r := range c.rows[1:] {
		if len(r) != k {
			return 0, false
		}
	}
	return k, true
}

// Dense2D returns a dense [][]float64 block if ConstantRowLength holds,
// or an error otherwise.
func (c *ListColumn) Dense2D() ([][]float64, error) {
	if _, ok := c.ConstantRowLength(); !ok {
		return nil, fmt.Errorf("ply: list column has no constant row length")
	}
	return c.rows, nil
}

// Element is an ordered, named table of rows sharing one property schema.
type Element struct {
	Name       string
	Properties []Property
	Comments   []string

	scalars map[string]*Column
	lists   map[string]*ListColumn
	count   int
}

// NewElement constructs an empty element with n rows from the given
// property schema, allocating owned zero-valued columns for every
// property. order governs how owned scalar columns are decoded/encoded;
// pass binary.LittleEndian or binary.BigEndian to match the container's
// intended write format, or either if the element will only ever be
// used in ASCII mode.
func NewElement(name string, n int, props []Property, order binary.ByteOrder) (*Element, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProperty, p.Name)
		}
		seen[p.Name] = true
	}

	e := &Element{
		Name:       name,
		Properties: props,
		scalars:    make(map[string]*Column),
		lists:      make(map[string]*ListColumn),
		count:      n,
	}
	for _, p := range props {
		if p.IsList() {
			e.lists[p.Name] = newListColumn(p.ValueType, n)
		} else {
			e.scalars[p.Name] = newOwnedColumn(p.ValueType, n, order)
		}
	}
	return e, nil
}

// Len returns the element's row count.
func (e *Element) Len() int { return e.count }

// IsFixedLayout reports whether every property of e is a scalar
// property, i.e. every row has identical on-disk width.
func (e *Element) IsFixedLayout() bool {
	for _, p := range e.Properties {
		if p.IsList() {
			return false
		}
	}
	return true
}

// RowSize returns the fixed per-row byte width. It panics if the
// element is not fixed-layout; callers must check IsFixedLayout first.
func (e *Element) RowSize() int {
	if !e.IsFixedLayout() {
		panic("ply: RowSize called on a non-fixed-layout element")
	}
	size := 0
	for _, p := range e.Properties {
		size += p.FixedWidth()
	}
	return size
}

// Contains reports whether e has a property (and backing column) named name.
func (e *Element) Contains(name string) bool {
	_, okS := e.scalars[name]
	_, okL := e.lists[name]
	return okS || okL
}

// Column returns the scalar column named name.
func (e *Element) Column(name string) (*Column, error) {
	c, ok := e.scalars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return c, nil
}

// ListColumnByName returns the list column named name.
func (e *Element) ListColumnByName(name string) (*ListColumn, error) {
	c, ok := e.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return c, nil
}

// SetColumn installs an owned scalar column, replacing whatever is
// currently bound to that property name. Its length must equal the
// element's row count.
func (e *Element) SetColumn(name string, c *Column) error {
	if c.Len() != e.count {
		return fmt.Errorf("ply: column %q has %d rows, element has %d", name, c.Len(), e.count)
	}
	e.scalars[name] = c
	return nil
}

// SetListColumn installs a list column, replacing whatever is currently
// bound to that property name. Its length must equal the element's row count.
func (e *Element) SetListColumn(name string, c *ListColumn) error {
	if c.Len() != e.count {
		return fmt.Errorf("ply: list column %q has %d rows, element has %d", name, c.Len(), e.count)
	}
	e.lists[name] = c
	return nil
}

// Row is a read-only, name-addressable view across all of an element's
// columns for one row index.
type Row struct {
	e *Element
	i int
}

// Row returns a view over row i. Panics if i is out of range, matching
// the teacher's convention of panicking on programmer-error index bugs
// rather than threading a bounds error through every accessor.
func (e *Element) Row(i int) Row {
	if i < 0 || i >= e.count {
		panic(fmt.Sprintf("ply: row index %d out of range [0,%d)", i, e.count))
	}
	return Row{e: e, i: i}
}

// Scalar returns the numeric value of the named scalar property at this row.
func (r Row) Scalar(name string) (float64, error) {
	c, err := r.e.Column(name)
	if err != nil {
		return 0, err
	}
	return c.At(r.i), nil
}

// List returns the values of the named list property at this row.
func (r Row) List(name string) ([]float64, error) {
	c, err := r.e.ListColumnByName(name)
	if err != nil {
		return nil, err
	}
	return c.Row(r.i), nil
}

// checkSanity validates that the element's property names are unique.
// A list property whose values are themselves lists needs no check: the
// grammar forbids it and Property has no recursive Kind to express it.
func (e *Element) checkSanity() error {
	seen := make(map[string]bool, len(e.Properties))
	for _, p := range e.Properties {
		if seen[p.Name] {
			return fmt.Errorf("%w: %q in element %q", ErrDuplicateProperty, p.Name, e.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// HeaderText renders the element's canonical header block: the
// "element name count" line, its comments, then its property lines.
func (e *Element) HeaderText() []string {
	lines := make([]string, 0, 2+len(e.Comments)+len(e.Properties))
	lines = append(lines, fmt.Sprintf("element %s %d", e.Name, e.count))
	for _, c := range e.Comments {
		lines = append(lines, "comment "+c)
	}
	for _, p := range e.Properties {
		lines = append(lines, p.HeaderLine())
	}
	return lines
}

// String renders the element's canonical header block, matching
// HeaderText but joined with newlines for direct printing.
func (e *Element) String() string {
	lines := e.HeaderText()
	s := ""
	for i, l := range lines {
		if i > 0 {
			s += "\n"
		}
		s += l
	}
	return s
}

// Clone returns a deep copy of e: new column storage, independent of
// e's own buffers. Memory-mapped columns are copied into owned buffers.
func (e *Element) Clone() *Element {
	clone := &Element{
		Name:       e.Name,
		Properties: append([]Property(nil), e.Properties...),
		Comments:   append([]string(nil), e.Comments...),
		scalars:    make(map[string]*Column, len(e.scalars)),
		lists:      make(map[string]*ListColumn, len(e.lists)),
		count:      e.count,
	}
	for name, c := range e.scalars {
		nc := newOwnedColumn(c.typ, c.count, c.order)
		for i := 0; i < c.count; i++ {
			_ = nc.Set(i, c.At(i))
		}
		clone.scalars[name] = nc
	}
	for name, c := range e.lists {
		nc := newListColumn(c.valueType, c.Len())
		for i, row := range c.rows {
			nc.rows[i] = append([]float64(nil), row...)
		}
		clone.lists[name] = nc
	}
	return clone
}
