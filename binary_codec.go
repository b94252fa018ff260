package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// KnownListLen is a caller-supplied promise that every row of a named
// list property in a named element has exactly the given length. When
// every list property of an element is covered, the binary codec may
// treat the element as fixed-layout and memory-map it; the codec still
// validates every length prefix against the promise before trusting it.
type KnownListLen map[string]map[string]int

// readBinaryElement decodes count rows of element e from r, in the
// given byte order, using the bulk path for fixed-layout elements and
// the ragged path otherwise. known covers e if every one of its list
// properties has an entry in known[e.Name].
func readBinaryElement(r *bufio.Reader, e *Element, order binary.ByteOrder, known KnownListLen) error {
	if e.IsFixedLayout() {
		return readBulkElement(r, e, order)
	}
	if coversElement(e, known) {
		return readKnownListElement(r, e, order, known[e.Name])
	}
	return readRaggedElement(r, e, order)
}

func coversElement(e *Element, known KnownListLen) bool {
	perProp, ok := known[e.Name]
	if !ok {
		return false
	}
	for _, p := range e.Properties {
		if p.IsList() {
			if _, ok := perProp[p.Name]; !ok {
				return false
			}
		}
	}
	return true
}

// readBulkElement reads a fixed-layout element as one contiguous
// byte_span = count * row_size read, then slices it per-property into
// owned strided columns. Callers that want a memory-mapped view bind
// directly against a pre-mapped buffer instead (see container.go's
// bindElementFromMappedBytes); this function is the copying fallback
// used for plain io.Reader sources.
func readBulkElement(r *bufio.Reader, e *Element, order binary.ByteOrder) error {
	rowSize := e.RowSize()
	span := e.count * rowSize
	buf := make([]byte, span)
	if _, err := io.ReadFull(r, buf); err != nil {
		return bodyErr(e.Name, -1, "", ErrUnexpectedEOF, "short read of fixed-layout element body: %v", err)
	}
	bindStridedColumns(e, buf, rowSize, order, true, false)
	return nil
}

// bindStridedColumns installs one *Column per scalar property of e,
// each a strided, non-owning view into buf at its property's byte
// offset within the row. buf's ownership (heap-allocated copy vs. a
// memory-mapped region) is the caller's concern via mmapped, which only
// controls what IsMemoryMapped reports.
func bindStridedColumns(e *Element, buf []byte, rowSize int, order binary.ByteOrder, writable, mmapped bool) {
	offset := 0
	for _, p := range e.Properties {
		w := ByteWidth(p.ValueType)
		col := newStridedColumn(p.ValueType, buf[offset:], rowSize, e.count, order, writable, mmapped)
		e.scalars[p.Name] = col
		offset += w
	}
}

// readRaggedElement reads count rows of a ragged element one row, one
// property at a time: a fixed-width field for each scalar property, a
// length prefix plus n value fields for each list property.
func readRaggedElement(r *bufio.Reader, e *Element, order binary.ByteOrder) error {
	for i := 0; i < e.count; i++ {
		for _, p := range e.Properties {
			if p.IsList() {
				n, err := readScalarField(r, p.LengthType, order)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading list length: %v", err)
				}
				k := int(n)
				if k < 0 {
					return bodyErr(e.Name, i, p.Name, ErrListLength, "negative list length %d", k)
				}
				values := make([]float64, k)
				for j := 0; j < k; j++ {
					v, err := readScalarField(r, p.ValueType, order)
					if err != nil {
						return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading list value %d: %v", j, err)
					}
					values[j] = v
				}
				e.lists[p.Name].SetRow(i, values)
			} else {
				v, err := readScalarField(r, p.ValueType, order)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading scalar field: %v", err)
				}
				if err := e.scalars[p.Name].Set(i, v); err != nil {
					return bodyErr(e.Name, i, p.Name, err, "cannot store value")
				}
			}
		}
	}
	return nil
}

// readKnownListElement validates the known-list-length promise for
// every row of e, then decodes it exactly like a ragged element (the
// fixed per-row size it would otherwise give us is only exploitable via
// a real memory map, available through ReadFile's mmap path; over a
// plain io.Reader we still read sequentially).
func readKnownListElement(r *bufio.Reader, e *Element, order binary.ByteOrder, perProp map[string]int) error {
	for i := 0; i < e.count; i++ {
		for _, p := range e.Properties {
			if p.IsList() {
				n, err := readScalarField(r, p.LengthType, order)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading list length: %v", err)
				}
				k := int(n)
				want := perProp[p.Name]
				if k != want {
					return bodyErr(e.Name, i, p.Name, ErrKnownListLength, "row declares length %d, known_list_len promised %d", k, want)
				}
				values := make([]float64, k)
				for j := 0; j < k; j++ {
					v, err := readScalarField(r, p.ValueType, order)
					if err != nil {
						return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading list value %d: %v", j, err)
					}
					values[j] = v
				}
				e.lists[p.Name].SetRow(i, values)
			} else {
				v, err := readScalarField(r, p.ValueType, order)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, ErrUnexpectedEOF, "reading scalar field: %v", err)
				}
				if err := e.scalars[p.Name].Set(i, v); err != nil {
					return bodyErr(e.Name, i, p.Name, err, "cannot store value")
				}
			}
		}
	}
	return nil
}

func readScalarField(r *bufio.Reader, t ScalarType, order binary.ByteOrder) (float64, error) {
	w := ByteWidth(t)
	buf := make([]byte, w)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return decodeScalar(buf, t, order), nil
}

// writeBinaryElement is the mirror of readBinaryElement: every row,
// every property in schema order, casting the in-memory value into the
// property's declared type.
func writeBinaryElement(w *bufio.Writer, e *Element, order binary.ByteOrder) error {
	for i := 0; i < e.count; i++ {
		for _, p := range e.Properties {
			if p.IsList() {
				lc, err := e.ListColumnByName(p.Name)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, err, "cannot write row")
				}
				row := lc.Row(i)
				if err := writeScalarField(w, p.LengthType, order, float64(len(row))); err != nil {
					return bodyErr(e.Name, i, p.Name, err, "writing list length")
				}
				for j, v := range row {
					if err := writeScalarField(w, p.ValueType, order, v); err != nil {
						return bodyErr(e.Name, i, p.Name, err, "writing list value %d", j)
					}
				}
			} else {
				col, err := e.Column(p.Name)
				if err != nil {
					return bodyErr(e.Name, i, p.Name, err, "cannot write row")
				}
				if err := writeScalarField(w, p.ValueType, order, col.At(i)); err != nil {
					return bodyErr(e.Name, i, p.Name, err, "writing scalar field")
				}
			}
		}
	}
	return nil
}

func writeScalarField(w *bufio.Writer, t ScalarType, order binary.ByteOrder, v float64) error {
	buf := make([]byte, ByteWidth(t))
	if err := encodeScalar(buf, t, order, v); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

// knownListRowSize computes the promoted fixed per-row size of an
// element whose list properties are all covered by a known_list_len
// promise, for use by the mmap promotion path.
func knownListRowSize(e *Element, perProp map[string]int) (int, error) {
	size := 0
	for _, p := range e.Properties {
		if p.IsList() {
			k, ok := perProp[p.Name]
			if !ok {
				return 0, fmt.Errorf("%w: %q has no known_list_len entry", ErrKnownListLength, p.Name)
			}
			size += ByteWidth(p.LengthType) + k*ByteWidth(p.ValueType)
		} else {
			size += ByteWidth(p.ValueType)
		}
	}
	return size, nil
}
