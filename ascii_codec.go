package ply

import (
	"bufio"
	"strings"
)

// readASCIIElement decodes count rows of element e from r in ASCII
// mode. Tokens are whitespace-separated; rows are one line each (blank
// lines inside a body are not tolerated, since they would shift row
// counts). Populates e's columns in place.
func readASCIIElement(r *bufio.Reader, e *Element) error {
	for i := 0; i < e.count; i++ {
		line, err := readHeaderLine(r)
		if err != nil {
			return bodyErr(e.Name, i, "", ErrUnexpectedEOF, "unexpected end of input reading row %d", i)
		}
		fields := strings.Fields(line)
		pos := 0
		for _, prop := range e.Properties {
			if prop.IsList() {
				if pos >= len(fields) {
					return bodyErr(e.Name, i, prop.Name, ErrShortRow, "missing list length for %q", prop.Name)
				}
				n, err := ParseASCII(fields[pos], prop.LengthType)
				if err != nil {
					return bodyErr(e.Name, i, prop.Name, ErrListLength, "bad list length %q", fields[pos])
				}
				pos++
				k := int(n)
				if k < 0 || pos+k > len(fields) {
					return bodyErr(e.Name, i, prop.Name, ErrShortRow, "row ended before %d list values were read", k)
				}
				values := make([]float64, k)
				for j := 0; j < k; j++ {
					v, err := ParseASCII(fields[pos+j], prop.ValueType)
					if err != nil {
						return bodyErr(e.Name, i, prop.Name, ErrInvalidLiteral, "bad value %q", fields[pos+j])
					}
					values[j] = v
				}
				pos += k
				e.lists[prop.Name].SetRow(i, values)
			} else {
				if pos >= len(fields) {
					return bodyErr(e.Name, i, prop.Name, ErrShortRow, "row ended before property %q was read", prop.Name)
				}
				v, err := ParseASCII(fields[pos], prop.ValueType)
				if err != nil {
					return bodyErr(e.Name, i, prop.Name, ErrInvalidLiteral, "bad value %q", fields[pos])
				}
				if err := e.scalars[prop.Name].Set(i, v); err != nil {
					return bodyErr(e.Name, i, prop.Name, err, "cannot store value")
				}
				pos++
			}
		}
		if pos != len(fields) {
			return bodyErr(e.Name, i, "", ErrLongRow, "row has %d extra trailing tokens", len(fields)-pos)
		}
	}
	return nil
}

// writeASCIIElement emits e's rows in ASCII mode: single-space field
// separators, LF row terminators, list properties as "k v0 v1 ... v_{k-1}".
func writeASCIIElement(w *bufio.Writer, e *Element) error {
	for i := 0; i < e.count; i++ {
		var sb strings.Builder
		for j, prop := range e.Properties {
			if j > 0 {
				sb.WriteByte(' ')
			}
			if prop.IsList() {
				lc, err := e.ListColumnByName(prop.Name)
				if err != nil {
					return bodyErr(e.Name, i, prop.Name, err, "cannot write row")
				}
				row := lc.Row(i)
				sb.WriteString(FormatASCII(float64(len(row)), prop.LengthType))
				for _, v := range row {
					sb.WriteByte(' ')
					sb.WriteString(FormatASCII(v, prop.ValueType))
				}
			} else {
				col, err := e.Column(prop.Name)
				if err != nil {
					return bodyErr(e.Name, i, prop.Name, err, "cannot write row")
				}
				sb.WriteString(FormatASCII(col.At(i), prop.ValueType))
			}
		}
		sb.WriteByte('\n')
		if _, err := w.WriteString(sb.String()); err != nil {
			return err
		}
	}
	return nil
}
