package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format is the ternary on-disk encoding declared by the "format" line.
type Format uint8

const (
	ASCII Format = iota
	BinaryLittleEndian
	BinaryBigEndian
)

func (f Format) String() string {
	switch f {
	case ASCII:
		return "ascii"
	case BinaryLittleEndian:
		return "binary_little_endian"
	case BinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

var formatNames = map[string]Format{
	"ascii":                ASCII,
	"binary_little_endian": BinaryLittleEndian,
	"binary_big_endian":    BinaryBigEndian,
}

// ByteOrder returns the binary.ByteOrder implied by f. For ASCII it
// returns binary.LittleEndian as an arbitrary, unused default.
func (f Format) ByteOrder() binary.ByteOrder {
	if f == BinaryBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// headerInfo is the fully-parsed, not-yet-materialized header: enough to
// drive the body codecs without having read a single row yet.
type headerInfo struct {
	format   Format
	comments []string
	objInfo  []string
	elements []*Element
}

// headerParser mirrors the keyword-dispatch state machine of the
// reference header grammar: at each line, a set of keywords is allowed
// next, and each keyword's handler both records state and narrows (or
// widens) that set for the following line.
type headerParser struct {
	info        headerInfo
	allowed     map[string]bool
	line        int
	currentElem *Element
	sawFormat   bool
}

func newHeaderParser() *headerParser {
	return &headerParser{
		allowed: map[string]bool{"format": true, "comment": true, "obj_info": true},
		line:    1,
	}
}

// parseHeader reads header lines from r (which must be positioned right
// after the initial "ply" magic line) until and including "end_header".
// It tolerates LF, CRLF, or CR line endings and skips blank lines.
func parseHeader(r *bufio.Reader) (*headerInfo, error) {
	p := newHeaderParser()
	for {
		raw, err := readHeaderLine(r)
		if err != nil {
			if err == io.EOF {
				return nil, headerErr(p.line, ErrUnexpectedEOF, "early end-of-file")
			}
			return nil, err
		}
		p.line++
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if err := p.consume(line); err != nil {
			return nil, err
		}
		if p.done() {
			break
		}
	}
	if len(p.info.elements) == 0 {
		return nil, headerErr(p.line, ErrEmptyElementList, "file declares no elements")
	}
	return &p.info, nil
}

func (p *headerParser) done() bool { return len(p.allowed) == 0 && p.sawFormat }

// readHeaderLine reads one line, tolerant of LF, CRLF, or bare CR
// terminators, and returns it without its terminator.
func readHeaderLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
			next, err := r.Peek(1)
			if err == nil && len(next) == 1 && next[0] == '\n' {
				_, _ = r.ReadByte()
			}
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}

func (p *headerParser) consume(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return headerErr(p.line, ErrUnknownKeyword, "empty header line")
	}
	keyword := fields[0]
	rest := fields[1:]

	if !p.allowed[keyword] {
		return headerErr(p.line, ErrUnexpectedKeyword, "expected one of {%s}, got %q", joinKeys(p.allowed), keyword)
	}

	switch keyword {
	case "format":
		return p.parseFormat(rest)
	case "comment":
		p.parseComment(strings.TrimPrefix(line, "comment "))
		return nil
	case "obj_info":
		p.parseObjInfo(strings.TrimPrefix(line, "obj_info "))
		return nil
	case "element":
		return p.parseElement(rest)
	case "property":
		return p.parseProperty(rest)
	case "end_header":
		if len(rest) != 0 {
			return headerErr(p.line, ErrUnexpectedKeyword, "unexpected data after 'end_header'")
		}
		p.allocateCurrentElementColumns()
		p.allowed = map[string]bool{}
		return nil
	default:
		return headerErr(p.line, ErrUnknownKeyword, "unknown header keyword %q", keyword)
	}
}

func (p *headerParser) parseFormat(fields []string) error {
	if len(fields) != 2 {
		return headerErr(p.line, ErrBadFormat, "expected \"format <fmt> 1.0\"")
	}
	f, ok := formatNames[fields[0]]
	if !ok {
		return headerErr(p.line, ErrBadFormat, "don't understand format %q", fields[0])
	}
	if fields[1] != "1.0" {
		return headerErr(p.line, ErrBadFormat, "expected version \"1.0\", got %q", fields[1])
	}
	p.info.format = f
	p.sawFormat = true
	p.allowed = map[string]bool{"element": true, "comment": true, "obj_info": true, "end_header": true}
	return nil
}

func (p *headerParser) parseComment(text string) {
	if p.currentElem != nil {
		p.currentElem.Comments = append(p.currentElem.Comments, text)
	} else {
		p.info.comments = append(p.info.comments, text)
	}
}

func (p *headerParser) parseObjInfo(text string) {
	p.info.objInfo = append(p.info.objInfo, text)
}

func (p *headerParser) parseElement(fields []string) error {
	if len(fields) != 2 {
		return headerErr(p.line, ErrUnknownKeyword, "expected \"element <name> <count>\"")
	}
	name := fields[0]
	if err := validateName(name); err != nil {
		return headerErr(p.line, ErrInvalidName, "invalid element name %q", name)
	}
	for _, e := range p.info.elements {
		if e.Name == name {
			return headerErr(p.line, ErrDuplicateElement, "duplicate element name %q", name)
		}
	}
	count, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return headerErr(p.line, ErrUnknownKeyword, "expected integer count, got %q", fields[1])
	}
	p.allocateCurrentElementColumns()
	elem := &Element{
		Name:    name,
		count:   int(count),
		scalars: make(map[string]*Column),
		lists:   make(map[string]*ListColumn),
	}
	p.info.elements = append(p.info.elements, elem)
	p.currentElem = elem
	p.allowed = map[string]bool{"element": true, "comment": true, "property": true, "end_header": true}
	return nil
}

// allocateCurrentElementColumns allocates owned columns for every
// property of the element the parser just finished reading, the same
// way NewElement does for a caller-built schema. parseProperty only
// appends to Properties as property lines are seen, so the column
// storage behind each name has to be built once the element's property
// list is complete: right before the next "element" line, or at
// "end_header" for the last element in the file.
func (p *headerParser) allocateCurrentElementColumns() {
	e := p.currentElem
	if e == nil {
		return
	}
	order := p.info.format.ByteOrder()
	for _, prop := range e.Properties {
		if prop.IsList() {
			e.lists[prop.Name] = newListColumn(prop.ValueType, e.count)
		} else {
			e.scalars[prop.Name] = newOwnedColumn(prop.ValueType, e.count, order)
		}
	}
}

func (p *headerParser) parseProperty(fields []string) error {
	prop, err := ParsePropertyLine(fields)
	if err != nil {
		return headerErr(p.line, err, "bad property line")
	}
	for _, existing := range p.currentElem.Properties {
		if existing.Name == prop.Name {
			return headerErr(p.line, ErrDuplicateProperty, "duplicate property name %q in element %q", prop.Name, p.currentElem.Name)
		}
	}
	p.currentElem.Properties = append(p.currentElem.Properties, prop)
	return nil
}

func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return strings.Join(keys, ", ")
}

// writeHeader emits the canonical header for info: "ply", "format",
// container comments, obj_info, then each element's block, then
// "end_header". Every line is LF-terminated regardless of how the
// source header that produced info was terminated.
func writeHeader(w io.Writer, info *headerInfo) error {
	bw := bufio.NewWriter(w)
	writeLine := func(s string) error {
		_, err := bw.WriteString(s + "\n")
		return err
	}

	if err := writeLine("ply"); err != nil {
		return err
	}
	if err := writeLine(fmt.Sprintf("format %s 1.0", info.format)); err != nil {
		return err
	}
	for _, c := range info.comments {
		if err := validateComment(c); err != nil {
			return err
		}
		if err := writeLine("comment " + c); err != nil {
			return err
		}
	}
	for _, o := range info.objInfo {
		if err := validateComment(o); err != nil {
			return err
		}
		if err := writeLine("obj_info " + o); err != nil {
			return err
		}
	}
	for _, e := range info.elements {
		if err := validateName(e.Name); err != nil {
			return err
		}
		for _, p := range e.Properties {
			if err := validateName(p.Name); err != nil {
				return err
			}
		}
		for _, c := range e.Comments {
			if err := validateComment(c); err != nil {
				return err
			}
		}
		for _, line := range e.HeaderText() {
			if err := writeLine(line); err != nil {
				return err
			}
		}
	}
	if err := writeLine("end_header"); err != nil {
		return err
	}
	return bw.Flush()
}
