package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/plygo/ply/internal/plylog"
)

// MemoryMapMode selects how the container tries to back fixed-layout
// element bodies during a file-backed read. It is a hint: the codec
// falls back to an owned copy whenever mapping is not applicable (the
// element is ragged and not promoted by a known_list_len, or the
// source is not a regular file).
type MemoryMapMode uint8

const (
	MemoryMapOff MemoryMapMode = iota
	MemoryMapReadOnly
	MemoryMapReadWrite
)

// ReadOptions configures Read and ReadFile.
type ReadOptions struct {
	MemoryMap    MemoryMapMode
	KnownListLen KnownListLen
	Logger       plylog.Logger
}

func (o ReadOptions) logger() plylog.Logger {
	if o.Logger == nil {
		return plylog.Noop()
	}
	return o.Logger
}

// WriteOptions configures Write and WriteFile.
type WriteOptions struct {
	Logger plylog.Logger
}

func (o WriteOptions) logger() plylog.Logger {
	if o.Logger == nil {
		return plylog.Noop()
	}
	return o.Logger
}

// Container is the top-level in-memory representation of a PLY file:
// its declared format, its elements (each with its own row table), and
// the two comment kinds. The text/ByteOrder pair and Format are kept in
// sync by SetText/SetByteOrder; Format is the source of truth.
type Container struct {
	Format   Format
	Comments []string
	ObjInfo  []string
	Elements []*Element

	mmapData []byte // non-nil if this container owns a memory map
}

// SetText switches the container to ASCII mode.
func (c *Container) SetText() { c.Format = ASCII }

// SetByteOrder switches the container to binary mode with the given order.
func (c *Container) SetByteOrder(order binary.ByteOrder) {
	if order == binary.BigEndian {
		c.Format = BinaryBigEndian
	} else {
		c.Format = BinaryLittleEndian
	}
}

// GetElement looks up an element by name, mirroring
// PlyData.__contains__/__getitem__'s "found" boolean rather than an error,
// since a missing element is an ordinary, expected outcome for a caller
// probing an unfamiliar file.
func (c *Container) GetElement(name string) (*Element, bool) {
	for _, e := range c.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// MustElement panics if the named element does not exist. It exists for
// test and example code where a missing element is a programmer error.
func (c *Container) MustElement(name string) *Element {
	e, ok := c.GetElement(name)
	if !ok {
		panic(fmt.Sprintf("ply: no such element %q", name))
	}
	return e
}

// String renders the container's canonical header text, without
// writing any body, for debugging and logging.
func (c *Container) String() string {
	info := &headerInfo{format: c.Format, comments: c.Comments, objInfo: c.ObjInfo, elements: c.Elements}
	var buf bytes.Buffer
	_ = writeHeader(&buf, info)
	return buf.String()
}

// Close releases any memory map the container owns. It is safe to call
// on a container with no mapping.
func (c *Container) Close() error {
	if c.mmapData == nil {
		return nil
	}
	err := unix.Munmap(c.mmapData)
	c.mmapData = nil
	return err
}

// Read parses a PLY file from r and decodes all element bodies. Memory
// mapping is unavailable through this entry point since r is an opaque
// io.Reader; use ReadFile to get mapping against a regular file.
func Read(r io.Reader, opts ReadOptions) (*Container, error) {
	log := opts.logger()
	br := bufio.NewReader(r)

	magic, err := readHeaderLine(br)
	if err != nil {
		return nil, headerErr(1, ErrUnexpectedEOF, "could not read magic line: %v", err)
	}
	if magic != "ply" {
		return nil, headerErr(1, ErrBadMagic, "expected 'ply', got %q", magic)
	}

	info, err := parseHeader(br)
	if err != nil {
		return nil, err
	}
	log.Debug("parsed header", "format", info.format.String(), "elements", len(info.elements))

	c := &Container{Format: info.format, Comments: info.comments, ObjInfo: info.objInfo, Elements: info.elements}

	for _, e := range c.Elements {
		if err := e.checkSanity(); err != nil {
			return nil, err
		}
		if err := decodeElementBody(br, e, c.Format, opts.KnownListLen, log); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decodeElementBody(br *bufio.Reader, e *Element, format Format, known KnownListLen, log plylog.Logger) error {
	if format == ASCII {
		return readASCIIElement(br, e)
	}
	order := format.ByteOrder()
	if e.IsFixedLayout() {
		log.Debug("reading fixed-layout element via bulk copy path", "element", e.Name, "rows", e.count)
	} else if coversElement(e, known) {
		log.Debug("reading ragged element promoted by known_list_len", "element", e.Name, "rows", e.count)
	} else {
		log.Debug("reading ragged element via per-row path", "element", e.Name, "rows", e.count)
	}
	return readBinaryElement(br, e, order, known)
}

// ReadFile opens path and parses it as a PLY file. When opts.MemoryMap
// is not MemoryMapOff and the file is binary, the columns of fixed-layout
// elements, and the scalar columns of elements promoted by
// opts.KnownListLen, are exposed as zero-copy strided views over a memory
// map of the file, tied to the returned container's lifetime; the
// container must be Closed to release it. List columns and ASCII bodies
// are always decoded into owned storage.
func ReadFile(path string, opts ReadOptions) (*Container, error) {
	log := opts.logger()
	if opts.MemoryMap == MemoryMapOff {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return Read(f, opts)
	}

	flag := os.O_RDONLY
	prot := unix.PROT_READ
	if opts.MemoryMap == MemoryMapReadWrite {
		flag = os.O_RDWR
		prot = unix.PROT_READ | unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := int(stat.Size())
	if size < 0 || int64(size) != stat.Size() {
		return nil, fmt.Errorf("ply: file too large to map on this platform")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		log.Debug("mmap unavailable, falling back to copying read", "path", path, "err", err)
		f2, ferr := os.Open(path)
		if ferr != nil {
			return nil, ferr
		}
		defer f2.Close()
		return Read(f2, opts)
	}

	c, err := parseMappedContainer(data, opts)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	c.mmapData = data
	return c, nil
}

// parseMappedContainer parses the header from data, then binds
// fixed-layout (or known-list-length-promoted) element bodies as
// strided views directly into data instead of copying them.
func parseMappedContainer(data []byte, opts ReadOptions) (*Container, error) {
	log := opts.logger()
	src := bytes.NewReader(data)
	br := bufio.NewReader(src)

	magic, err := readHeaderLine(br)
	if err != nil || magic != "ply" {
		return nil, headerErr(1, ErrBadMagic, "expected 'ply' magic line")
	}
	info, err := parseHeader(br)
	if err != nil {
		return nil, err
	}

	headerLen := int(src.Size()) - src.Len() - br.Buffered()
	body := data[headerLen:]

	c := &Container{Format: info.format, Comments: info.comments, ObjInfo: info.objInfo, Elements: info.elements}

	if c.Format == ASCII {
		asciiReader := bufio.NewReader(bytes.NewReader(body))
		for _, e := range c.Elements {
			if err := e.checkSanity(); err != nil {
				return nil, err
			}
			if err := readASCIIElement(asciiReader, e); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	order := c.Format.ByteOrder()
	writable := opts.MemoryMap == MemoryMapReadWrite
	offset := 0
	for _, e := range c.Elements {
		if err := e.checkSanity(); err != nil {
			return nil, err
		}
		n, err := bindElementFromMappedBytes(body, offset, e, order, opts.KnownListLen, writable, log)
		if err != nil {
			return nil, err
		}
		offset += n
	}
	return c, nil
}

// bindElementFromMappedBytes binds element e's body starting at
// body[offset:], returning the number of bytes it consumed. Fixed-layout
// and known-list-length-promoted elements get zero-copy strided columns;
// everything else falls back to the ragged reader against a sub-reader,
// copying values into owned columns (per §4.5, ragged columns are always
// owned regardless of the mapping).
func bindElementFromMappedBytes(body []byte, offset int, e *Element, order binary.ByteOrder, known KnownListLen, writable bool, log plylog.Logger) (int, error) {
	if e.IsFixedLayout() {
		rowSize := e.RowSize()
		span := e.count * rowSize
		if offset+span > len(body) {
			return 0, bodyErr(e.Name, -1, "", ErrUnexpectedEOF, "element body extends past end of file")
		}
		log.Debug("memory-mapping fixed-layout element", "element", e.Name, "rows", e.count, "row_size", rowSize)
		region := body[offset : offset+span]
		bindStridedColumns(e, region, rowSize, order, writable, true)
		return span, nil
	}

	if coversElement(e, known) {
		perProp := known[e.Name]
		rowSize, err := knownListRowSize(e, perProp)
		if err == nil {
			span := e.count * rowSize
			if offset+span <= len(body) {
				log.Debug("validating known_list_len promise for mmap promotion", "element", e.Name, "row_size", rowSize)
				if verr := validateKnownListLens(body[offset:offset+span], e, rowSize, order, perProp); verr != nil {
					return 0, verr
				}
				bindPromotedColumns(body[offset:offset+span], e, rowSize, order, perProp, writable)
				return span, nil
			}
		}
	}

	r := bufio.NewReader(bytes.NewReader(body[offset:]))
	if err := readRaggedElement(r, e, order); err != nil {
		return 0, err
	}
	consumed := len(body[offset:]) - r.Buffered()
	return consumed, nil
}

// validateKnownListLens walks every row of region without copying,
// checking that each list property's length prefix equals the promised
// k, per the known-list-length invariant: "the codec must validate
// every length prefix equals k; a mismatch raises a parse error."
func validateKnownListLens(region []byte, e *Element, rowSize int, order binary.ByteOrder, perProp map[string]int) error {
	for i := 0; i < e.count; i++ {
		rowOff := i * rowSize
		fieldOff := 0
		for _, p := range e.Properties {
			if p.IsList() {
				lw := ByteWidth(p.LengthType)
				n := int(decodeScalar(region[rowOff+fieldOff:rowOff+fieldOff+lw], p.LengthType, order))
				want := perProp[p.Name]
				if n != want {
					return bodyErr(e.Name, i, p.Name, ErrKnownListLength, "row declares length %d, known_list_len promised %d", n, want)
				}
				fieldOff += lw + want*ByteWidth(p.ValueType)
			} else {
				fieldOff += ByteWidth(p.ValueType)
			}
		}
	}
	return nil
}

// bindPromotedColumns installs a strided column over region for every
// scalar property of a known-list-length-promoted element, and decodes
// each list property's values straight from region into an owned
// [][]float64 (ragged columns are always owned; only the scalar columns
// of a promoted element are zero-copy).
func bindPromotedColumns(region []byte, e *Element, rowSize int, order binary.ByteOrder, perProp map[string]int, writable bool) {
	fieldOffsets := make([]int, len(e.Properties))
	off := 0
	for i, p := range e.Properties {
		fieldOffsets[i] = off
		if p.IsList() {
			off += ByteWidth(p.LengthType) + perProp[p.Name]*ByteWidth(p.ValueType)
		} else {
			off += ByteWidth(p.ValueType)
		}
	}

	for i, p := range e.Properties {
		if !p.IsList() {
			col := newStridedColumn(p.ValueType, region[fieldOffsets[i]:], rowSize, e.count, order, writable, true)
			e.scalars[p.Name] = col
			continue
		}
		k := perProp[p.Name]
		lw := ByteWidth(p.LengthType)
		lc := newListColumn(p.ValueType, e.count)
		for row := 0; row < e.count; row++ {
			base := row*rowSize + fieldOffsets[i] + lw
			values := make([]float64, k)
			vw := ByteWidth(p.ValueType)
			for j := 0; j < k; j++ {
				values[j] = decodeScalar(region[base+j*vw:base+(j+1)*vw], p.ValueType, order)
			}
			lc.SetRow(row, values)
		}
		e.lists[p.Name] = lc
	}
}

// Write emits the container's header followed by every element's body,
// in the container's configured format and byte order.
func Write(w io.Writer, c *Container, opts WriteOptions) error {
	log := opts.logger()
	info := &headerInfo{format: c.Format, comments: c.Comments, objInfo: c.ObjInfo, elements: c.Elements}

	magicAndHeader := &bytes.Buffer{}
	if err := writeHeader(magicAndHeader, info); err != nil {
		return err
	}
	if _, err := w.Write(magicAndHeader.Bytes()); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, e := range c.Elements {
		if err := e.checkSanity(); err != nil {
			return err
		}
		if c.Format == ASCII {
			if err := writeASCIIElement(bw, e); err != nil {
				return err
			}
			continue
		}
		order := c.Format.ByteOrder()
		log.Debug("writing element body", "element", e.Name, "rows", e.count, "format", c.Format.String())
		if err := writeBinaryElement(bw, e, order); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes c to a newly created (or truncated) file at path.
func WriteFile(path string, c *Container, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, c, opts)
}
