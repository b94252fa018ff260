package ply

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plygo/ply/internal/plytestdata"
)

func loadScenario(t *testing.T, path string) *plytestdata.Scenario {
	t.Helper()
	s, err := plytestdata.Load(path)
	if err != nil {
		t.Fatalf("plytestdata.Load(%q): %v", path, err)
	}
	return s
}

func checkScenarioElements(t *testing.T, c *Container, want []plytestdata.ElementExpectation) {
	t.Helper()
	for _, ee := range want {
		e, ok := c.GetElement(ee.Name)
		if !ok {
			t.Fatalf("missing element %q", ee.Name)
		}
		if e.Len() != ee.Count {
			t.Errorf("element %q count = %d, want %d", ee.Name, e.Len(), ee.Count)
		}
		for _, se := range ee.Scalars {
			col, err := e.Column(se.Property)
			if err != nil {
				t.Fatalf("element %q missing scalar column %q", ee.Name, se.Property)
			}
			for i, want := range se.Values {
				if got := col.At(i); got != want {
					t.Errorf("%s.%s[%d] = %v, want %v", ee.Name, se.Property, i, got, want)
				}
			}
		}
		for _, le := range ee.Lists {
			col, err := e.ListColumnByName(le.Property)
			if err != nil {
				t.Fatalf("element %q missing list column %q", ee.Name, le.Property)
			}
			for i, want := range le.Rows {
				got := col.Row(i)
				if len(got) != len(want) {
					t.Fatalf("%s.%s[%d] has %d values, want %d", ee.Name, le.Property, i, len(got), len(want))
				}
				for j := range want {
					if got[j] != want[j] {
						t.Errorf("%s.%s[%d][%d] = %v, want %v", ee.Name, le.Property, i, j, got[j], want[j])
					}
				}
			}
		}
	}
}

func TestScenarioTetrahedronASCII(t *testing.T) {
	t.Parallel()
	s := loadScenario(t, "testdata/scenario_a_tetrahedron_ascii.yaml")
	c, err := Read(strings.NewReader(s.Input), ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(c.Elements) != 2 {
		t.Fatalf("elements = %d, want 2", len(c.Elements))
	}
	checkScenarioElements(t, c, s.Elements)
}

func TestScenarioShortRow(t *testing.T) {
	t.Parallel()
	s := loadScenario(t, "testdata/scenario_c_short_row.yaml")
	_, err := Read(strings.NewReader(s.Input), ReadOptions{})
	if err == nil {
		t.Fatal("expected parse error for short row")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Element != s.WantErr.Element || pe.Row != s.WantErr.Row || pe.Property != s.WantErr.Property {
		t.Errorf("ParseError = %+v, want element=%q row=%d property=%q",
			pe, s.WantErr.Element, s.WantErr.Row, s.WantErr.Property)
	}
}

func TestScenarioCommentsBeforeFormat(t *testing.T) {
	t.Parallel()
	s := loadScenario(t, "testdata/scenario_e_comments_before_format.yaml")
	c, err := Read(strings.NewReader(s.Input), ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkScenarioElements(t, c, s.Elements)

	var buf bytes.Buffer
	if err := Write(&buf, c, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "format ascii 1.0\ncomment banner\n") {
		t.Errorf("canonical output did not place comment after format:\n%s", buf.String())
	}
}

func TestScenarioFormatSwitch(t *testing.T) {
	t.Parallel()
	s := loadScenario(t, "testdata/scenario_a_tetrahedron_ascii.yaml")
	c, err := Read(strings.NewReader(s.Input), ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	c.SetByteOrder(binary.LittleEndian)
	var buf bytes.Buffer
	if err := Write(&buf, c, WriteOptions{}); err != nil {
		t.Fatalf("Write binary: %v", err)
	}
	if !strings.Contains(buf.String(), "format binary_little_endian 1.0\n") {
		t.Fatal("expected binary_little_endian format line")
	}

	c2, err := Read(&buf, ReadOptions{})
	if err != nil {
		t.Fatalf("Read back: %v", err)
	}
	checkScenarioElements(t, c2, s.Elements)
}

func TestScenarioCROnlyHeader(t *testing.T) {
	t.Parallel()
	body := "ply\rformat ascii 1.0\relement vertex 2\rproperty float x\rend_header\r0\r1\r"
	c, err := Read(strings.NewReader(body), ReadOptions{})
	if err != nil {
		t.Fatalf("Read CR-only header: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, c, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "\r") {
		t.Fatal("canonical output must not contain carriage returns")
	}
	if !strings.HasPrefix(buf.String(), "ply\nformat ascii 1.0\n") {
		t.Errorf("unexpected header output: %q", buf.String())
	}
}

func TestContainerRoundTripBinaryFile(t *testing.T) {
	t.Parallel()
	x, _ := NewScalarProperty("x", Float32)
	e, err := NewElement("vertex", 4, []Property{x}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	col, _ := e.Column("x")
	for i := 0; i < 4; i++ {
		_ = col.Set(i, float64(i))
	}
	c := &Container{Format: BinaryLittleEndian, Elements: []*Element{e}}

	path := filepath.Join(t.TempDir(), "out.ply")
	if err := WriteFile(path, c, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path, ReadOptions{MemoryMap: MemoryMapReadOnly})
	if err != nil {
		t.Fatalf("ReadFile with mmap: %v", err)
	}
	defer func() {
		if err := got.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	gotElem, ok := got.GetElement("vertex")
	if !ok {
		t.Fatal("missing vertex element")
	}
	gotCol, err := gotElem.Column("x")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if !gotCol.IsMemoryMapped() {
		t.Fatal("expected memory-mapped column for fixed-layout element")
	}
	for i := 0; i < 4; i++ {
		if got := gotCol.At(i); got != float64(i) {
			t.Errorf("x[%d] = %v, want %v", i, got, float64(i))
		}
	}
}

func TestContainerMustElementPanics(t *testing.T) {
	t.Parallel()
	c := &Container{}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing element")
		}
	}()
	c.MustElement("nope")
}

func TestReadBadMagic(t *testing.T) {
	t.Parallel()
	if _, err := Read(strings.NewReader("nope\n"), ReadOptions{}); err == nil {
		t.Fatal("expected error for bad magic line")
	}
}

func TestReadFileKnownListLenMmapPromotion(t *testing.T) {
	t.Parallel()
	idx, _ := NewListProperty("idx", Uint8, Int32)
	e, err := NewElement("face", 2, []Property{idx}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	lc, _ := e.ListColumnByName("idx")
	lc.SetRow(0, []float64{0, 1, 2})
	lc.SetRow(1, []float64{3, 4, 5})
	c := &Container{Format: BinaryLittleEndian, Elements: []*Element{e}}

	path := filepath.Join(t.TempDir(), "faces.ply")
	if err := WriteFile(path, c, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	known := KnownListLen{"face": {"idx": 3}}
	got, err := ReadFile(path, ReadOptions{MemoryMap: MemoryMapReadOnly, KnownListLen: known})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer got.Close()

	gotElem := got.MustElement("face")
	gotLC, err := gotElem.ListColumnByName("idx")
	if err != nil {
		t.Fatalf("ListColumnByName: %v", err)
	}
	if row := gotLC.Row(1); len(row) != 3 || row[0] != 3 {
		t.Errorf("idx[1] = %v", row)
	}
}

func TestReadFileNoMmapFallback(t *testing.T) {
	t.Parallel()
	x, _ := NewScalarProperty("x", Int32)
	e, _ := NewElement("vertex", 2, []Property{x}, binary.LittleEndian)
	col, _ := e.Column("x")
	_ = col.Set(0, 10)
	_ = col.Set(1, 20)
	c := &Container{Format: BinaryLittleEndian, Elements: []*Element{e}}

	path := filepath.Join(t.TempDir(), "plain.ply")
	if err := WriteFile(path, c, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	gotElem := got.MustElement("vertex")
	gotCol, _ := gotElem.Column("x")
	if gotCol.IsMemoryMapped() {
		t.Fatal("expected owned column without MemoryMap option")
	}
	if gotCol.At(0) != 10 || gotCol.At(1) != 20 {
		t.Fatalf("values = %v, %v", gotCol.At(0), gotCol.At(1))
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
