package ply

import "testing"

func TestParsePropertyLineScalar(t *testing.T) {
	t.Parallel()
	p, err := ParsePropertyLine([]string{"float", "x"})
	if err != nil {
		t.Fatalf("ParsePropertyLine: %v", err)
	}
	if p.IsList() {
		t.Fatal("expected scalar property")
	}
	if p.Name != "x" || p.ValueType != Float32 {
		t.Errorf("got name=%q valueType=%v", p.Name, p.ValueType)
	}
	if got, want := p.HeaderLine(), "property float32 x"; got != want {
		t.Errorf("HeaderLine() = %q, want %q", got, want)
	}
}

func TestParsePropertyLineList(t *testing.T) {
	t.Parallel()
	p, err := ParsePropertyLine([]string{"list", "uchar", "int", "vertex_indices"})
	if err != nil {
		t.Fatalf("ParsePropertyLine: %v", err)
	}
	if !p.IsList() {
		t.Fatal("expected list property")
	}
	if p.LengthType != Uint8 || p.ValueType != Int32 {
		t.Errorf("got lengthType=%v valueType=%v", p.LengthType, p.ValueType)
	}
	want := "property list uint8 int32 vertex_indices"
	if got := p.HeaderLine(); got != want {
		t.Errorf("HeaderLine() = %q, want %q", got, want)
	}
}

func TestParsePropertyLineErrors(t *testing.T) {
	t.Parallel()
	cases := [][]string{
		nil,
		{"float"},
		{"float", "x", "extra"},
		{"list", "uchar", "int"},
		{"notatype", "x"},
	}
	for _, fields := range cases {
		if _, err := ParsePropertyLine(fields); err == nil {
			t.Errorf("ParsePropertyLine(%v): expected error", fields)
		}
	}
}

func TestPropertyRowWidth(t *testing.T) {
	t.Parallel()
	scalar, _ := NewScalarProperty("x", Float64)
	if got := scalar.RowWidth(0); got != 8 {
		t.Errorf("scalar.RowWidth() = %d, want 8", got)
	}

	list, _ := NewListProperty("idx", Uint8, Int32)
	if got := list.RowWidth(3); got != 1+3*4 {
		t.Errorf("list.RowWidth(3) = %d, want %d", got, 1+3*4)
	}
}

func TestNewPropertyInvalidName(t *testing.T) {
	t.Parallel()
	if _, err := NewScalarProperty("bad name", Int32); err == nil {
		t.Fatal("expected error for name containing whitespace")
	}
	if _, err := NewScalarProperty("property", Int32); err == nil {
		t.Fatal("expected error for reserved keyword name")
	}
}
