package ply

import (
	"encoding/binary"
	"testing"
)

func buildVertexElement(t *testing.T) *Element {
	t.Helper()
	x, _ := NewScalarProperty("x", Float32)
	y, _ := NewScalarProperty("y", Float32)
	e, err := NewElement("vertex", 3, []Property{x, y}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	return e
}

func TestElementFixedLayout(t *testing.T) {
	t.Parallel()
	e := buildVertexElement(t)
	if !e.IsFixedLayout() {
		t.Fatal("expected fixed-layout element")
	}
	if got, want := e.RowSize(), 8; got != want {
		t.Errorf("RowSize() = %d, want %d", got, want)
	}
}

func TestElementRaggedNotFixedLayout(t *testing.T) {
	t.Parallel()
	idx, _ := NewListProperty("vertex_indices", Uint8, Int32)
	e, err := NewElement("face", 2, []Property{idx}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	if e.IsFixedLayout() {
		t.Fatal("expected ragged element")
	}
}

func TestElementColumnSetGet(t *testing.T) {
	t.Parallel()
	e := buildVertexElement(t)
	col, err := e.Column("x")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	for i := 0; i < e.Len(); i++ {
		if err := col.Set(i, float64(i)); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i := 0; i < e.Len(); i++ {
		if got := col.At(i); got != float64(i) {
			t.Errorf("At(%d) = %v, want %v", i, got, float64(i))
		}
	}
}

func TestElementRowView(t *testing.T) {
	t.Parallel()
	e := buildVertexElement(t)
	col, _ := e.Column("x")
	_ = col.Set(1, 7)
	row := e.Row(1)
	v, err := row.Scalar("x")
	if err != nil {
		t.Fatalf("Scalar: %v", err)
	}
	if v != 7 {
		t.Errorf("Row(1).Scalar(\"x\") = %v, want 7", v)
	}
	if _, err := row.Scalar("missing"); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestElementRowPanicsOutOfRange(t *testing.T) {
	t.Parallel()
	e := buildVertexElement(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range row index")
		}
	}()
	e.Row(100)
}

func TestElementDuplicatePropertyName(t *testing.T) {
	t.Parallel()
	x1, _ := NewScalarProperty("x", Float32)
	x2, _ := NewScalarProperty("x", Int32)
	if _, err := NewElement("vertex", 1, []Property{x1, x2}, binary.LittleEndian); err == nil {
		t.Fatal("expected error for duplicate property name")
	}
}

func TestListColumnConstantRowLength(t *testing.T) {
	t.Parallel()
	c := newListColumn(Int32, 3)
	c.SetRow(0, []float64{1, 2, 3})
	c.SetRow(1, []float64{4, 5, 6})
	c.SetRow(2, []float64{7, 8, 9})
	k, ok := c.ConstantRowLength()
	if !ok || k != 3 {
		t.Fatalf("ConstantRowLength() = (%d, %v), want (3, true)", k, ok)
	}

	c.SetRow(1, []float64{1})
	if _, ok := c.ConstantRowLength(); ok {
		t.Fatal("expected ConstantRowLength to fail after uneven row")
	}
}

func TestElementClone(t *testing.T) {
	t.Parallel()
	e := buildVertexElement(t)
	col, _ := e.Column("x")
	_ = col.Set(0, 5)

	clone := e.Clone()
	cloneCol, _ := clone.Column("x")
	if got := cloneCol.At(0); got != 5 {
		t.Fatalf("clone column At(0) = %v, want 5", got)
	}

	_ = col.Set(0, 99)
	if got := cloneCol.At(0); got != 5 {
		t.Fatalf("clone mutated after source changed: got %v, want 5", got)
	}
}
