package tensor

import (
	"fmt"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zero tensor with the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, numel(shape))}
}

// Full allocates a tensor with every element set to v.
func Full(v float32, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// Ones allocates a tensor of ones.
func Ones(shape ...int) *Tensor {
	return Full(1, shape...)
}

// FromData wraps data with a shape, checking that the sizes agree.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if n := numel(shape); n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Numel returns the number of elements.
func (t *Tensor) Numel() int {
	return numel(t.Shape)
}

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int {
	if i < 0 {
		i += len(t.Shape)
	}
	return t.Shape[i]
}

// SqueezeTo drops leading axes of size one until the tensor has rank axes. A
// tensor already at rank, or whose leading axis is not one, is returned unchanged,
// so batched and unbatched backend results come out alike.
func (t *Tensor) SqueezeTo(rank int) *Tensor {
	shape := t.Shape
	for len(shape) > rank && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) == len(t.Shape) {
		return t
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: t.Data}
}

// TileRows repeats the rows of a 2-D tensor until exactly n rows exist. Extra rows
// are truncated.
func (t *Tensor) TileRows(n int) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("tile rows: want 2-D tensor, got shape %v", t.Shape)
	}
	rows, cols := t.Shape[0], t.Shape[1]
	if rows == 0 {
		return nil, fmt.Errorf("tile rows: source has no rows")
	}
	out := New(n, cols)
	for r := 0; r < n; r++ {
		src := (r % rows) * cols
		copy(out.Data[r*cols:(r+1)*cols], t.Data[src:src+cols])
	}
	return out, nil
}

// ConcatLast joins 2-D tensors with equal row counts along the feature axis.
func ConcatLast(parts ...*Tensor) (*Tensor, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("concat: no tensors")
	}
	rows := parts[0].Shape[0]
	cols := 0
	for _, p := range parts {
		if len(p.Shape) != 2 || p.Shape[0] != rows {
			return nil, fmt.Errorf("concat: shape %v does not match %d rows", p.Shape, rows)
		}
		cols += p.Shape[1]
	}
	out := New(rows, cols)
	for r := 0; r < rows; r++ {
		off := r * cols
		for _, p := range parts {
			w := p.Shape[1]
			copy(out.Data[off:off+w], p.Data[r*w:(r+1)*w])
			off += w
		}
	}
	return out, nil
}
