package tensor

import "fmt"

// Tensor is an exclusively owned, 32-byte-aligned, contiguous buffer of
// float32 elements with a row-major shape. The zero value is the
// empty tensor: null data, size 0, empty shape — it is always safe to use
// and to discard.
type Tensor struct {
	shape Shape
	data  []float32
	raw   []byte
}

// New allocates a zero-initialized tensor of the given shape. It fails with
// an InvalidShape-flavored error if any dimension is zero or the shape is
// empty.
func New(shape Shape) (Tensor, error) {
	if err := shape.Validate(); err != nil {
		return Tensor{}, err
	}
	data, raw := allocAligned(shape.Size())
	return Tensor{shape: shape.Clone(), data: data, raw: raw}, nil
}

// MustNew is New, panicking on error. Convenient for tests and constant
// internal shapes whose validity is known at the call site.
func MustNew(shape Shape) Tensor {
	t, err := New(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSlice wraps an existing float32 slice as a tensor without copying,
// re-aligning it first if its backing array does not already satisfy the
// 32-byte alignment invariant.
func FromSlice(shape Shape, values []float32) (Tensor, error) {
	if err := shape.Validate(); err != nil {
		return Tensor{}, err
	}
	if len(values) != shape.Size() {
		return Tensor{}, fmt.Errorf("tensor: data length %d does not match shape size %d", len(values), shape.Size())
	}
	if alignedPtr(values)%alignment == 0 {
		return Tensor{shape: shape.Clone(), data: values}, nil
	}
	t, err := New(shape)
	if err != nil {
		return Tensor{}, err
	}
	copy(t.data, values)
	return t, nil
}

// Empty reports whether the tensor holds no data (the zero value, or the
// result of Move on a populated tensor).
func (t Tensor) Empty() bool { return t.data == nil }

// Shape returns the tensor's shape.
func (t Tensor) Shape() Shape { return t.shape }

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return t.shape.Rank() }

// Size returns the total element count.
func (t Tensor) Size() int { return len(t.data) }

// Data exposes the raw backing slice for kernels. Callers that receive this
// slice as a mutable "output" argument are assumed to hold exclusive access
// for the duration of the call.
func (t Tensor) Data() []float32 { return t.data }

// Ptr returns the address of the backing storage (0 for an empty tensor).
// Used to assert the 32-byte alignment invariant in tests.
func (t Tensor) Ptr() uintptr { return alignedPtr(t.data) }

// FlatIndex computes the row-major flat offset of a multi-index.
func (t Tensor) FlatIndex(indices ...int) int {
	strides := t.shape.Strides()
	if len(indices) != len(strides) {
		panic(fmt.Sprintf("tensor: FlatIndex: got %d indices, want %d", len(indices), len(strides)))
	}
	idx := 0
	for i, v := range indices {
		idx += v * strides[i]
	}
	return idx
}

// At returns the element at the given multi-index.
func (t Tensor) At(indices ...int) float32 {
	idx := t.FlatIndex(indices...)
	checkIndex(idx, len(t.data))
	return t.data[idx]
}

// SetAt sets the element at the given multi-index.
func (t Tensor) SetAt(value float32, indices ...int) {
	idx := t.FlatIndex(indices...)
	checkIndex(idx, len(t.data))
	t.data[idx] = value
}

// Fill sets every element to v.
func (t Tensor) Fill(v float32) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zero sets every element to 0.
func (t Tensor) Zero() { t.Fill(0) }

// Clone returns a deep, independently owned copy.
func (t Tensor) Clone() Tensor {
	if t.Empty() {
		return Tensor{}
	}
	out := MustNew(t.shape)
	copy(out.data, t.data)
	return out
}

// Move transfers ownership of the backing storage to the returned tensor and
// resets the receiver to the empty tensor (null data, size 0, empty shape).
// The zeroed receiver remains safe to use and to destroy.
func (t *Tensor) Move() Tensor {
	moved := Tensor{shape: t.shape, data: t.data, raw: t.raw}
	*t = Tensor{}
	return moved
}

// ReshapeInto reallocates dst to newShape if its current shape differs, and
// otherwise returns dst unchanged: the "reuse existing storage" half of the
// kernel contract.
func ReshapeInto(dst *Tensor, newShape Shape) error {
	if dst.shape.Equal(newShape) {
		return nil
	}
	t, err := New(newShape)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

// ViewAs reinterprets dst's existing storage under newShape without
// reallocating, for callers that know the element count is unchanged (e.g.
// collapsing a (1,N) batch result down to (N,)). Returns an error if the
// sizes don't match.
func ViewAs(dst *Tensor, newShape Shape) error {
	if newShape.Size() != dst.Size() {
		return fmt.Errorf("tensor: ViewAs: size %d incompatible with existing size %d", newShape.Size(), dst.Size())
	}
	dst.shape = newShape.Clone()
	return nil
}

// HasNaN scans for IEEE NaN values, used by the engine's input validation.
func (t Tensor) HasNaN() bool {
	for _, v := range t.data {
		if v != v {
			return true
		}
	}
	return false
}

func (t Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, size=%d)", t.shape, len(t.data))
}
