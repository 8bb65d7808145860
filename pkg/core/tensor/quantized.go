package tensor

import "fmt"

// QuantizedTensor is Tensor's 8-bit-signed sibling: same alignment and
// lifecycle rules, plus a per-tensor affine mapping real ≈ (q - zeroPoint) *
// scale.
type QuantizedTensor struct {
	shape     Shape
	data      []int8
	raw       []byte
	scale     float32
	zeroPoint int8
}

// NewQuantized allocates a zero-initialized quantized tensor.
func NewQuantized(shape Shape, scale float32, zeroPoint int8) (QuantizedTensor, error) {
	if err := shape.Validate(); err != nil {
		return QuantizedTensor{}, err
	}
	if scale <= 0 {
		return QuantizedTensor{}, fmt.Errorf("tensor: quantized scale must be positive, got %v", scale)
	}
	data, raw := allocAlignedInt8(shape.Size())
	return QuantizedTensor{shape: shape.Clone(), data: data, raw: raw, scale: scale, zeroPoint: zeroPoint}, nil
}

func (t QuantizedTensor) Empty() bool          { return t.data == nil }
func (t QuantizedTensor) Shape() Shape         { return t.shape }
func (t QuantizedTensor) Rank() int            { return t.shape.Rank() }
func (t QuantizedTensor) Size() int            { return len(t.data) }
func (t QuantizedTensor) Data() []int8         { return t.data }
func (t QuantizedTensor) Scale() float32       { return t.scale }
func (t QuantizedTensor) ZeroPoint() int8      { return t.zeroPoint }
func (t QuantizedTensor) Ptr() uintptr { return alignedPtrInt8(t.data) }

// Dequantize converts a single code to its real-valued approximation.
func (t QuantizedTensor) Dequantize(q int8) float32 {
	return float32(int32(q)-int32(t.zeroPoint)) * t.scale
}

// Clone returns a deep, independently owned copy.
func (t QuantizedTensor) Clone() QuantizedTensor {
	if t.Empty() {
		return QuantizedTensor{}
	}
	out, _ := NewQuantized(t.shape, t.scale, t.zeroPoint)
	copy(out.data, t.data)
	return out
}

// Move transfers ownership, resetting the receiver to empty.
func (t *QuantizedTensor) Move() QuantizedTensor {
	moved := *t
	*t = QuantizedTensor{}
	return moved
}
