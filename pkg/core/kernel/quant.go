package kernel

import (
	"github.com/chewxy/math32"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Quantize maps a float32 tensor to an 8-bit-signed asymmetric
// representation: scale = (max-min)/255 over the range widened to include 0
// (or 1 when every element is 0, to avoid a division by zero), zeroPoint = round(-min/scale) - 128 clamped
// to [-128,127], q = round(x/scale) + zeroPoint clamped to [-128,127].
func Quantize(in tensor.Tensor) (tensor.QuantizedTensor, error) {
	src := in.Data()
	if len(src) == 0 {
		return tensor.QuantizedTensor{}, invalidArgf("Quantize", "empty input")
	}

	// min/max are seeded at 0, not src[0]: folding 0 into the range guarantees
	// it stays exactly representable after quantization, which matters for
	// operations (e.g. padding, ReLU clamping) that rely on an exact zero.
	min, max := float32(0), float32(0)
	for _, v := range src {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	scale := (max - min) / 255
	if scale == 0 {
		scale = 1
	}
	zp := int32(math32.Round(-min/scale)) - 128
	zp = clampInt8(zp)

	out, err := tensor.NewQuantized(in.Shape(), scale, int8(zp))
	if err != nil {
		return tensor.QuantizedTensor{}, err
	}
	dst := out.Data()
	for i, v := range src {
		q := int32(math32.Round(v/scale)) + zp
		dst[i] = int8(clampInt8(q))
	}
	return out, nil
}

func clampInt8(v int32) int32 {
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return v
}

// GemmInt8 computes C = A*B for int8 operands A (M×K) and B (K×N). Each
// term (a-zpA)*(b-zpB) is widened to int32 and accumulated in int32 to avoid
// overflow; the accumulator is converted to float32 once per output element
// and multiplied by scaleA*scaleB.
func GemmInt8(a, b tensor.QuantizedTensor, out *tensor.Tensor) error {
	ashape, bshape := a.Shape(), b.Shape()
	if ashape.Rank() != 2 || bshape.Rank() != 2 {
		return invalidArgf("GemmInt8", "operands must be rank 2")
	}
	m, k := ashape[0], ashape[1]
	k2, n := bshape[0], bshape[1]
	if k != k2 {
		return invalidArgf("GemmInt8", "inner dimensions differ: %d vs %d", k, k2)
	}
	if err := ReshapeInto(out, tensor.NewShape(m, n)); err != nil {
		return err
	}

	ad, bd := a.Data(), b.Data()
	azp, bzp := int32(a.ZeroPoint()), int32(b.ZeroPoint())
	scale := a.Scale() * b.Scale()
	dst := out.Data()

	for i := 0; i < m; i++ {
		arow := ad[i*k : i*k+k]
		orow := dst[i*n : i*n+n]
		for j := 0; j < n; j++ {
			var acc int32
			p := 0
			for ; p+laneW <= k; p += laneW {
				for l := 0; l < laneW; l++ {
					av := int32(arow[p+l]) - azp
					bv := int32(bd[(p+l)*n+j]) - bzp
					acc += av * bv
				}
			}
			for ; p < k; p++ {
				av := int32(arow[p]) - azp
				bv := int32(bd[p*n+j]) - bzp
				acc += av * bv
			}
			orow[j] = float32(acc) * scale
		}
	}
	return nil
}
