package kernel

import "github.com/itohio/titaninfer/pkg/core/tensor"

// ConvOutputSize computes the spatial output size for a convolution or
// pooling window of size k, stride s and total padding pad (split evenly,
// with any odd remainder added on the trailing edge).
func ConvOutputSize(inSize, k, stride, pad int) int {
	return (inSize+pad-k)/stride + 1
}

// SamePadding returns the total padding (to be split pad/2 before, pad -
// pad/2 after) needed so that a stride-1 convolution's output size equals
// inSize. For stride > 1 it follows the same "ceil(inSize/stride)" TensorFlow
// SAME convention.
func SamePadding(inSize, k, stride int) int {
	outSize := (inSize + stride - 1) / stride
	pad := (outSize-1)*stride + k - inSize
	if pad < 0 {
		pad = 0
	}
	return pad
}

// Im2Col rearranges a single NCHW-less (C,H,W) input into a
// (C*kh*kw, outH*outW) column matrix so that convolution reduces to a single
// GEMM against a (outChannels, C*kh*kw) weight matrix. padTop/padLeft follow
// the asymmetric split SamePadding computes; values falling outside the
// input are treated as zero.
func Im2Col(in tensor.Tensor, kh, kw, stride, padTop, padLeft, padBottom, padRight int, out *tensor.Tensor) error {
	shape := in.Shape()
	if shape.Rank() != 3 {
		return invalidArgf("Im2Col", "input rank %d, want 3 (C,H,W)", shape.Rank())
	}
	c, h, w := shape[0], shape[1], shape[2]
	outH := ConvOutputSize(h, kh, stride, padTop+padBottom)
	outW := ConvOutputSize(w, kw, stride, padLeft+padRight)
	if outH <= 0 || outW <= 0 {
		return invalidArgf("Im2Col", "non-positive output size (outH=%d,outW=%d)", outH, outW)
	}

	colRows := c * kh * kw
	colCols := outH * outW
	if err := ReshapeInto(out, tensor.NewShape(colRows, colCols)); err != nil {
		return err
	}
	src := in.Data()
	dst := out.Data()

	row := 0
	for ch := 0; ch < c; ch++ {
		chBase := ch * h * w
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				col := 0
				for oy := 0; oy < outH; oy++ {
					iy := oy*stride - padTop + ky
					for ox := 0; ox < outW; ox++ {
						ix := ox*stride - padLeft + kx
						var v float32
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							v = src[chBase+iy*w+ix]
						}
						dst[row*colCols+col] = v
						col++
					}
				}
				row++
			}
		}
	}
	return nil
}

// Col2Im is Im2Col's inverse: it scatter-accumulates a (C*kh*kw, outH*outW)
// column matrix back into a (C,H,W) tensor, summing contributions from
// overlapping windows. No layer in this module calls it; inference forward
// passes only ever call Im2Col.
func Col2Im(col tensor.Tensor, c, h, w, kh, kw, stride, padTop, padLeft, padBottom, padRight int, out *tensor.Tensor) error {
	outH := ConvOutputSize(h, kh, stride, padTop+padBottom)
	outW := ConvOutputSize(w, kw, stride, padLeft+padRight)
	if err := ReshapeInto(out, tensor.NewShape(c, h, w)); err != nil {
		return err
	}
	out.Zero()
	dst := out.Data()
	src := col.Data()
	colCols := outH * outW

	row := 0
	for ch := 0; ch < c; ch++ {
		chBase := ch * h * w
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				col := 0
				for oy := 0; oy < outH; oy++ {
					iy := oy*stride - padTop + ky
					for ox := 0; ox < outW; ox++ {
						ix := ox*stride - padLeft + kx
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							dst[chBase+iy*w+ix] += src[row*colCols+col]
						}
						col++
					}
				}
				row++
			}
		}
	}
	return nil
}
