package kernel

import (
	"github.com/chewxy/math32"

	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// MaxPool2D pools a (C,H,W) input with a kh×kw window. Positions that fall
// in the padding region are treated as -inf, so a window straddling the
// border never lets padding win the max over a real value.
func MaxPool2D(in tensor.Tensor, kh, kw, stride, padTop, padLeft, padBottom, padRight int, out *tensor.Tensor) error {
	c, h, w, outH, outW, err := poolOutShape(in, kh, kw, stride, padTop, padLeft, padBottom, padRight)
	if err != nil {
		return err
	}
	if err := ReshapeInto(out, tensor.NewShape(c, outH, outW)); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	negInf := -math32.MaxFloat32

	for ch := 0; ch < c; ch++ {
		chBase := ch * h * w
		dstBase := ch * outH * outW
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				best := negInf
				for ky := 0; ky < kh; ky++ {
					iy := oy*stride - padTop + ky
					for kx := 0; kx < kw; kx++ {
						ix := ox*stride - padLeft + kx
						v := negInf
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							v = src[chBase+iy*w+ix]
						}
						if v > best {
							best = v
						}
					}
				}
				dst[dstBase+oy*outW+ox] = best
			}
		}
	}
	return nil
}

// AvgPool2D pools a (C,H,W) input with a kh×kw window, dividing by the full
// kernel area (kh*kw) even when part of the window overlaps padding — padded
// positions contribute 0 to the sum but still count toward the divisor, so a
// border window's average is pulled down relative to an interior one. This
// matches common pooling-layer behavior that callers porting a model must
// replicate rather than "fix".
func AvgPool2D(in tensor.Tensor, kh, kw, stride, padTop, padLeft, padBottom, padRight int, out *tensor.Tensor) error {
	c, h, w, outH, outW, err := poolOutShape(in, kh, kw, stride, padTop, padLeft, padBottom, padRight)
	if err != nil {
		return err
	}
	if err := ReshapeInto(out, tensor.NewShape(c, outH, outW)); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	area := float32(kh * kw)

	for ch := 0; ch < c; ch++ {
		chBase := ch * h * w
		dstBase := ch * outH * outW
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				var sum float32
				for ky := 0; ky < kh; ky++ {
					iy := oy*stride - padTop + ky
					for kx := 0; kx < kw; kx++ {
						ix := ox*stride - padLeft + kx
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							sum += src[chBase+iy*w+ix]
						}
					}
				}
				dst[dstBase+oy*outW+ox] = sum / area
			}
		}
	}
	return nil
}

// GlobalAvgPool2D averages every spatial position of a (C,H,W) input down to
// one value per channel, producing a (C,) output. Kept as a kernel-level
// primitive (not exposed as a layer): it is the kh=H,kw=W,stride=1 special
// case of AvgPool2D, but collapsing straight to rank 1 avoids allocating and
// then flattening a (C,1,1) intermediate.
func GlobalAvgPool2D(in tensor.Tensor, out *tensor.Tensor) error {
	shape := in.Shape()
	if shape.Rank() != 3 {
		return invalidArgf("GlobalAvgPool2D", "input rank %d, want 3 (C,H,W)", shape.Rank())
	}
	c, h, w := shape[0], shape[1], shape[2]
	if err := ReshapeInto(out, tensor.NewShape(c)); err != nil {
		return err
	}
	src, dst := in.Data(), out.Data()
	area := float32(h * w)
	for ch := 0; ch < c; ch++ {
		var sum float32
		base := ch * h * w
		for i := 0; i < h*w; i++ {
			sum += src[base+i]
		}
		dst[ch] = sum / area
	}
	return nil
}

func poolOutShape(in tensor.Tensor, kh, kw, stride, padTop, padLeft, padBottom, padRight int) (c, h, w, outH, outW int, err error) {
	shape := in.Shape()
	if shape.Rank() != 3 {
		return 0, 0, 0, 0, 0, invalidArgf("Pool2D", "input rank %d, want 3 (C,H,W)", shape.Rank())
	}
	c, h, w = shape[0], shape[1], shape[2]
	outH = ConvOutputSize(h, kh, stride, padTop+padBottom)
	outW = ConvOutputSize(w, kw, stride, padLeft+padRight)
	if outH <= 0 || outW <= 0 {
		return 0, 0, 0, 0, 0, invalidArgf("Pool2D", "non-positive output size (outH=%d,outW=%d)", outH, outW)
	}
	return c, h, w, outH, outW, nil
}
