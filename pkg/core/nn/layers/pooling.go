package layers

import (
	"fmt"

	"github.com/itohio/titaninfer/pkg/core/kernel"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

type poolKind int

const (
	poolMax poolKind = iota
	poolAvg
)

// Pool2D wraps MaxPool2D/AvgPool2D as a Layer. AvgPool2D always divides by
// the full kernel area, even for border windows that overlap padding; see
// the kernel package for the rationale.
type Pool2D struct {
	Base
	kind           poolKind
	kh, kw, stride int
	padding        PaddingMode
}

// NewMaxPool2D and NewAvgPool2D construct pooling layers over a (C,H,W)
// input.
func NewMaxPool2D(kh, kw, stride int, padding PaddingMode, name string) *Pool2D {
	return &Pool2D{Base: NewBase("MaxPool2D", name), kind: poolMax, kh: kh, kw: kw, stride: stride, padding: padding}
}

func NewAvgPool2D(kh, kw, stride int, padding PaddingMode, name string) *Pool2D {
	return &Pool2D{Base: NewBase("AvgPool2D", name), kind: poolAvg, kh: kh, kw: kw, stride: stride, padding: padding}
}

// KH, KW, Stride, Padding and IsAvg expose the layer's configuration for
// serialization.
func (p *Pool2D) KH() int              { return p.kh }
func (p *Pool2D) KW() int              { return p.kw }
func (p *Pool2D) Stride() int          { return p.stride }
func (p *Pool2D) Padding() PaddingMode { return p.padding }
func (p *Pool2D) IsAvg() bool          { return p.kind == poolAvg }

func (p *Pool2D) pads(h, w int) (top, left, bottom, right int) {
	if p.padding == PaddingValid {
		return 0, 0, 0, 0
	}
	padH := kernel.SamePadding(h, p.kh, p.stride)
	padW := kernel.SamePadding(w, p.kw, p.stride)
	return padH / 2, padW / 2, padH - padH/2, padW - padW/2
}

func (p *Pool2D) OutputShape(inputShape tensor.Shape) (tensor.Shape, error) {
	if inputShape.Rank() != 3 {
		return nil, fmt.Errorf("nn: %s: input must be rank 3 (C,H,W), got %d", p.Name(), inputShape.Rank())
	}
	h, w := inputShape[1], inputShape[2]
	top, left, bottom, right := p.pads(h, w)
	outH := kernel.ConvOutputSize(h, p.kh, p.stride, top+bottom)
	outW := kernel.ConvOutputSize(w, p.kw, p.stride, left+right)
	return tensor.NewShape(inputShape[0], outH, outW), nil
}

func (p *Pool2D) Forward(input tensor.Tensor, out *tensor.Tensor) error {
	if _, err := p.OutputShape(input.Shape()); err != nil {
		return err
	}
	h, w := input.Shape()[1], input.Shape()[2]
	top, left, bottom, right := p.pads(h, w)

	var err error
	switch p.kind {
	case poolMax:
		err = kernel.MaxPool2D(input, p.kh, p.kw, p.stride, top, left, bottom, right, out)
	case poolAvg:
		err = kernel.AvgPool2D(input, p.kh, p.kw, p.stride, top, left, bottom, right, out)
	}
	if err != nil {
		return fmt.Errorf("nn: %s.Forward: %w", p.Name(), err)
	}
	return nil
}

func (p *Pool2D) ParameterCount() int { return 0 }

func (p *Pool2D) Clone() Layer {
	clone := *p
	clone.Base = p.cloneBase()
	return &clone
}
