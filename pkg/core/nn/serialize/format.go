// Package serialize implements the model file format: a magic-tagged,
// versioned, little-endian binary layout with one fixed-shape record per
// layer, grounded on the node/edge/data file triad format the original
// graph marshaller used (magic + version header, then a sequence of
// typed records).
package serialize

import "fmt"

// Magic is the 4-byte signature every model file starts with.
const Magic = "TITN"

// FormatVersion is the current file format version this package writes and
// the newest version it accepts when reading. A loader accepts any version
// up to and including this one.
const FormatVersion = 2

// layerTag identifies a layer's concrete type in the serialized stream. Each
// tag is a fixed 4-byte value; tags are never reused or reassigned, so a
// value outside this set is always an unknown/future layer kind and is
// rejected rather than guessed at.
type layerTag uint32

const (
	tagDense     layerTag = 1
	tagReLU      layerTag = 2
	tagSigmoid   layerTag = 3
	tagTanh      layerTag = 4
	tagSoftmax   layerTag = 5
	tagConv2D    layerTag = 6
	tagMaxPool2D layerTag = 7
	tagAvgPool2D layerTag = 8
	tagFlatten   layerTag = 9
)

func (t layerTag) String() string {
	switch t {
	case tagDense:
		return "Dense"
	case tagReLU:
		return "ReLU"
	case tagSigmoid:
		return "Sigmoid"
	case tagTanh:
		return "Tanh"
	case tagSoftmax:
		return "Softmax"
	case tagConv2D:
		return "Conv2D"
	case tagMaxPool2D:
		return "MaxPool2D"
	case tagAvgPool2D:
		return "AvgPool2D"
	case tagFlatten:
		return "Flatten"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// FormatError reports a structural problem with a model file: bad magic,
// an unsupported version, an unrecognized layer tag, or a truncated
// stream. The handle façade maps this to the ModelLoad/InvalidFormat error
// kind, or to ModelLoad/EmptyModel when the file declares no layers.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "serialize: invalid model file: " + e.Reason }

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}
