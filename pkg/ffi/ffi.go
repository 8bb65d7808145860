// Package main builds titaninfer's C-callable FFI surface
// (-buildmode=c-shared / c-archive): load/free/predict/last_error plus
// scalar status queries, so non-Go callers can bind against a stable ABI
// without touching Go's internal representation. cgo's //export surface
// requires package main, which is why this lives in its own directory
// rather than as an importable library package. Grounded on
// mattn/go-pointer's Save/Restore/Unref pattern for passing a Go pointer
// across the cgo boundary without violating cgo's pointer-passing rules (a
// C caller only ever holds an opaque handle, never a raw Go pointer).
package main

/*
#include <stdint.h>

typedef struct {
	int32_t status;
	int32_t written;
} titaninfer_result;
*/
import "C"

import (
	"unsafe"

	pool "github.com/libp2p/go-buffer-pool"
	pointer "github.com/mattn/go-pointer"

	"github.com/itohio/titaninfer/internal/errs"
	"github.com/itohio/titaninfer/pkg/core/handle"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

// Status codes, matching the taxonomy's four kinds plus OK.
const (
	statusOK              = 0
	statusLoadError       = 1
	statusInferenceError  = 2
	statusValidationError = 3
	statusInvalidArgument = 4
)

// session pairs a loaded Model with the last error string observed on it,
// since the C surface reports errors by handle rather than by return value
// alone.
type session struct {
	model     *handle.Model
	lastError string
}

//export titaninfer_load
func titaninfer_load(path *C.char) unsafe.Pointer {
	m, err := handle.Open(C.GoString(path))
	if err != nil {
		return nil
	}
	return pointer.Save(&session{model: m})
}

//export titaninfer_free
func titaninfer_free(h unsafe.Pointer) {
	if h == nil {
		return
	}
	pointer.Unref(h)
}

//export titaninfer_predict
func titaninfer_predict(h unsafe.Pointer, in *C.float, inLen C.int32_t, out *C.float, outCap C.int32_t) C.titaninfer_result {
	s, ok := restore(h)
	if !ok {
		return C.titaninfer_result{status: statusInferenceError, written: 0}
	}

	values := floatSliceFromC(in, int(inLen))
	input, err := tensor.FromSlice(s.model.ExpectedInputShape(), values)
	if err != nil {
		s.lastError = err.Error()
		return C.titaninfer_result{status: statusValidationError, written: 0}
	}

	result, err := s.model.Predict(input)
	if err != nil {
		s.lastError = err.Error()
		return C.titaninfer_result{status: statusCodeOf(err), written: 0}
	}
	s.lastError = ""

	n := result.Size()
	if n > int(outCap) {
		s.lastError = "output buffer too small"
		return C.titaninfer_result{status: statusInvalidArgument, written: 0}
	}
	copyFloatsToC(out, result.Data())
	return C.titaninfer_result{status: statusOK, written: C.int32_t(n)}
}

//export titaninfer_last_error
func titaninfer_last_error(h unsafe.Pointer) *C.char {
	s, ok := restore(h)
	if !ok || s.lastError == "" {
		return nil
	}
	return C.CString(s.lastError)
}

//export titaninfer_layer_count
func titaninfer_layer_count(h unsafe.Pointer) C.int32_t {
	s, ok := restore(h)
	if !ok {
		return 0
	}
	return C.int32_t(s.model.LayerCount())
}

//export titaninfer_is_loaded
func titaninfer_is_loaded(h unsafe.Pointer) C.int32_t {
	s, ok := restore(h)
	if !ok || !s.model.IsLoaded() {
		return 0
	}
	return 1
}

//export titaninfer_inference_count
func titaninfer_inference_count(h unsafe.Pointer) C.int64_t {
	s, ok := restore(h)
	if !ok {
		return 0
	}
	return C.int64_t(s.model.Stats().Count)
}

//export titaninfer_mean_latency_ms
func titaninfer_mean_latency_ms(h unsafe.Pointer) C.double {
	s, ok := restore(h)
	if !ok {
		return 0
	}
	return C.double(s.model.Stats().MeanNanos() / 1e6)
}

func restore(h unsafe.Pointer) (*session, bool) {
	if h == nil {
		return nil, false
	}
	s, ok := pointer.Restore(h).(*session)
	return s, ok
}

func statusCodeOf(err error) C.int32_t {
	te, ok := err.(*errs.Error)
	if !ok {
		return statusInferenceError
	}
	switch te.Kind {
	case errs.KindModelLoad:
		return statusLoadError
	case errs.KindValidation:
		return statusValidationError
	case errs.KindInvalidArgument:
		return statusInvalidArgument
	default:
		return statusInferenceError
	}
}

// floatSliceFromC stages the incoming C float array through the buffer
// pool before copying it into a freshly allocated, Go-owned slice: the
// staging buffer is reused across calls instead of allocating one scratch
// array per request, and never escapes this function, so it carries none
// of tensor.alloc's 32-byte alignment requirement.
func floatSliceFromC(p *C.float, n int) []float32 {
	if n == 0 {
		return nil
	}
	nbytes := n * 4
	staging := pool.Get(nbytes)
	defer pool.Put(staging)

	src := unsafe.Slice((*byte)(unsafe.Pointer(p)), nbytes)
	copy(staging, src)

	out := make([]float32, n)
	stagingFloats := unsafe.Slice((*float32)(unsafe.Pointer(&staging[0])), n)
	copy(out, stagingFloats)
	return out
}

func copyFloatsToC(p *C.float, values []float32) {
	if len(values) == 0 {
		return
	}
	dst := unsafe.Slice((*float32)(unsafe.Pointer(p)), len(values))
	copy(dst, values)
}

func main() {}
