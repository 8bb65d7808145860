package main

/*
#include <stdint.h>
*/
import "C"

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/titaninfer/internal/errs"
)

// Only the pure-Go helpers are covered here. Exercising the //export
// entry points themselves needs a cgo caller on the other side of the
// ABI (a C harness or a cross-language integration test), not go test.

func TestStatusCodeOfMapsTaxonomyKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int32
	}{
		{errs.ModelLoad(errs.FileNotFound, assert.AnError), statusLoadError},
		{errs.Validation(errs.ShapeMismatch, assert.AnError), statusValidationError},
		{errs.InvalidArgument(assert.AnError), statusInvalidArgument},
		{errs.Inference(errs.InternalError, assert.AnError), statusInferenceError},
		{assert.AnError, statusInferenceError},
	}
	for _, c := range cases {
		assert.EqualValues(t, c.want, statusCodeOf(c.err))
	}
}

func TestFloatSliceRoundTripThroughStagingBuffer(t *testing.T) {
	values := []float32{1, 2, 3, 4.5, -6}
	got := floatSliceFromC((*C.float)(unsafe.Pointer(&values[0])), len(values))
	assert.Equal(t, values, got)
}

func TestCopyFloatsToCWritesInPlace(t *testing.T) {
	dst := make([]float32, 4)
	copyFloatsToC((*C.float)(unsafe.Pointer(&dst[0])), []float32{9, 8, 7})
	assert.Equal(t, []float32{9, 8, 7, 0}, dst)
}
