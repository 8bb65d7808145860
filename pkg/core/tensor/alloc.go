package tensor

import (
	"unsafe"

	// This package's raw-pointer aligned-buffer trick (carving a 32-byte
	// aligned []float32 window out of a larger []byte allocation, and
	// holding that pointer across the lifetime of a Tensor) depends on Go's
	// garbage collector never relocating live objects. Importing this
	// package turns that implicit assumption into an explicit, checked one;
	// it panics at init if a future runtime breaks it.
	_ "go4.org/unsafe/assume-no-moving-gc"
)

// alignment is the byte alignment required by the blocked SIMD kernels
// (AVX2 load/store width and tile boundary).
const alignment = 32

// allocAligned returns a float32 slice of length n whose backing array
// starts on a 32-byte boundary, along with the raw byte buffer that owns the
// memory (kept only so the allocation is not collected early; Go slices
// already keep their backing array alive, so raw is mostly documentation).
// allocAligned(0) returns (nil, nil): a null pointer is permitted only when
// size is zero.
func allocAligned(n int) (data []float32, raw []byte) {
	if n == 0 {
		return nil, nil
	}
	byteLen := n * 4
	// Round the allocation up to a 32-byte multiple and over-allocate by one
	// alignment window so we can always carve out an aligned slice from it.
	padded := ((byteLen + alignment - 1) / alignment) * alignment
	raw = make([]byte, padded+alignment)
	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := (alignment - int(base%alignment)) % alignment
	data = unsafe.Slice((*float32)(unsafe.Pointer(&raw[offset])), n)
	return data, raw
}

// alignedPtr returns the address of a tensor's backing storage, or 0 for an
// empty tensor. Exposed for alignment invariant tests.
func alignedPtr(data []float32) uintptr {
	if len(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&data[0]))
}

// allocAlignedInt8 is allocAligned's int8 counterpart, used by
// QuantizedTensor.
func allocAlignedInt8(n int) (data []int8, raw []byte) {
	if n == 0 {
		return nil, nil
	}
	padded := ((n + alignment - 1) / alignment) * alignment
	raw = make([]byte, padded+alignment)
	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := (alignment - int(base%alignment)) % alignment
	data = unsafe.Slice((*int8)(unsafe.Pointer(&raw[offset])), n)
	return data, raw
}

func alignedPtrInt8(data []int8) uintptr {
	if len(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&data[0]))
}
