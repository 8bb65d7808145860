//go:build !release

package tensor

import "fmt"

// debugChecks is true in the default (non-release) build: the flat offset
// that At and SetAt compute is range-checked on every call. Individual
// indices are not checked against their own dimension.
const debugChecks = true

func checkIndex(idx, size int) {
	if idx < 0 || idx >= size {
		panic(fmt.Sprintf("tensor: index %d out of range [0,%d)", idx, size))
	}
}
