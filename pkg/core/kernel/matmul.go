package kernel

import "github.com/itohio/titaninfer/pkg/core/tensor"

// Blocking tile sizes for the SIMD-style matmul: MC rows of A, NC columns of
// B/C, KC steps of the reduction dimension, chosen to keep each tile resident
// in L2 cache.
const (
	blockMC = 64
	blockNC = 64
	blockKC = 256
	laneW   = 8 // AVX2 256-bit / float32 = 8 lanes
)

// MatMulReference computes C = A*B (A: M×K, B: K×N, C: M×N) with a
// deterministic left-to-right triple loop. Used as the semantic baseline and
// for small matrices where blocking overhead isn't worth paying.
func MatMulReference(a, b []float32, out []float32, m, k, n int) {
	for i := 0; i < m; i++ {
		arow := a[i*k : i*k+k]
		orow := out[i*n : i*n+n]
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += arow[p] * b[p*n+j]
			}
			orow[j] = sum
		}
	}
}

// MatMulBlocked computes C = A*B using three-level cache blocking. Output
// tiles accumulate into zero-initialized storage, so the summation order —
// and hence rounding — differs from MatMulReference; callers comparing the
// two kernels' output must tolerate a small relative/absolute error.
func MatMulBlocked(a, b []float32, out []float32, m, k, n int) {
	for i := range out[:m*n] {
		out[i] = 0
	}

	for kc := 0; kc < k; kc += blockKC {
		kcEnd := min(kc+blockKC, k)
		for jc := 0; jc < n; jc += blockNC {
			jcEnd := min(jc+blockNC, n)
			for ic := 0; ic < m; ic += blockMC {
				icEnd := min(ic+blockMC, m)
				matmulTile(a, b, out, k, n, ic, icEnd, jc, jcEnd, kc, kcEnd)
			}
		}
	}
}

func matmulTile(a, b, out []float32, k, n, iStart, iEnd, jStart, jEnd, kStart, kEnd int) {
	for i := iStart; i < iEnd; i++ {
		arow := a[i*k:]
		orow := out[i*n:]
		for j := jStart; j < jEnd; j++ {
			var acc float32
			p := kStart
			// 8-wide inner loop: load 8 contiguous A elements, gather 8 B
			// elements by column (B's column stride is n, not 1).
			for ; p+laneW <= kEnd; p += laneW {
				var lane [laneW]float32
				copy(lane[:], arow[p:p+laneW])
				for l := 0; l < laneW; l++ {
					acc += lane[l] * b[(p+l)*n+j]
				}
			}
			for ; p < kEnd; p++ {
				acc += arow[p] * b[p*n+j]
			}
			orow[j] += acc
		}
	}
}

// MatMul dispatches to the blocked kernel when AVX2+FMA is available and the
// problem is large enough to amortize blocking overhead, falling back to the
// reference kernel otherwise.
func MatMul(a, b []float32, out *tensor.Tensor, m, k, n int) error {
	if err := ReshapeInto(out, tensor.NewShape(m, n)); err != nil {
		return err
	}
	if len(a) != m*k {
		return invalidArgf("MatMul", "A has %d elements, want %d (M=%d,K=%d)", len(a), m*k, m, k)
	}
	if len(b) != k*n {
		return invalidArgf("MatMul", "B has %d elements, want %d (K=%d,N=%d)", len(b), k*n, k, n)
	}
	dst := out.Data()
	if hasAVX2FMA && int64(m)*int64(n)*int64(k) >= blockMC*blockNC*blockKC {
		MatMulBlocked(a, b, dst, m, k, n)
	} else {
		MatMulReference(a, b, dst, m, k, n)
	}
	return nil
}

// MatVec computes y = A*x for A: M×K row-major, x: K.
func MatVec(a, x []float32, out *tensor.Tensor, m, k int) error {
	if err := ReshapeInto(out, tensor.NewShape(m)); err != nil {
		return err
	}
	if len(x) != k {
		return invalidArgf("MatVec", "x has %d elements, want %d", len(x), k)
	}
	dst := out.Data()
	for i := 0; i < m; i++ {
		row := a[i*k : i*k+k]
		var sum float32
		for p := 0; p < k; p++ {
			sum += row[p] * x[p]
		}
		dst[i] = sum
	}
	return nil
}

// Transpose computes out = in^T for an M×N row-major matrix.
func Transpose(in []float32, out *tensor.Tensor, m, n int) error {
	if err := ReshapeInto(out, tensor.NewShape(n, m)); err != nil {
		return err
	}
	dst := out.Data()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			dst[j*m+i] = in[i*n+j]
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ReshapeInto is a thin re-export so kernel callers don't need to import
// tensor just to reallocate their output argument.
func ReshapeInto(t *tensor.Tensor, shape tensor.Shape) error {
	return tensor.ReshapeInto(t, shape)
}
