package kernel

import "golang.org/x/sys/cpu"

// hasAVX2FMA reports whether the CPU supports AVX2 and FMA. MatMul uses it
// to choose the blocked kernel over the reference kernel for large
// problems. Detection is cached at process start — the feature set of the
// running CPU cannot change mid-process.
var hasAVX2FMA = cpu.X86.HasAVX2 && cpu.X86.HasFMA

// HasAVX2FMA reports the detected CPU feature flag that gates MatMul's
// blocked kernel.
func HasAVX2FMA() bool { return hasAVX2FMA }
