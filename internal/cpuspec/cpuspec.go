// Package cpuspec picks inference thread counts from the CPU model.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec describes the host processor.
type CPUSpec struct {
	BrandName        string
	PerformanceCores int
}

// GetCPUSpec inspects the running CPU.
func GetCPUSpec() CPUSpec {
	return FromBrand(cpuid.CPU.BrandName)
}

// FromBrand builds a CPUSpec from a CPU brand string.
func FromBrand(brand string) CPUSpec {
	return CPUSpec{BrandName: brand, PerformanceCores: performanceCores(brand)}
}

// OptimalThreads returns the thread count for one interpreter. Hybrid
// CPUs use their performance cores only; others use every logical core.
func (c CPUSpec) OptimalThreads() int {
	available := runtime.NumCPU()
	if c.PerformanceCores > 0 {
		return min(c.PerformanceCores, available)
	}
	if logical := cpuid.CPU.LogicalCores; logical > 0 {
		return min(logical, available)
	}
	return available
}

var (
	intelCorePattern  = regexp.MustCompile(`intel.*core.*i[3579]-(1[234]\d{3})`)
	intelUltraPattern = regexp.MustCompile(`intel.*core.*ultra\s+[579]\s+(?:processor\s+)?(\d{3})`)
	applePattern      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// P-core counts by model number; variants with a suffix share the base count.
var (
	intelCores = map[string]int{
		"12900": 8, "12700": 8, "12600": 6, "12400": 6, "12100": 4,
		"13900": 8, "13700": 8, "13600": 6, "13500": 6, "13400": 6, "13100": 4,
		"14900": 8, "14700": 8, "14600": 6, "14400": 6, "14100": 4,
	}
	intelUltraCores = map[string]int{
		"285": 8, "265": 8, "255": 8, "235": 6, "225": 4,
	}
	appleCores = map[string]int{
		"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
		"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
		"m3": 4, "m3 pro": 8, "m3 max": 12, "m3 ultra": 24,
		"m4": 6, "m4 pro": 8, "m4 max": 12,
	}
)

// performanceCores returns 0 when the brand is not a known hybrid design.
func performanceCores(brand string) int {
	brand = strings.ToLower(brand)
	if m := intelCorePattern.FindStringSubmatch(brand); m != nil {
		return intelCores[m[1]]
	}
	if m := intelUltraPattern.FindStringSubmatch(brand); m != nil {
		return intelUltraCores[m[1]]
	}
	if m := applePattern.FindStringSubmatch(brand); m != nil {
		return appleCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
