package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceCores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13400F", 6},
		{"Intel(R) Core(TM) i3-14100", 4},
		{"Intel(R) Core(TM) Ultra 7 265K", 8},
		{"Intel(R) Core(TM) Ultra 5 Processor 225", 4},
		{"Apple M1", 4},
		{"Apple M2 Max", 12},
		{"Apple M3  Ultra", 24},
		{"Apple M4 Pro", 8},
		{"Intel(R) Core(TM) i7-8700K CPU @ 3.70GHz", 0},
		{"AMD Ryzen 9 7950X 16-Core Processor", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			assert.Equal(t, tt.want, FromBrand(tt.brand).PerformanceCores)
		})
	}
}

func TestOptimalThreadsBounded(t *testing.T) {
	t.Parallel()

	assert.Equal(t, min(4, runtime.NumCPU()), CPUSpec{PerformanceCores: 4}.OptimalThreads())
	assert.Equal(t, runtime.NumCPU(), CPUSpec{PerformanceCores: 4096}.OptimalThreads())

	n := CPUSpec{}.OptimalThreads()
	assert.Positive(t, n)
	assert.LessOrEqual(t, n, runtime.NumCPU())
}
