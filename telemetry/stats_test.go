package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeFieldStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	stats := ComputeFieldStats(values)

	if math.Abs(stats.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", stats.Mean)
	}

	if math.Abs(stats.P10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", stats.P10)
	}

	if math.Abs(stats.P50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", stats.P50)
	}

	if math.Abs(stats.P90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", stats.P90)
	}

	if stats.Std <= 0 {
		t.Error("expected positive standard deviation for spread-out values")
	}
}

func TestComputeFieldStatsEmpty(t *testing.T) {
	stats := ComputeFieldStats([]float64{})

	if stats.Mean != 0 || stats.Std != 0 || stats.P10 != 0 || stats.P50 != 0 || stats.P90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}
