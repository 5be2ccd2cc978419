package grid

// AccumulationBuffers holds the per-cell sums collected between REG calls
// (§3): theta, precipitation, and runoff sums plus a sample count. count
// resets to 0 whenever REG is advanced — callers must call Reset after
// draining.
type AccumulationBuffers struct {
	ThetaSum       []float64
	PrecipSum      []float64
	RunoffSum      []float64
	Count          []int
}

// NewAccumulationBuffers allocates buffers sized for n cells.
func NewAccumulationBuffers(n int) *AccumulationBuffers {
	return &AccumulationBuffers{
		ThetaSum:  make([]float64, n),
		PrecipSum: make([]float64, n),
		RunoffSum: make([]float64, n),
		Count:     make([]int, n),
	}
}

// Accumulate adds one HYD-tick sample for cell index.
func (a *AccumulationBuffers) Accumulate(index int32, theta, precip, runoff float64) {
	a.ThetaSum[index] += theta
	a.PrecipSum[index] += precip
	a.RunoffSum[index] += runoff
	a.Count[index]++
}

// Mean returns the per-sample averages accumulated for index, or zeros if
// no samples were recorded.
func (a *AccumulationBuffers) Mean(index int32) (theta, precip, runoff float64) {
	n := a.Count[index]
	if n == 0 {
		return 0, 0, 0
	}
	f := float64(n)
	return a.ThetaSum[index] / f, a.PrecipSum[index] / f, a.RunoffSum[index] / f
}

// Reset zeroes every sum and count, per the §3 invariant that count resets
// to 0 whenever REG is advanced.
func (a *AccumulationBuffers) Reset() {
	for i := range a.Count {
		a.ThetaSum[i] = 0
		a.PrecipSum[i] = 0
		a.RunoffSum[i] = 0
		a.Count[i] = 0
	}
}
