package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a simulation step (§4.8 Step), matching the cascade's
// internal ordering (scheduler.Cascade.Advance followed by the torsion
// closure and the handle's snapshot/event-log bookkeeping).
const (
	PhaseHYD        = "hyd"
	PhaseREG        = "reg"
	PhaseTorsion    = "torsion"
	PhaseScheduling = "scheduling"
	PhaseSnapshot   = "snapshot"
	PhaseEventLog   = "event_log"
)

// IterationCounts carries the nonlinear-solver iteration counts observed
// during a single tick (§C "Picard/Newton iteration counts, exposed
// alongside query_error_flags"): Picard fixed-point sweeps in HYD's
// infiltration solve, and Newton steps in the Clebsch torsion closure's
// implicit midpoint solve.
type IterationCounts struct {
	PicardIterations int
	NewtonIterations int
}

// PerfSample holds timing and iteration data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
	Iterations   IterationCounts
}

// PerfCollector tracks performance metrics over a rolling window of ticks
// (§C perf/telemetry collector).
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	currentIters  IterationCounts
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.currentIters = IterationCounts{}
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// RecordIterations accumulates the solver iteration counts observed during
// the current tick, e.g. the Iterations field of integrators.ClebschStep's
// StepResult (hyd.Step returns no iteration count).
func (p *PerfCollector) RecordIterations(picard, newton int) {
	p.currentIters.PicardIterations += picard
	p.currentIters.NewtonIterations += newton
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
		Iterations:   p.currentIters,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics over the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	TotalPicardIterations int
	TotalNewtonIterations int
	AvgPicardPerTick      float64
	AvgNewtonPerTick      float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)
	var totalPicard, totalNewton int

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
		totalPicard += s.Iterations.PicardIterations
		totalNewton += s.Iterations.NewtonIterations
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	n := float64(p.sampleCount)

	return PerfStats{
		AvgTickDuration:       avgTick,
		MinTickDuration:       minTick,
		MaxTickDuration:       maxTick,
		PhaseAvg:              phaseAvg,
		PhasePct:              phasePct,
		TicksPerSecond:        ticksPerSec,
		TotalPicardIterations: totalPicard,
		TotalNewtonIterations: totalNewton,
		AvgPicardPerTick:      float64(totalPicard) / n,
		AvgNewtonPerTick:      float64(totalNewton) / n,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
		"avg_picard", s.AvgPicardPerTick,
		"avg_newton", s.AvgNewtonPerTick,
	}

	phases := []string{PhaseHYD, PhaseREG, PhaseTorsion, PhaseScheduling, PhaseSnapshot, PhaseEventLog}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("avg_picard", s.AvgPicardPerTick),
		slog.Float64("avg_newton", s.AvgNewtonPerTick),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd        uint64  `csv:"window_end"`
	AvgTickUS        int64   `csv:"avg_tick_us"`
	MinTickUS        int64   `csv:"min_tick_us"`
	MaxTickUS        int64   `csv:"max_tick_us"`
	TicksPerSec      float64 `csv:"ticks_per_sec"`
	HYDPct           float64 `csv:"hyd_pct"`
	REGPct           float64 `csv:"reg_pct"`
	TorsionPct       float64 `csv:"torsion_pct"`
	SchedulingPct    float64 `csv:"scheduling_pct"`
	SnapshotPct      float64 `csv:"snapshot_pct"`
	EventLogPct      float64 `csv:"event_log_pct"`
	AvgPicardPerTick float64 `csv:"avg_picard_per_tick"`
	AvgNewtonPerTick float64 `csv:"avg_newton_per_tick"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:        windowEnd,
		AvgTickUS:        s.AvgTickDuration.Microseconds(),
		MinTickUS:        s.MinTickDuration.Microseconds(),
		MaxTickUS:        s.MaxTickDuration.Microseconds(),
		TicksPerSec:      s.TicksPerSecond,
		HYDPct:           s.PhasePct[PhaseHYD],
		REGPct:           s.PhasePct[PhaseREG],
		TorsionPct:       s.PhasePct[PhaseTorsion],
		SchedulingPct:    s.PhasePct[PhaseScheduling],
		SnapshotPct:      s.PhasePct[PhaseSnapshot],
		EventLogPct:      s.PhasePct[PhaseEventLog],
		AvgPicardPerTick: s.AvgPicardPerTick,
		AvgNewtonPerTick: s.AvgNewtonPerTick,
	}
}
