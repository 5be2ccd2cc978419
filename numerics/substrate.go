package numerics

// Substrate bundles every piece of per-engine deterministic machinery: the
// transcendental LUTs, the reciprocal LUT, the PRNG, and the error-counter
// record. Exactly one Substrate is created per kernel handle at
// construction time (§9 "lift all allocations to engine construction");
// there is no package-level singleton.
type Substrate struct {
	sinLUT   *TransLUT
	expLUT   *TransLUT
	recipLUT *ReciprocalLUT

	RNG    *RNG
	Errors ErrorCounters

	soilLUTs map[string]*VanGenuchtenLUT
}

// NewSubstrate builds a fresh substrate seeded with rngSeed. LUT
// construction happens once, here, in float64, and is never repeated
// during stepping except for the deterministic adaptive-refinement passes
// driven explicitly by the scheduler.
func NewSubstrate(rngSeed uint64) *Substrate {
	return &Substrate{
		sinLUT:   newSinLUT(),
		expLUT:   newExpLUT(),
		recipLUT: newReciprocalLUT(),
		RNG:      NewRNG(rngSeed),
		soilLUTs: make(map[string]*VanGenuchtenLUT),
	}
}

// SoilLUT returns the Van-Genuchten LUT for the given soil key, building
// and caching it on first use. Building happens off the per-tick hot path
// (once per distinct soil type, not once per cell), matching the
// "computed once" requirement in §4.1.
func (s *Substrate) SoilLUT(key string, params SoilParams) *VanGenuchtenLUT {
	if lut, ok := s.soilLUTs[key]; ok {
		return lut
	}
	lut := NewVanGenuchtenLUT(params)
	s.soilLUTs[key] = lut
	return lut
}

// InvalidateSoilLUT drops a cached table, forcing a rebuild on next access.
// Used by the gravel-mulch intervention (§4.3), which multiplies K_sat by
// 6.0 for one cell and therefore needs a distinct, rebuilt table.
func (s *Substrate) InvalidateSoilLUT(key string) {
	delete(s.soilLUTs, key)
}

// ForWorker returns a shallow clone sharing this substrate's LUTs and RNG
// (read-only for the duration of a data-parallel tile pass, per §5 "these
// stages have no inter-cell dependencies") but with a fresh, private
// ErrorCounters so concurrent workers never race on the shared counters.
// Callers must fold each worker's Errors back with MergeErrors once the
// parallel region has joined, and must not call SoilLUT with a previously
// unseen key from within a worker (LUTs are built serially beforehand).
func (s *Substrate) ForWorker() *Substrate {
	clone := *s
	clone.Errors = ErrorCounters{}
	return &clone
}

// MergeErrors folds a worker clone's error counts back into s. Must be
// called only after the worker has finished (i.e. after its goroutine has
// joined), never concurrently with other callers.
func (s *Substrate) MergeErrors(other ErrorCounters) {
	s.Errors.Overflow += other.Overflow
	s.Errors.DivByZero += other.DivByZero
	s.Errors.PicardNonConvergence += other.PicardNonConvergence
	s.Errors.NewtonFallback += other.NewtonFallback
	s.Errors.BarrierExhaustion += other.BarrierExhaustion
	s.Errors.Total += other.Total
}
