package numerics

// ErrorCounters is the engine-owned record of numerical fault events (§7,
// §9). It replaces the teacher's process-wide globals with a plain struct
// the caller owns and snapshots; nothing here is a package-level variable.
type ErrorCounters struct {
	Overflow             uint64
	DivByZero             uint64
	PicardNonConvergence  uint64
	NewtonFallback        uint64
	BarrierExhaustion     uint64
	Total                 uint64
}

// Snapshot returns a copy of the current counters, safe to hand to a host
// via query_error_flags without exposing the live struct.
func (e ErrorCounters) Snapshot() ErrorCounters {
	return e
}

// Any reports whether any numerical fault has been recorded.
func (e ErrorCounters) Any() bool {
	return e.Total > 0
}
