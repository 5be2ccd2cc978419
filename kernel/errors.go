package kernel

import "github.com/dj-ccs/negentropic-kernel/numerics"

// QueryErrorFlags returns a snapshot of handle's non-fatal numeric error
// counters accumulated since creation (§4.8 "query_error_flags(handle)",
// §9 "no process-wide singletons" — each handle owns its own counters).
func QueryErrorFlags(id uint64) (numerics.ErrorCounters, error) {
	h, err := lookup(id)
	if err != nil {
		return numerics.ErrorCounters{}, err
	}
	return h.sub.Errors.Snapshot(), nil
}
