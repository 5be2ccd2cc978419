package numerics

import (
	"math"
	"sort"
)

// lutEntry is one node of an adaptively-refinable transcendental table. It
// carries its own access-count and worst-observed-error bookkeeping so the
// substrate can decide, offline from the hot path, where to insert a new
// sample.
type lutEntry struct {
	x, y        float64
	maxError    float64
	accessCount uint64
}

// TransLUT is a piecewise-linear lookup table over a periodic or bounded
// domain. Lookups never call a library transcendental; refinement (which
// measures true error against the reference function) runs only from
// Refine, a separate deterministic maintenance step the scheduler invokes
// at a controlled cadence, never from the per-tick hot path.
type TransLUT struct {
	entries  []lutEntry
	periodic bool
	period   float64
	lo, hi   float64
	ref      func(float64) float64

	refineErrThreshold    float64
	refineAccessThreshold uint64
}

// newSinLUT builds the 8192-entry sine table over [0, 2*pi) required by
// §4.1, linearly interpolated, with |error| < 1e-4 by construction (the
// sample density comfortably beats that bound; see trig_test.go P5).
func newSinLUT() *TransLUT {
	const n = 8192
	t := &TransLUT{
		periodic:              true,
		period:                2 * math.Pi,
		ref:                   math.Sin,
		refineErrThreshold:    1e-3,
		refineAccessThreshold: 4096,
	}
	t.entries = make([]lutEntry, n)
	for i := 0; i < n; i++ {
		x := float64(i) * t.period / float64(n)
		t.entries[i] = lutEntry{x: x, y: math.Sin(x)}
	}
	return t
}

// newExpLUT builds the 256-entry exp table over [-4,4] required by §4.1.
func newExpLUT() *TransLUT {
	const n = 256
	t := &TransLUT{
		periodic:              false,
		lo:                    -4,
		hi:                    4,
		ref:                   math.Exp,
		refineErrThreshold:    1e-3,
		refineAccessThreshold: 4096,
	}
	t.entries = make([]lutEntry, n)
	for i := 0; i < n; i++ {
		x := t.lo + float64(i)*(t.hi-t.lo)/float64(n-1)
		t.entries[i] = lutEntry{x: x, y: math.Exp(x)}
	}
	return t
}

// segmentFor returns the index of the entry at or before x (binary search
// over the, possibly refined, sorted entries), and bumps its access count.
func (t *TransLUT) segmentFor(x float64) int {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].x > x }) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(t.entries)-1 {
		i = len(t.entries) - 2
	}
	t.entries[i].accessCount++
	return i
}

// lerp performs the table lookup: normalize x into the table domain, locate
// the bracketing segment, and linearly interpolate.
func (t *TransLUT) lerp(x float64) float64 {
	if t.periodic {
		x = math.Mod(x, t.period)
		if x < 0 {
			x += t.period
		}
	} else {
		if x <= t.lo {
			return t.entries[0].y
		}
		if x >= t.hi {
			return t.entries[len(t.entries)-1].y
		}
	}
	i := t.segmentFor(x)
	a, b := t.entries[i], t.entries[i+1]
	span := b.x - a.x
	if span <= 0 {
		return a.y
	}
	frac := (x - a.x) / span
	return a.y + frac*(b.y-a.y)
}

// Refine performs one deterministic adaptive-refinement pass (§4.1): any
// segment whose access count exceeds the threshold is re-measured against
// the reference function at its midpoint; if the piecewise-linear
// interpolation error there exceeds the threshold, a new entry is inserted
// at the midpoint and both halves' access counts are reset. Segments are
// visited in ascending index order so replay of an identical access
// history always refines in the same order.
func (t *TransLUT) Refine() (insertions int) {
	for i := 0; i < len(t.entries)-1; i++ {
		a := t.entries[i]
		if a.accessCount <= t.refineAccessThreshold {
			continue
		}
		b := t.entries[i+1]
		mid := (a.x + b.x) / 2
		interpolated := a.y + 0.5*(b.y-a.y)
		actual := t.ref(mid)
		observedErr := math.Abs(interpolated - actual)
		if observedErr > t.entries[i].maxError {
			t.entries[i].maxError = observedErr
		}
		if observedErr <= t.refineErrThreshold {
			t.entries[i].accessCount = 0
			continue
		}
		newEntry := lutEntry{x: mid, y: actual}
		t.entries = append(t.entries, lutEntry{})
		copy(t.entries[i+2:], t.entries[i+1:])
		t.entries[i+1] = newEntry
		t.entries[i].accessCount = 0
		t.entries[i+2].accessCount = 0
		insertions++
		i++ // skip the newly inserted entry this pass
	}
	return insertions
}

// Len reports the current number of table entries, for diagnostics.
func (t *TransLUT) Len() int {
	return len(t.entries)
}
