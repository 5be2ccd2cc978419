package kernel

// SetPrecipitationSource installs the per-tick rainfall forcing HYD's
// infiltration solve reads from (§4.8 Step runs "HYD every tick"; HYD's
// own Step signature takes a precip source by cell index, but a handle
// has no rainfall model of its own — §1 leaves climate generation to a
// host). A host driving the canonical 10-year scenario (§8 S1) builds fn
// from a climate generator keyed by each cell's face-local coordinates via
// Grid(id) and AtIndex; until this is called, Step forces zero rainfall
// everywhere, matching the kernel's previous hardcoded behavior.
func SetPrecipitationSource(id uint64, fn func(index int32) float64) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	h.precipSource = fn
	return nil
}
