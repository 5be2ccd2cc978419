package reg

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// WriteRegionParams serializes region parameter records as CSV, matching
// the teacher's gocsv.Marshal usage for telemetry output.
func WriteRegionParams(w io.Writer, records []RegionParams) error {
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("reg: writing region params: %w", err)
	}
	return nil
}

// ReadRegionParams parses a CSV calibration table of region parameter
// records (§4.4 "constants drawn from a per-region parameter record").
func ReadRegionParams(r io.Reader) ([]RegionParams, error) {
	var records []RegionParams
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("reg: reading region params: %w", err)
	}
	return records, nil
}
