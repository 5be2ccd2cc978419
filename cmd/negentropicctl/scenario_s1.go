package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/kernel"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/telemetry"
	"github.com/dj-ccs/negentropic-kernel/terrain"
)

// Scenario S1 seeds (§8): the exact constants the canonical 10-year run
// is specified under, kept as named values rather than inline literals so
// the intervention timeline below can refer to them.
const (
	s1Nx, s1Ny         = 100, 100
	s1CellSpacingM     = 100.0
	s1ElevationSeed    = 0x4C4F455353
	s1PatchSeed        = 0x56454745
	s1ClimateSeed      = 0x434C494D
	s1ClimateMeanMM    = 450.0
	s1SOMKgM3          = 8.0
	s1VegetationBase   = 0.15
	s1VegetationPatch  = 0.025
	s1SoilKey          = "rangeland_loam"
	s1Years            = 10
	s1DaysPerYear       = 365
)

func s1SoilParams() numerics.SoilParams {
	return numerics.SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
}

// s1Intervention is one entry of the scripted timeline (§8 S1
// "Interventions applied per the scripted timeline in year-1 through
// year-7"): a kind applied over a rectangular sub-region of the grid, on
// the first simulated day of the given year.
type s1Intervention struct {
	year             int
	kind             string
	x0, y0, x1, y1   int // half-open region [x0,x1) x [y0,y1)
}

// s1Timeline is the scripted intervention schedule; quadrants follow the
// grid's (x,y) layout with x the SW-SE axis and y the SW-NW axis, x0=y0=0
// at the SW corner.
func s1Timeline() []s1Intervention {
	half := s1Nx / 2
	return []s1Intervention{
		{year: 1, kind: "gravel_mulch", x0: 0, y0: 0, x1: half, y1: half},        // SW quadrant
		{year: 2, kind: "swale", x0: 0, y0: half, x1: half, y1: s1Ny},            // NW quadrant
		{year: 4, kind: "check_dam", x0: half, y0: 0, x1: s1Nx, y1: half},        // gully catchment, SE quadrant
		{year: 5, kind: "terracing", x0: half, y0: half, x1: s1Nx, y1: s1Ny},     // eastern/NE slopes
		{year: 7, kind: "tree_planting", x0: 0, y0: 0, x1: s1Nx, y1: s1Ny},       // degraded patches, whole domain
	}
}

// degradedPatch reports whether a cell is a tree-planting candidate (§8
// S1 "tree planting on degraded patches"): low vegetation cover relative
// to the scenario's own baseline.
func degradedPatch(c *grid.Cell) bool {
	return c.V < s1VegetationBase
}

func runS1(cfg *config.Config, outDir string) error {
	cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz = s1Nx, s1Ny, 1
	cfg.RecomputeDerived()

	id, err := kernel.Create(*cfg)
	if err != nil {
		return fmt.Errorf("create handle: %w", err)
	}
	defer kernel.Destroy(id)

	g, err := kernel.Grid(id)
	if err != nil {
		return err
	}

	elev := terrain.NewElevationGenerator(s1ElevationSeed, terrain.DefaultElevationFBM(), 500, 50)
	patch := terrain.NewPatchGenerator(s1PatchSeed, terrain.DefaultElevationFBM())
	climate := terrain.NewClimateGenerator(s1ClimateSeed, terrain.DefaultClimateFBM(), s1ClimateMeanMM, 0.1)

	ic := terrain.InitialConditions{
		Theta:           [grid.SoilLayers]float64{0.08, 0.12, 0.15, 0.20},
		SOMKgM3:         s1SOMKgM3,
		VegetationBase:  s1VegetationBase,
		VegetationPatch: s1VegetationPatch,
		Soil:            s1SoilParams(),
		SoilKey:         s1SoilKey,
		CellSpacingM:    s1CellSpacingM,
	}
	terrain.SeedFlatDomain(g, s1Nx, s1Ny, elev, patch, ic)

	currentDay := 0
	if err := kernel.SetPrecipitationSource(id, func(index int32) float64 {
		x := int(index) % s1Nx
		y := int(index) / s1Nx
		u := (float64(x) + 0.5) / s1Nx
		v := (float64(y) + 0.5) / s1Ny
		return climate.DailyRateMPerS(u, v, currentDay%365)
	}); err != nil {
		return err
	}

	out, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		return fmt.Errorf("output manager: %w", err)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	eventsPath := filepath.Join(outDir, "events.ndjson")
	eventWriter, err := eventlog.OpenWriter(eventsPath, false)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventWriter.Close()

	hashFile, err := os.Create(filepath.Join(outDir, "daily_state_hash.csv"))
	if err != nil {
		return fmt.Errorf("create state hash log: %w", err)
	}
	defer hashFile.Close()
	hashWriter := csv.NewWriter(hashFile)
	defer hashWriter.Flush()
	hashWriter.Write([]string{"day", "tick", "state_hash"})

	collector := telemetry.NewCollector(86400, cfg.DT)
	milestones := telemetry.NewMilestoneDetector(s1Years * s1DaysPerYear)

	ticksPerDay := int(86400.0 / cfg.DT)
	if ticksPerDay < 1 {
		ticksPerDay = 1
	}
	totalDays := s1Years * s1DaysPerYear

	timeline := s1Timeline()
	nextEvent := 0

	drainAndWrite := func() error {
		records, err := kernel.DrainEvents(id)
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := eventWriter.Append(r); err != nil {
				return err
			}
		}
		return nil
	}

	for day := 0; day < totalDays; day++ {
		currentDay = day
		year := day/s1DaysPerYear + 1

		for nextEvent < len(timeline) && timeline[nextEvent].year == year && day%s1DaysPerYear == 0 {
			ev := timeline[nextEvent]
			if ev.kind == "tree_planting" {
				if err := applyToDegradedPatches(id, g, ev); err != nil {
					return err
				}
			} else if err := applyToRegion(id, ev); err != nil {
				return err
			}
			nextEvent++
		}

		for t := 0; t < ticksPerDay; t++ {
			if _, err := kernel.Step(id, 0); err != nil {
				return fmt.Errorf("step (day %d): %w", day, err)
			}
		}

		errs, err := kernel.QueryErrorFlags(id)
		if err != nil {
			return err
		}
		stats := collector.Flush(uint64(day+1)*uint64(ticksPerDay), g, errs)
		if err := out.WriteTelemetry(stats); err != nil {
			return err
		}
		for _, m := range milestones.Check(stats) {
			if err := out.WriteMilestone(m); err != nil {
				return err
			}
			if err := kernel.RecordMilestone(id, m.Name, m.Value, m.Tick); err != nil {
				return err
			}
		}

		hash, err := kernel.StateHash(id)
		if err != nil {
			return err
		}
		hashWriter.Write([]string{strconv.Itoa(day), strconv.FormatUint(stats.WindowEndTick, 10), strconv.FormatUint(hash, 10)})

		if day%s1DaysPerYear == s1DaysPerYear-1 {
			if err := checkpointRun(id, outDir, stats.WindowEndTick); err != nil {
				return err
			}
		}

		if err := drainAndWrite(); err != nil {
			return err
		}
	}

	hashWriter.Flush()
	return hashWriter.Error()
}

func applyToRegion(id uint64, ev s1Intervention) error {
	for y := ev.y0; y < ev.y1; y++ {
		for x := ev.x0; x < ev.x1; x++ {
			if err := kernel.PlaceIntervention(id, ev.kind, x, y, 0, nil); err != nil {
				return fmt.Errorf("intervention %s at (%d,%d): %w", ev.kind, x, y, err)
			}
		}
	}
	return nil
}

func applyToDegradedPatches(id uint64, g *grid.Grid, ev s1Intervention) error {
	var targets [][2]int
	g.EachActive(func(idx int32, c *grid.Cell) {
		x, y := int(idx)%s1Nx, int(idx)/s1Nx
		if x < ev.x0 || x >= ev.x1 || y < ev.y0 || y >= ev.y1 {
			return
		}
		if degradedPatch(c) {
			targets = append(targets, [2]int{x, y})
		}
	})
	for _, xy := range targets {
		if err := kernel.PlaceIntervention(id, ev.kind, xy[0], xy[1], 0, nil); err != nil {
			return fmt.Errorf("intervention %s at (%d,%d): %w", ev.kind, xy[0], xy[1], err)
		}
	}
	return nil
}

func checkpointRun(id uint64, outDir string, tick uint64) error {
	size, err := kernel.GetBinarySize(id)
	if err != nil {
		return err
	}
	buf := make([]byte, size)
	if _, err := kernel.ToBinary(id, buf); err != nil {
		return err
	}

	checkpointDir := filepath.Join(outDir, "checkpoints")
	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	binaryPath := filepath.Join(checkpointDir, fmt.Sprintf("checkpoint_%d.bin", tick))
	if err := os.WriteFile(binaryPath, buf, 0644); err != nil {
		return fmt.Errorf("write checkpoint blob: %w", err)
	}

	sha := telemetry.HashBinary(buf)
	stateHash, err := kernel.StateHash(id)
	if err != nil {
		return err
	}
	idx := &telemetry.CheckpointIndex{
		Version:    telemetry.CheckpointIndexVersion,
		Tick:       tick,
		BinaryPath: binaryPath,
		SHA256:     sha,
		StateHash:  stateHash,
	}
	if _, err := telemetry.SaveCheckpointIndex(idx, checkpointDir); err != nil {
		return err
	}
	return kernel.RecordCheckpoint(id, tick, binaryPath, sha)
}
