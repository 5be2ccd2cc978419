package main

import (
	"fmt"
	"strconv"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/kernel"
	"github.com/dj-ccs/negentropic-kernel/numerics"
)

// s5InterventionKinds is the rotation a deterministic sequence of 10
// scripted interventions draws from (§8 S5): every kind in §4.3's set
// gets exercised across the run, in RNG-selected order and location.
// scriptedIntervention is one entry of S5's randomly drawn intervention
// schedule, keyed by the step it fires on.
type scriptedIntervention struct {
	kind string
	x, y int
}

var s5InterventionKinds = []string{
	kernel.InterventionGravelMulch,
	kernel.InterventionSwale,
	kernel.InterventionCheckDam,
	kernel.InterventionTerracing,
	kernel.InterventionTreePlanting,
}

// runS5 exercises replay determinism (§8 S5): drive a handle through 1000
// steps with 10 randomly placed interventions, drain its event log, then
// replay that log from scratch against a second handle and require the
// final state hash to match exactly.
func runS5(cfg *config.Config, outDir string) error {
	const nx, ny = 16, 16
	const totalSteps = 1000
	const numInterventions = 10

	id, _, err := smallScenarioGrid(cfg, nx, ny)
	if err != nil {
		return err
	}
	defer kernel.Destroy(id)

	rng := numerics.NewRNG(cfg.RNGSeed)
	interventionStep := make(map[int]scriptedIntervention, numInterventions)
	for i := 0; i < numInterventions; i++ {
		step := int(rng.Float64() * totalSteps)
		interventionStep[step] = scriptedIntervention{
			kind: s5InterventionKinds[i%len(s5InterventionKinds)],
			x:    int(rng.Float64() * nx),
			y:    int(rng.Float64() * ny),
		}
	}

	var allRecords []eventlog.Record
	for step := 0; step < totalSteps; step++ {
		if ev, ok := interventionStep[step]; ok {
			if err := kernel.PlaceIntervention(id, ev.kind, ev.x, ev.y, 0, nil); err != nil {
				return fmt.Errorf("place intervention at step %d: %w", step, err)
			}
		}
		if _, err := kernel.Step(id, 0); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		records, err := kernel.DrainEvents(id)
		if err != nil {
			return err
		}
		allRecords = append(allRecords, records...)
	}

	originalHash, err := kernel.StateHash(id)
	if err != nil {
		return err
	}

	replayID, _, err := smallScenarioGrid(cfg, nx, ny)
	if err != nil {
		return err
	}
	defer kernel.Destroy(replayID)

	engine := &handleReplayEngine{id: replayID}
	onEvent := func(r eventlog.Record) error {
		return applyReplayEvent(replayID, r)
	}
	replayErr := eventlog.Replay(allRecords, engine, onEvent)

	replayHash, err := kernel.StateHash(replayID)
	if err != nil {
		return err
	}

	matched := replayErr == nil && replayHash == originalHash
	return writeScenarioReport(outDir, "s5_replay_determinism.csv", []string{"metric", "value"}, [][]string{
		{"original_state_hash", strconv.FormatUint(originalHash, 10)},
		{"replayed_state_hash", strconv.FormatUint(replayHash, 10)},
		{"replay_error", fmt.Sprintf("%v", replayErr)},
		{"matched", strconv.FormatBool(matched)},
	})
}

// handleReplayEngine adapts a kernel handle to eventlog.Engine, the
// minimal Step/StateHash surface Replay drives (§4.7): eventlog has no
// dependency on kernel, so this adapter lives on the kernel-importing
// side instead.
type handleReplayEngine struct {
	id uint64
}

func (e *handleReplayEngine) Step(dtSeconds float64) error {
	_, err := kernel.Step(e.id, dtSeconds)
	return err
}

func (e *handleReplayEngine) StateHash() uint64 {
	h, _ := kernel.StateHash(e.id)
	return h
}

// applyReplayEvent re-applies a non-simulation_step record's side effect
// to the replay handle (§4.7 "the replayer applies place_intervention/
// remove_intervention/change_parameter directly"); simulation_step,
// checkpoint, and milestone records carry no state of their own to
// re-apply here since Replay already steps the engine and milestones are
// derived, not causal.
func applyReplayEvent(id uint64, r eventlog.Record) error {
	switch r.EventType {
	case eventlog.EventPlaceIntervention:
		kind, _ := r.Payload["kind"].(string)
		x := intField(r.Payload, "x")
		y := intField(r.Payload, "y")
		z := intField(r.Payload, "z")
		return kernel.PlaceIntervention(id, kind, x, y, z, nil)
	case eventlog.EventRemoveIntervention:
		x := intField(r.Payload, "x")
		y := intField(r.Payload, "y")
		z := intField(r.Payload, "z")
		return kernel.RemoveIntervention(id, x, y, z)
	default:
		return nil
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
