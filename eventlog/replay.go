package eventlog

import (
	"fmt"
	"log/slog"

	"github.com/dj-ccs/negentropic-kernel/kernelerr"
)

// Engine is the minimal surface a replayer drives. kernel.Handle satisfies
// it; this package never imports kernel, so replay stays reusable outside
// a live kernel (e.g. verifying a log offline).
type Engine interface {
	Step(dtSeconds float64) error
	StateHash() uint64
}

// VerifyChain checks that records form an unbroken hash chain starting
// from the genesis hash, and that each record's stored hash matches its
// own recomputed hash (§4.7 "any field change invalidates all subsequent
// events"). On failure the returned integrity error names the index and
// event_id of the first broken record.
func VerifyChain(records []Record) error {
	prev := GenesisPrevHash
	for i, r := range records {
		if r.PrevHash != prev {
			return kernelerr.Errorf(kernelerr.ErrIntegrity, "eventlog: record %d (event_id %d) has prev_hash %q, expected %q", i, r.EventID, r.PrevHash, prev)
		}
		want := ComputeHash(r)
		if r.Hash != want {
			return kernelerr.Errorf(kernelerr.ErrIntegrity, "eventlog: record %d (event_id %d) hash mismatch: stored %q, recomputed %q", i, r.EventID, r.Hash, want)
		}
		prev = r.Hash
	}
	return nil
}

// Replay verifies the chain, then drives eng through every simulation_step
// record, recomputing the state hash after each step and requiring it to
// match the logged one (§4.7 "the first mismatch is fatal"). Non-step
// records (interventions, parameter changes, checkpoints, milestones) are
// passed to onEvent for the caller to apply to eng's surrounding state,
// since eventlog has no notion of intervention/parameter semantics itself.
func Replay(records []Record, eng Engine, onEvent func(Record) error) error {
	if err := VerifyChain(records); err != nil {
		return err
	}

	for _, r := range records {
		if r.EventType != EventSimulationStep {
			if onEvent != nil {
				if err := onEvent(r); err != nil {
					return fmt.Errorf("eventlog: applying event_id %d (%s): %w", r.EventID, r.EventType, err)
				}
			}
			continue
		}

		dt, ok := floatField(r.Payload, "dt_seconds")
		if !ok {
			return kernelerr.Errorf(kernelerr.ErrIntegrity, "eventlog: event_id %d missing dt_seconds", r.EventID)
		}
		wantHash, ok := uintField(r.Payload, "state_hash")
		if !ok {
			return kernelerr.Errorf(kernelerr.ErrIntegrity, "eventlog: event_id %d missing state_hash", r.EventID)
		}

		if err := eng.Step(dt); err != nil {
			return fmt.Errorf("eventlog: replaying event_id %d: step failed: %w", r.EventID, err)
		}
		gotHash := eng.StateHash()
		if gotHash != wantHash {
			return kernelerr.Errorf(kernelerr.ErrIntegrity, "eventlog: state hash mismatch at event_id %d (step %v): logged %d, recomputed %d — replay is not reproducible past this point",
				r.EventID, r.Payload["step_number"], wantHash, gotHash)
		}
		slog.Debug("eventlog: replayed step", "event_id", r.EventID, "state_hash", gotHash)
	}
	return nil
}

// floatField and uintField tolerate payloads built in-process (native
// float64/uint64/int) and payloads decoded by ReadAll (whole numbers as
// uint64, or int64 when negative; other numbers as float64), since
// Record.Payload is untyped either way.
func floatField(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case uint64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func uintField(m map[string]any, key string) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case uint64:
		return t, true
	case float64:
		return uint64(t), true
	case int:
		return uint64(t), true
	default:
		return 0, false
	}
}
