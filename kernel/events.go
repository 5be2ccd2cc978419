package kernel

import "github.com/dj-ccs/negentropic-kernel/eventlog"

// DrainEvents returns every record appended to handle's chain since the
// last DrainEvents call (or since create()), clearing the buffer. A host
// wanting a durable NDJSON log (§4.7) pulls records this way and hands
// them to an eventlog.Writer itself — the kernel never opens a file on
// its own (§1 "external collaborators").
func DrainEvents(id uint64) ([]eventlog.Record, error) {
	h, err := lookup(id)
	if err != nil {
		return nil, err
	}
	records := h.pending
	h.pending = nil
	return records, nil
}

// RecordCheckpoint appends a checkpoint event to handle's chain (§4.7
// "checkpoint"), for a host that has just written a binary snapshot via
// to_binary and wants the write reflected in the event log. stepNumber is
// normally the handle's current tick.
func RecordCheckpoint(id uint64, stepNumber uint64, snapshotRef, snapshotSHA256 string) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	h.append(eventlog.EventCheckpoint, eventlog.CheckpointPayload(stepNumber, snapshotRef, snapshotSHA256))
	return nil
}

// RecordMilestone appends a milestone event to handle's chain (§C
// "surfaced as additional event-log entries of kind milestone"), for a
// host driving telemetry.MilestoneDetector against this handle's window
// stats. Taking the three scalar fields directly, rather than a
// telemetry.Milestone value, keeps kernel's dependency graph
// one-directional (telemetry depends on kernel's sibling packages, not
// the other way around).
func RecordMilestone(id uint64, name string, value float64, tick uint64) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	h.append(eventlog.EventMilestone, eventlog.MilestonePayload(name, value, tick))
	return nil
}
