package main

import (
	"fmt"
	"strconv"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/eventlog"
	"github.com/dj-ccs/negentropic-kernel/kernel"
)

// runS6 exercises hash-chain tamper detection (§8 S6): build a 100-event
// log, flip one bit of event 50's timestamp, and require VerifyChain to
// report the first broken record at exactly that index — flipping a
// timestamp changes the record's canonical encoding, which changes its
// own Hash and therefore every subsequent record's PrevHash (§4.7 "any
// field change invalidates all subsequent events").
func runS6(cfg *config.Config, outDir string) error {
	const nx, ny = 8, 8
	const numEvents = 100
	const tamperIndex = 50

	id, _, err := smallScenarioGrid(cfg, nx, ny)
	if err != nil {
		return err
	}
	defer kernel.Destroy(id)

	var records []eventlog.Record
	for len(records) < numEvents {
		if _, err := kernel.Step(id, 0); err != nil {
			return fmt.Errorf("step: %w", err)
		}
		drained, err := kernel.DrainEvents(id)
		if err != nil {
			return err
		}
		records = append(records, drained...)
	}
	records = records[:numEvents]

	if err := eventlog.VerifyChain(records); err != nil {
		return fmt.Errorf("untampered chain failed to verify: %w", err)
	}

	tampered := make([]eventlog.Record, len(records))
	copy(tampered, records)
	tampered[tamperIndex].TimestampUs ^= 1

	verifyErr := eventlog.VerifyChain(tampered)
	detectedAtIndex := -1
	if verifyErr != nil {
		detectedAtIndex = firstBrokenIndex(tampered)
	}

	return writeScenarioReport(outDir, "s6_tamper_detection.csv", []string{"metric", "value"}, [][]string{
		{"tamper_index", strconv.Itoa(tamperIndex)},
		{"detected_at_index", strconv.Itoa(detectedAtIndex)},
		{"verify_error", fmt.Sprintf("%v", verifyErr)},
		{"matched", strconv.FormatBool(detectedAtIndex == tamperIndex)},
	})
}

// firstBrokenIndex re-derives which record VerifyChain's error refers to
// by re-running its own prev-hash/hash checks record by record, since
// VerifyChain reports the break as a formatted error rather than a
// structured index.
func firstBrokenIndex(records []eventlog.Record) int {
	prev := eventlog.GenesisPrevHash
	for i, r := range records {
		if r.PrevHash != prev || eventlog.ComputeHash(r) != r.Hash {
			return i
		}
		prev = r.Hash
	}
	return -1
}
