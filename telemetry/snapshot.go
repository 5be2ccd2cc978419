package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CheckpointIndexVersion is incremented when the sidecar format changes.
const CheckpointIndexVersion = 1

// CheckpointIndex is a lightweight JSON sidecar pointing at a checkpoint's
// binary state blob (§4.7 to_binary, §4.8), rather than re-encoding the
// state itself: the blob already has a canonical, versioned binary format
// (grid.Snapshot.ToBinary), so the sidecar only needs to record where it
// lives and how to verify it.
type CheckpointIndex struct {
	Version int `json:"version"`

	Tick        uint64 `json:"tick"`
	TimestampMs int64  `json:"timestamp_ms"`

	// MilestoneName is set when this checkpoint was taken because a
	// MilestoneDetector fired, otherwise empty (a routine interval
	// checkpoint).
	MilestoneName string `json:"milestone_name,omitempty"`

	BinaryPath string `json:"binary_path"`
	SHA256     string `json:"sha256"`
	StateHash  uint64 `json:"state_hash"`
}

// HashBinary returns the hex-encoded SHA-256 digest of a to_binary blob,
// suitable for CheckpointIndex.SHA256 and eventlog.CheckpointPayload's
// snapshotSHA256 argument.
func HashBinary(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// SaveCheckpointIndex writes idx's JSON sidecar to dir and returns its
// path. The binary blob itself (idx.BinaryPath) is expected to already
// have been written by the caller via kernel.ToBinary.
func SaveCheckpointIndex(idx *CheckpointIndex, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}

	name := fmt.Sprintf("checkpoint_%d", idx.Tick)
	if idx.MilestoneName != "" {
		name = fmt.Sprintf("checkpoint_%d_%s", idx.Tick, idx.MilestoneName)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint index: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write checkpoint index: %w", err)
	}

	return path, nil
}

// LoadCheckpointIndex reads a checkpoint sidecar from disk.
func LoadCheckpointIndex(path string) (*CheckpointIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint index: %w", err)
	}

	var idx CheckpointIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint index: %w", err)
	}

	return &idx, nil
}
