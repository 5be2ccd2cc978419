package kernel

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

// scalarFieldOrder is the fixed column order a snapshot's Scalars block
// follows, matching the state buffer's declared field slots (§6).
var scalarFieldOrder = []func(c *grid.Cell) float64{
	func(c *grid.Cell) float64 { return c.V },
	func(c *grid.Cell) float64 { return c.SOM },
	func(c *grid.Cell) float64 { return c.Theta[0] },
	func(c *grid.Cell) float64 { return c.HSurface },
	func(c *grid.Cell) float64 { return c.WindU },
	func(c *grid.Cell) float64 { return c.Temperature },
	func(c *grid.Cell) float64 { return c.Torsion },
	func(c *grid.Cell) float64 { return c.CloudDensity },
	func(c *grid.Cell) float64 { return c.LastPrecip },
}

// toSnapshot walks every grid slot in linear-index order and builds the
// Snapshot a to_binary/state_hash call encodes. Cells are stationary soil
// columns with no physical spin, so each one's pose carries the identity
// rotation and a translation derived from its cubed-sphere face-local
// coordinates (§4.2 FaceLocalToECEF) — the pose block exists for forward
// compatibility with hosts that render cell centers directly in ECEF
// space, not because cells rotate.
func (h *Handle) toSnapshot() *grid.Snapshot {
	n := h.cfg.Derived.CellCount
	poses := make([]se3.Pose, n)
	scalars := make([][]float64, len(scalarFieldOrder))
	for i := range scalars {
		scalars[i] = make([]float64, n)
	}

	for z := 0; z < h.grid.Nz; z++ {
		for y := 0; y < h.grid.Ny; y++ {
			for x := 0; x < h.grid.Nx; x++ {
				idx := h.grid.Index(x, y, z)
				if int(idx) >= n {
					continue
				}
				c := h.grid.At(x, y, z)
				if c == nil || !c.IsActive {
					poses[idx] = se3.Identity()
					continue
				}
				ecef := se3.FaceLocalToECEF(c.Face, r3.Vec{X: c.U, Y: c.Vc, Z: c.Z})
				poses[idx] = se3.Pose{Rot: quat.Number{Real: 1}, Trans: ecef}
				for f, field := range scalarFieldOrder {
					scalars[f][idx] = field(c)
				}
			}
		}
	}

	snap := &grid.Snapshot{
		SchemaVersion: grid.SnapshotSchemaVersion,
		TimestampMs:   wallClockMicros() / 1000,
		NumEntities:   uint32(n),
		Poses:         poses,
		Scalars:       scalars,
	}
	snap.ContentHash = xxhash.Sum64(snap.ToBinary())
	return snap
}

// computeStateHash returns the XXH3 hash (§4.7 "state_hash") of the
// handle's current canonical binary state: the to_binary encoding with its
// wall-clock timestamp and content-hash fields zeroed, so the hash depends
// only on simulation state. A host reproduces it from a saved to_binary
// blob by zeroing those two header fields before hashing.
func (h *Handle) computeStateHash() uint64 {
	snap := h.toSnapshot()
	snap.TimestampMs = 0
	snap.ContentHash = 0
	return xxhash.Sum64(snap.ToBinary())
}

// StateHash returns the hash of handle's current published state (§4.8).
func StateHash(id uint64) (uint64, error) {
	h, err := lookup(id)
	if err != nil {
		return 0, err
	}
	return h.double.Hash(), nil
}

// GetBinarySize reports the byte size a ToBinary call against handle will
// produce, so a host can size its buffer before calling it (§4.8 failure
// condition "buffer too small").
func GetBinarySize(id uint64) (int, error) {
	h, err := lookup(id)
	if err != nil {
		return 0, err
	}
	return len(h.toSnapshot().ToBinary()), nil
}

// ToBinary encodes handle's current state into buffer, returning the
// number of bytes written (§4.8 "to_binary(handle) -> bytes").
func ToBinary(id uint64, buffer []byte) (int, error) {
	h, err := lookup(id)
	if err != nil {
		return 0, err
	}
	encoded := h.toSnapshot().ToBinary()
	if len(buffer) < len(encoded) {
		return 0, kernelerr.Errorf(kernelerr.ErrInterface, "kernel: to_binary buffer too small: need %d bytes, have %d", len(encoded), len(buffer))
	}
	copy(buffer, encoded)
	return len(encoded), nil
}

// ResetFromBinary replaces handle's state with the snapshot encoded in
// buffer (§4.8 "reset_from_binary(handle, bytes)"). A schema-version
// mismatch or corrupt blob is reported rather than applied partially.
func ResetFromBinary(id uint64, buffer []byte) error {
	h, err := lookup(id)
	if err != nil {
		return err
	}
	snap, err := grid.DecodeSnapshot(buffer)
	if err != nil {
		return kernelerr.Wrap(kernelerr.ErrIntegrity, fmt.Errorf("kernel: reset_from_binary: %w", err))
	}
	if int(snap.NumEntities) != h.cfg.Derived.CellCount {
		return kernelerr.Errorf(kernelerr.ErrIntegrity, "kernel: reset_from_binary: entity count %d does not match handle's %d", snap.NumEntities, h.cfg.Derived.CellCount)
	}

	for z := 0; z < h.grid.Nz; z++ {
		for y := 0; y < h.grid.Ny; y++ {
			for x := 0; x < h.grid.Nx; x++ {
				idx := h.grid.Index(x, y, z)
				if int(idx) >= int(snap.NumEntities) {
					continue
				}
				c := h.grid.At(x, y, z)
				if c == nil {
					continue
				}
				c.V = snap.Scalars[0][idx]
				c.SOM = snap.Scalars[1][idx]
				c.Theta[0] = snap.Scalars[2][idx]
				c.HSurface = snap.Scalars[3][idx]
				c.WindU = snap.Scalars[4][idx]
				c.Temperature = snap.Scalars[5][idx]
				c.Torsion = snap.Scalars[6][idx]
				c.CloudDensity = snap.Scalars[7][idx]
				c.LastPrecip = snap.Scalars[8][idx]
			}
		}
	}

	h.double.Writable().WriteFromCells(h.grid)
	h.double.Publish(h.double.Tick(), h.computeStateHash())
	return nil
}
