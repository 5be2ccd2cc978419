package grid

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/se3"
)

// SnapshotMagic identifies a to_binary/reset_from_binary blob (§6).
const SnapshotMagic = "NEGSTATE"

// SnapshotSchemaVersion is the integer-encoded version (e.g. 330 for
// 0.3.3) bumped on any layout change.
const SnapshotSchemaVersion uint32 = 1

// entityPose is one row of the snapshot's pose block: a unit quaternion
// plus translation, 7 float64s.
type entityPose struct {
	Rot   quat.Number
	Trans r3.Vec
}

// Snapshot is the decoded form of a to_binary/reset_from_binary blob.
type Snapshot struct {
	SchemaVersion uint32
	TimestampMs   uint64
	ContentHash   uint64
	NumEntities   uint32
	Poses         []se3.Pose
	Scalars       [][]float64 // one slice per scalar field, each NumEntities long
}

// ToBinary encodes a Snapshot per §6: magic, schema_version, timestamp_ms,
// content_hash, data_size, num_entities, poses, num_scalar_fields, scalars.
func (s *Snapshot) ToBinary() []byte {
	const poseSize = 7 * 8 // quat (4 float64) + translation (3 float64)
	dataSize := uint32(int(s.NumEntities)*poseSize + 4 + len(s.Scalars)*int(s.NumEntities)*8)

	buf := make([]byte, 8+4+8+8+4+4+int(dataSize))
	le := binary.LittleEndian
	off := 0
	copy(buf[off:off+8], SnapshotMagic)
	off += 8
	le.PutUint32(buf[off:off+4], s.SchemaVersion)
	off += 4
	le.PutUint64(buf[off:off+8], s.TimestampMs)
	off += 8
	le.PutUint64(buf[off:off+8], s.ContentHash)
	off += 8
	le.PutUint32(buf[off:off+4], dataSize)
	off += 4
	le.PutUint32(buf[off:off+4], s.NumEntities)
	off += 4

	for _, p := range s.Poses {
		off = putFloat64(buf, off, p.Rot.Real)
		off = putFloat64(buf, off, p.Rot.Imag)
		off = putFloat64(buf, off, p.Rot.Jmag)
		off = putFloat64(buf, off, p.Rot.Kmag)
		off = putFloat64(buf, off, p.Trans.X)
		off = putFloat64(buf, off, p.Trans.Y)
		off = putFloat64(buf, off, p.Trans.Z)
	}

	le.PutUint32(buf[off:off+4], uint32(len(s.Scalars)))
	off += 4
	for _, field := range s.Scalars {
		for _, v := range field {
			off = putFloat64(buf, off, v)
		}
	}
	return buf
}

func putFloat64(buf []byte, off int, v float64) int {
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
	return off + 8
}

func getFloat64(buf []byte, off int) (float64, int) {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8])), off + 8
}

// DecodeSnapshot parses a to_binary blob, rejecting it on magic/version
// mismatch or an inconsistent data_size (§6).
func DecodeSnapshot(buf []byte) (*Snapshot, error) {
	if len(buf) < 28 {
		return nil, fmt.Errorf("grid: snapshot buffer too short: %d bytes", len(buf))
	}
	if string(buf[0:8]) != SnapshotMagic {
		return nil, fmt.Errorf("grid: bad snapshot magic %q", buf[0:8])
	}
	le := binary.LittleEndian
	off := 8
	version := le.Uint32(buf[off : off+4])
	off += 4
	if version != SnapshotSchemaVersion {
		return nil, fmt.Errorf("grid: snapshot schema version mismatch: got %d, want %d", version, SnapshotSchemaVersion)
	}
	ts := le.Uint64(buf[off : off+8])
	off += 8
	hash := le.Uint64(buf[off : off+8])
	off += 8
	dataSize := le.Uint32(buf[off : off+4])
	off += 4
	numEntities := le.Uint32(buf[off : off+4])
	off += 4

	if int(dataSize) != len(buf)-off {
		return nil, fmt.Errorf("grid: snapshot data_size mismatch: header says %d, have %d", dataSize, len(buf)-off)
	}

	poses := make([]se3.Pose, numEntities)
	for i := range poses {
		var r quat.Number
		r.Real, off = getFloat64(buf, off)
		r.Imag, off = getFloat64(buf, off)
		r.Jmag, off = getFloat64(buf, off)
		r.Kmag, off = getFloat64(buf, off)
		var t r3.Vec
		t.X, off = getFloat64(buf, off)
		t.Y, off = getFloat64(buf, off)
		t.Z, off = getFloat64(buf, off)
		poses[i] = se3.Pose{Rot: r, Trans: t}
	}

	numFields := le.Uint32(buf[off : off+4])
	off += 4
	scalars := make([][]float64, numFields)
	for f := range scalars {
		field := make([]float64, numEntities)
		for i := range field {
			field[i], off = getFloat64(buf, off)
		}
		scalars[f] = field
	}

	return &Snapshot{
		SchemaVersion: version,
		TimestampMs:   ts,
		ContentHash:   hash,
		NumEntities:   numEntities,
		Poses:         poses,
		Scalars:       scalars,
	}, nil
}
