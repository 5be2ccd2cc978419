// Package exchange implements the region-exchange container file (§6):
// a fixed 64-byte header identifying a region's grid shape, RNG seed, and
// state hash, followed by its scalar fields, per-entity poses, and a
// length-prefixed event-log blob — the on-disk format a host uses to
// hand one region's full state to another process (e.g. sharding a large
// domain across workers, or archiving a region snapshot alongside its
// event history). It mirrors grid.Snapshot's binary-encoding idiom rather
// than reusing it directly, since the container additionally carries a
// platform tag, an RNG seed, and the embedded event-log blob that the
// to_binary/reset_from_binary snapshot format has no room for.
package exchange

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/se3"
)

// ContainerMagic identifies a region-exchange container (§6).
const ContainerMagic = "NEGSTATE"

// HeaderSize is the container's fixed header size in bytes (§6 "header
// (64 bytes)").
const HeaderSize = 64

// ContainerVersion is the integer-encoded container format version.
const ContainerVersion uint32 = 1

// platformTagSize is the header's platform-tag field width; a short
// fixed-width ASCII tag (e.g. "linux-64") rather than a
// length-prefixed string, so the header stays a fixed 64 bytes. Longer
// tags are truncated to this width on encode.
const platformTagSize = 8

// Header is the container's 64-byte fixed record (§6): magic, version,
// platform tag, microsecond timestamp, the RNG seed the region was
// generated under, its XXH3 state hash, grid shape, and field/entity
// counts. 4 reserved bytes pad the record to exactly 64 bytes so a
// future field can be added without an immediate version bump.
type Header struct {
	Version     uint32
	PlatformTag string // truncated/padded to platformTagSize bytes
	TimestampUs uint64
	RNGSeed     uint64
	StateHash   uint64 // XXH3 (cespare/xxhash) of the encoded body
	GridRows    uint32
	GridCols    uint32
	NumFields   uint32
	NumEntities uint32
}

// Container is the decoded form of a region-exchange file: the header
// plus its three body sections (§6 "body: scalar fields contiguously,
// then per-entity (position, quaternion), then a length-prefixed
// event-log blob").
type Container struct {
	Header     Header
	Scalars    [][]float64 // NumFields slices, each GridRows*GridCols long
	Poses      []se3.Pose  // NumEntities entries
	EventLog   []byte      // raw NDJSON bytes, verbatim (possibly gzip-compressed per §4.7)
}

// Encode serializes c into a region-exchange container file. The caller
// must have already set Header.GridRows/GridCols/NumFields/NumEntities to
// match Scalars/Poses; Encode computes and fills in Header.StateHash from
// the body's own bytes so the caller never has to keep the hash in sync
// by hand.
func (c *Container) Encode() []byte {
	body := c.encodeBody()
	c.Header.StateHash = xxhash.Sum64(body)
	return append(c.encodeHeader(), body...)
}

func (c *Container) encodeHeader() []byte {
	h := c.Header
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	off := 0
	copy(buf[off:off+8], ContainerMagic)
	off += 8
	le.PutUint32(buf[off:off+4], ContainerVersion)
	off += 4
	tag := make([]byte, platformTagSize)
	copy(tag, h.PlatformTag)
	copy(buf[off:off+platformTagSize], tag)
	off += platformTagSize
	le.PutUint64(buf[off:off+8], h.TimestampUs)
	off += 8
	le.PutUint64(buf[off:off+8], h.RNGSeed)
	off += 8
	le.PutUint64(buf[off:off+8], h.StateHash)
	off += 8
	le.PutUint32(buf[off:off+4], h.GridRows)
	off += 4
	le.PutUint32(buf[off:off+4], h.GridCols)
	off += 4
	le.PutUint32(buf[off:off+4], h.NumFields)
	off += 4
	le.PutUint32(buf[off:off+4], h.NumEntities)
	off += 4
	// remaining 4 bytes stay zero (reserved)
	return buf
}

func (c *Container) encodeBody() []byte {
	le := binary.LittleEndian
	fieldLen := int(c.Header.GridRows) * int(c.Header.GridCols)
	scalarsBytes := len(c.Scalars) * fieldLen * 4
	poseBytes := len(c.Poses) * 7 * 8
	buf := make([]byte, scalarsBytes+poseBytes+4+len(c.EventLog))

	off := 0
	for _, field := range c.Scalars {
		for _, v := range field {
			le.PutUint32(buf[off:off+4], uint32(int32(v*65536)))
			off += 4
		}
	}
	for _, p := range c.Poses {
		off = putFloat64(buf, off, p.Rot.Real)
		off = putFloat64(buf, off, p.Rot.Imag)
		off = putFloat64(buf, off, p.Rot.Jmag)
		off = putFloat64(buf, off, p.Rot.Kmag)
		off = putFloat64(buf, off, p.Trans.X)
		off = putFloat64(buf, off, p.Trans.Y)
		off = putFloat64(buf, off, p.Trans.Z)
	}
	le.PutUint32(buf[off:off+4], uint32(len(c.EventLog)))
	off += 4
	copy(buf[off:], c.EventLog)
	return buf
}

// Decode parses a region-exchange container file, rejecting it on magic
// or version mismatch (§6).
func Decode(buf []byte) (*Container, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("exchange: container too short: %d bytes, want at least %d", len(buf), HeaderSize)
	}
	if string(buf[0:8]) != ContainerMagic {
		return nil, fmt.Errorf("exchange: bad container magic %q", buf[0:8])
	}

	le := binary.LittleEndian
	off := 8
	version := le.Uint32(buf[off : off+4])
	off += 4
	if version != ContainerVersion {
		return nil, fmt.Errorf("exchange: container version mismatch: got %d, want %d", version, ContainerVersion)
	}
	tag := trimTrailingZeros(buf[off : off+platformTagSize])
	off += platformTagSize
	ts := le.Uint64(buf[off : off+8])
	off += 8
	seed := le.Uint64(buf[off : off+8])
	off += 8
	stateHash := le.Uint64(buf[off : off+8])
	off += 8
	rows := le.Uint32(buf[off : off+4])
	off += 4
	cols := le.Uint32(buf[off : off+4])
	off += 4
	numFields := le.Uint32(buf[off : off+4])
	off += 4
	numEntities := le.Uint32(buf[off : off+4])
	off += 4
	off = HeaderSize // skip reserved bytes, body starts exactly at HeaderSize

	body := buf[off:]
	if stateHash != xxhash.Sum64(body) {
		return nil, fmt.Errorf("exchange: state hash mismatch: header says %d, body hashes to %d", stateHash, xxhash.Sum64(body))
	}

	fieldLen := int(rows) * int(cols)
	scalars := make([][]float64, numFields)
	bo := 0
	for f := range scalars {
		field := make([]float64, fieldLen)
		for i := range field {
			raw := int32(le.Uint32(body[bo : bo+4]))
			field[i] = float64(raw) / 65536
			bo += 4
		}
		scalars[f] = field
	}

	poses := make([]se3.Pose, numEntities)
	for i := range poses {
		var r quat.Number
		r.Real, bo = getFloat64(body, bo)
		r.Imag, bo = getFloat64(body, bo)
		r.Jmag, bo = getFloat64(body, bo)
		r.Kmag, bo = getFloat64(body, bo)
		var t r3.Vec
		t.X, bo = getFloat64(body, bo)
		t.Y, bo = getFloat64(body, bo)
		t.Z, bo = getFloat64(body, bo)
		poses[i] = se3.Pose{Rot: r, Trans: t}
	}

	logLen := le.Uint32(body[bo : bo+4])
	bo += 4
	eventLog := make([]byte, logLen)
	copy(eventLog, body[bo:bo+int(logLen)])

	return &Container{
		Header: Header{
			Version:     version,
			PlatformTag: tag,
			TimestampUs: ts,
			RNGSeed:     seed,
			StateHash:   stateHash,
			GridRows:    rows,
			GridCols:    cols,
			NumFields:   numFields,
			NumEntities: numEntities,
		},
		Scalars:  scalars,
		Poses:    poses,
		EventLog: eventLog,
	}, nil
}

func putFloat64(buf []byte, off int, v float64) int {
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
	return off + 8
}

func getFloat64(buf []byte, off int) (float64, int) {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8])), off + 8
}

func trimTrailingZeros(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
