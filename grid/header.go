package grid

import (
	"encoding/binary"
	"fmt"
)

// HeaderMagic identifies the shared-memory region as a negentropic kernel
// state block (§3 SharedStateHeader).
const HeaderMagic uint64 = 0x4E4547454E544F50 // "NEGENTOP"

// HeaderSize is the fixed, invariant size of SharedStateHeader in bytes.
const HeaderSize = 128

// Field offset slots, in the order the header's ten u32 offsets are
// written (§3).
const (
	FieldVegetation = iota
	FieldSOM
	FieldTheta
	FieldSurfaceWater
	FieldWindVelocity
	FieldTemperature
	FieldTorsion
	FieldInterventions
	FieldCloudDensity
	FieldPrecipitation
	numFields
)

// SharedStateHeader is the 128-byte little-endian header preceding the
// two StateBuffer blocks in the shared-memory contract (§3, §5).
type SharedStateHeader struct {
	Magic            uint64
	SchemaVersion    uint32
	HeaderSizeField  uint32
	TimestampMs      uint64
	SimulationTick   uint64
	StateHash        uint64
	ActiveBufferIdx  uint32
	ErrorFlags       uint32
	GridNx           uint32
	GridNy           uint32
	GridNz           uint32
	NumEntities      uint32
	FieldOffsets     [numFields]uint32
	// Reserved occupies the remaining 24 bytes, always zeroed on encode.
}

// NewSharedStateHeader returns a header with the fixed fields populated
// and schema version 1 (bumped only by a future breaking layout change).
func NewSharedStateHeader(nx, ny, nz, numEntities uint32) SharedStateHeader {
	return SharedStateHeader{
		Magic:           HeaderMagic,
		SchemaVersion:   1,
		HeaderSizeField: HeaderSize,
		GridNx:          nx,
		GridNy:          ny,
		GridNz:          nz,
		NumEntities:     numEntities,
	}
}

// Encode writes the header into a HeaderSize-byte little-endian buffer.
func (h *SharedStateHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], h.Magic)
	le.PutUint32(buf[8:12], h.SchemaVersion)
	le.PutUint32(buf[12:16], h.HeaderSizeField)
	le.PutUint64(buf[16:24], h.TimestampMs)
	le.PutUint64(buf[24:32], h.SimulationTick)
	le.PutUint64(buf[32:40], h.StateHash)
	le.PutUint32(buf[40:44], h.ActiveBufferIdx)
	le.PutUint32(buf[44:48], h.ErrorFlags)
	le.PutUint32(buf[48:52], h.GridNx)
	le.PutUint32(buf[52:56], h.GridNy)
	le.PutUint32(buf[56:60], h.GridNz)
	le.PutUint32(buf[60:64], h.NumEntities)
	off := 64
	for i := 0; i < numFields; i++ {
		le.PutUint32(buf[off:off+4], h.FieldOffsets[i])
		off += 4
	}
	// buf[104:128] stays zeroed: the 24 reserved bytes.
	return buf
}

// DecodeHeader parses a HeaderSize-byte buffer into a SharedStateHeader,
// validating the magic and fixed header size per the §3 invariant.
func DecodeHeader(buf []byte) (SharedStateHeader, error) {
	if len(buf) < HeaderSize {
		return SharedStateHeader{}, fmt.Errorf("grid: header buffer too short: %d < %d", len(buf), HeaderSize)
	}
	le := binary.LittleEndian
	h := SharedStateHeader{
		Magic:           le.Uint64(buf[0:8]),
		SchemaVersion:   le.Uint32(buf[8:12]),
		HeaderSizeField: le.Uint32(buf[12:16]),
		TimestampMs:     le.Uint64(buf[16:24]),
		SimulationTick:  le.Uint64(buf[24:32]),
		StateHash:       le.Uint64(buf[32:40]),
		ActiveBufferIdx: le.Uint32(buf[40:44]),
		ErrorFlags:      le.Uint32(buf[44:48]),
		GridNx:          le.Uint32(buf[48:52]),
		GridNy:          le.Uint32(buf[52:56]),
		GridNz:          le.Uint32(buf[56:60]),
		NumEntities:     le.Uint32(buf[60:64]),
	}
	off := 64
	for i := 0; i < numFields; i++ {
		h.FieldOffsets[i] = le.Uint32(buf[off : off+4])
		off += 4
	}
	if h.Magic != HeaderMagic {
		return SharedStateHeader{}, fmt.Errorf("grid: bad header magic: %#x", h.Magic)
	}
	if h.HeaderSizeField != HeaderSize {
		return SharedStateHeader{}, fmt.Errorf("grid: bad header size field: %d", h.HeaderSizeField)
	}
	return h, nil
}
