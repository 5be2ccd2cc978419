// Package eventlog implements the hash-chained event log and deterministic
// replay (§4.7): canonical compact-JSON records, a SHA-256 hash chain,
// monotonic microsecond timestamping, NDJSON storage, and a replayer that
// re-steps the engine and fails fast on the first state-hash mismatch.
package eventlog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SchemaVersion is the event record's schema_version field (§4.7).
const SchemaVersion = 1

// GenesisPrevHash is the prev_hash of event 0 (§4.7 "64 zeros").
var GenesisPrevHash = strings.Repeat("0", 64)

// Event kind constants (§4.7 "Event kinds"). milestone is additive
// instrumentation beyond the locked set, used by the scenario-breakthrough
// detector.
const (
	EventSessionStart      = "session_start"
	EventSessionEnd        = "session_end"
	EventPlaceIntervention = "place_intervention"
	EventRemoveIntervention = "remove_intervention"
	EventChangeParameter   = "change_parameter"
	EventCameraMove        = "camera_move"
	EventSimulationStep    = "simulation_step"
	EventCheckpoint        = "checkpoint"
	EventMilestone         = "milestone"
)

// Record is one event-log entry (§4.7). Payload is event-kind-specific;
// its keys and any nested float64 values participate in the canonical
// encoding the same as the fixed fields.
type Record struct {
	EventID       uint64
	EventType     string
	Hash          string
	Payload       map[string]any
	PrevHash      string
	SchemaVersion int
	SessionID     string
	TimestampUs   uint64
	UserID        string
}

func (r Record) fieldMap(includeHash bool) map[string]any {
	m := map[string]any{
		"event_id":       r.EventID,
		"event_type":     r.EventType,
		"payload":        r.Payload,
		"prev_hash":      r.PrevHash,
		"schema_version": r.SchemaVersion,
		"session_id":     r.SessionID,
		"timestamp_us":   r.TimestampUs,
		"user_id":        r.UserID,
	}
	if includeHash {
		m["hash"] = r.Hash
	}
	return m
}

// CanonicalJSON returns the record's canonical compact serialization
// (alphabetical keys, no whitespace, floats with exactly six decimals),
// including the hash field.
func (r Record) CanonicalJSON() []byte {
	return canonicalEncode(r.fieldMap(true))
}

// HashableJSON is the same serialization with the hash field excluded, the
// input to ComputeHash (§4.7 "hash field temporarily excluded").
func (r Record) HashableJSON() []byte {
	return canonicalEncode(r.fieldMap(false))
}

// ComputeHash returns the lowercase hex SHA-256 of r's hashable form.
func ComputeHash(r Record) string {
	sum := sha256.Sum256(r.HashableJSON())
	return hex.EncodeToString(sum[:])
}

// canonicalEncode recursively serializes v using the canonical rules:
// map keys sorted ascending, arrays in their given order, no inserted
// whitespace, float64 formatted to exactly six decimals.
func canonicalEncode(v any) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeJSONString(buf, t)
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'f', 6, 64))
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case map[string]any:
		writeCanonicalMap(buf, t)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	case []string:
		arr := make([]any, len(t))
		for i, s := range t {
			arr[i] = s
		}
		writeCanonical(buf, arr)
	case []float64:
		arr := make([]any, len(t))
		for i, f := range t {
			arr[i] = f
		}
		writeCanonical(buf, arr)
	default:
		panic(fmt.Sprintf("eventlog: unsupported canonical value type %T", v))
	}
}

func writeCanonicalMap(buf *bytes.Buffer, m map[string]any) {
	if m == nil {
		buf.WriteString("null")
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, k)
		buf.WriteByte(':')
		writeCanonical(buf, m[k])
	}
	buf.WriteByte('}')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
