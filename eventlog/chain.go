package eventlog

// Clock returns the current time as microseconds since an arbitrary
// epoch. Injectable so replay and tests can drive the chain with a fake
// clock instead of wall time.
type Clock func() uint64

// Chain appends records to a single session's hash chain, assigning
// sequential event IDs, linking each record's prev_hash to the previous
// record's hash, and enforcing monotonic timestamps (§4.7). One Chain is
// built per session and is not safe for concurrent use — the kernel is
// single-threaded and synchronous (§5), so events are always appended
// from the one stepping thread.
type Chain struct {
	SessionID string
	UserID    string

	clock           Clock
	nextID          uint64
	lastHash        string
	lastTimestampUs uint64
}

// NewChain starts a fresh chain at the genesis hash for sessionID/userID,
// using clock to source timestamps.
func NewChain(sessionID, userID string, clock Clock) *Chain {
	return &Chain{
		SessionID: sessionID,
		UserID:    userID,
		clock:     clock,
		lastHash:  GenesisPrevHash,
	}
}

// Append builds, hashes, and links a new record of the given kind and
// payload, advancing the chain's cursor.
func (c *Chain) Append(eventType string, payload map[string]any) Record {
	r := Record{
		EventID:       c.nextID,
		EventType:     eventType,
		Payload:       payload,
		PrevHash:      c.lastHash,
		SchemaVersion: SchemaVersion,
		SessionID:     c.SessionID,
		TimestampUs:   c.nextTimestamp(),
		UserID:        c.UserID,
	}
	r.Hash = ComputeHash(r)

	c.nextID++
	c.lastHash = r.Hash
	return r
}

// nextTimestamp enforces §4.7's monotonic clock rule: if the wall clock
// has not advanced past the last recorded timestamp, it is nudged forward
// by one microsecond instead of repeating or going backward.
func (c *Chain) nextTimestamp() uint64 {
	now := c.clock()
	if now <= c.lastTimestampUs {
		now = c.lastTimestampUs + 1
	}
	c.lastTimestampUs = now
	return now
}

// LastHash returns the hash of the most recently appended record, or the
// genesis hash if none has been appended yet.
func (c *Chain) LastHash() string { return c.lastHash }

// NextEventID returns the event_id the next Append call will assign.
func (c *Chain) NextEventID() uint64 { return c.nextID }

// Payload constructors for the locked event kinds (§4.7). Kept as plain
// functions returning map[string]any rather than typed payload structs,
// since Record.Payload is itself untyped and these are written once and
// never read back except by the replayer, which only cares about the
// fields it names explicitly.

func SessionStartPayload(configDigest string) map[string]any {
	return map[string]any{"config_digest": configDigest}
}

func SessionEndPayload(finalStep uint64) map[string]any {
	return map[string]any{"final_step": finalStep}
}

func PlaceInterventionPayload(kind string, x, y, z int, params map[string]any) map[string]any {
	p := map[string]any{"kind": kind, "x": x, "y": y, "z": z}
	for k, v := range params {
		p[k] = v
	}
	return p
}

func RemoveInterventionPayload(x, y, z int) map[string]any {
	return map[string]any{"x": x, "y": y, "z": z}
}

func ChangeParameterPayload(name string, value any) map[string]any {
	return map[string]any{"name": name, "value": value}
}

func CameraMovePayload(lat, lon, altitudeM float64) map[string]any {
	return map[string]any{"lat": lat, "lon": lon, "altitude_m": altitudeM}
}

// SimulationStepPayload carries the step number, the dt it advanced by,
// and the XXH3 state hash of the resulting state (§4.7).
func SimulationStepPayload(stepNumber uint64, dtSeconds float64, stateHash uint64) map[string]any {
	return map[string]any{
		"step_number": stepNumber,
		"dt_seconds":  dtSeconds,
		"state_hash":  stateHash,
	}
}

// CheckpointPayload carries the step number, a reference to a binary
// snapshot (an externally meaningful path or key, not the blob itself),
// and the snapshot's SHA-256 (§4.7).
func CheckpointPayload(stepNumber uint64, snapshotRef, snapshotSHA256 string) map[string]any {
	return map[string]any{
		"step_number":     stepNumber,
		"snapshot_ref":    snapshotRef,
		"snapshot_sha256": snapshotSHA256,
	}
}

// MilestonePayload is the additive, non-locked event kind used by the
// scenario-breakthrough detector (§C "milestone").
func MilestonePayload(name string, value float64, stepNumber uint64) map[string]any {
	return map[string]any{
		"name":        name,
		"value":       value,
		"step_number": stepNumber,
	}
}
