package eventlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Writer appends records to a newline-delimited JSON stream (§4.7
// "Storage: newline-delimited JSON stream. Optional LZ4 compression").
// The pack carries no LZ4 implementation; compress/gzip is the stdlib
// substitute used here, recorded in DESIGN.md since it is a standard
// library choice standing in for a named-but-unavailable third-party
// codec on an optional, non-semantic storage detail.
type Writer struct {
	w      io.Writer
	closer io.Closer
}

// OpenWriter creates (or truncates) path for event-log appends. When
// compressed is true the stream is gzip-wrapped.
func OpenWriter(path string, compressed bool) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	if !compressed {
		return &Writer{w: f, closer: f}, nil
	}
	gz := gzip.NewWriter(f)
	return &Writer{w: gz, closer: multiCloser{gz, f}}, nil
}

type multiCloser struct {
	first, second io.Closer
}

func (m multiCloser) Close() error {
	if err := m.first.Close(); err != nil {
		return err
	}
	return m.second.Close()
}

// Append writes r's canonical JSON form as one NDJSON line.
func (w *Writer) Append(r Record) error {
	if _, err := w.w.Write(r.CanonicalJSON()); err != nil {
		return fmt.Errorf("eventlog: write record %d: %w", r.EventID, err)
	}
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("eventlog: write record %d newline: %w", r.EventID, err)
	}
	return nil
}

// Close flushes and closes the underlying stream(s).
func (w *Writer) Close() error {
	return w.closer.Close()
}

// wireRecord mirrors Record's JSON shape for decoding; field order here
// is irrelevant to decoding correctness (only CanonicalJSON's encode path
// must be order-exact).
type wireRecord struct {
	EventID       uint64         `json:"event_id"`
	EventType     string         `json:"event_type"`
	Hash          string         `json:"hash"`
	Payload       map[string]any `json:"payload"`
	PrevHash      string         `json:"prev_hash"`
	SchemaVersion int            `json:"schema_version"`
	SessionID     string         `json:"session_id"`
	TimestampUs   uint64         `json:"timestamp_us"`
	UserID        string         `json:"user_id"`
}

func (w wireRecord) toRecord() Record {
	return Record{
		EventID:       w.EventID,
		EventType:     w.EventType,
		Hash:          w.Hash,
		Payload:       w.Payload,
		PrevHash:      w.PrevHash,
		SchemaVersion: w.SchemaVersion,
		SessionID:     w.SessionID,
		TimestampUs:   w.TimestampUs,
		UserID:        w.UserID,
	}
}

// ReadAll reads every record from an NDJSON stream at path, transparently
// gzip-decompressing when the file starts with a gzip magic header.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	var r io.Reader = br
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			return nil, fmt.Errorf("eventlog: gzip header in %s: %w", path, gzErr)
		}
		defer gz.Close()
		r = gz
	}

	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var wr wireRecord
		if err := json.Unmarshal(line, &wr); err != nil {
			return nil, fmt.Errorf("eventlog: decode record: %w", err)
		}
		// encoding/json yields float64 for every number; restore top-level
		// payload integers so CanonicalJSON re-encodes them without
		// decimals and the stored hash still verifies.
		var raw struct {
			Payload map[string]json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("eventlog: decode record: %w", err)
		}
		for k, v := range raw.Payload {
			if u, err := strconv.ParseUint(string(v), 10, 64); err == nil {
				wr.Payload[k] = u
			} else if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				wr.Payload[k] = i
			}
		}
		records = append(records, wr.toRecord())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: scan %s: %w", path, err)
	}
	return records, nil
}
