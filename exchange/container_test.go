package exchange

import (
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dj-ccs/negentropic-kernel/se3"
)

func sampleContainer() *Container {
	return &Container{
		Header: Header{
			PlatformTag: "linux-64",
			TimestampUs: 1234567,
			RNGSeed:     0x123456789ABCDEF,
			GridRows:    2,
			GridCols:    2,
			NumFields:   2,
			NumEntities: 2,
		},
		Scalars: [][]float64{
			{0.1, 0.2, 0.3, 0.4},
			{1, 2, 3, 4},
		},
		Poses: []se3.Pose{
			{Rot: quat.Number{Real: 1}, Trans: r3.Vec{X: 1, Y: 2, Z: 3}},
			{Rot: quat.Number{Real: 1}, Trans: r3.Vec{X: 4, Y: 5, Z: 6}},
		},
		EventLog: []byte(`{"event_id":0}` + "\n"),
	}
}

func TestContainerEncodeDecodeRoundTrips(t *testing.T) {
	c := sampleContainer()
	buf := c.Encode()
	if len(buf) < HeaderSize {
		t.Fatalf("encoded container shorter than header: %d bytes", len(buf))
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Header.PlatformTag != c.Header.PlatformTag {
		t.Errorf("PlatformTag = %q, want %q", got.Header.PlatformTag, c.Header.PlatformTag)
	}
	if got.Header.RNGSeed != c.Header.RNGSeed {
		t.Errorf("RNGSeed = %d, want %d", got.Header.RNGSeed, c.Header.RNGSeed)
	}
	if got.Header.GridRows != 2 || got.Header.GridCols != 2 {
		t.Errorf("grid shape = %dx%d, want 2x2", got.Header.GridRows, got.Header.GridCols)
	}
	if len(got.Scalars) != 2 || len(got.Scalars[0]) != 4 {
		t.Fatalf("unexpected scalars shape: %+v", got.Scalars)
	}
	for i, v := range got.Scalars[0] {
		if diff := v - c.Scalars[0][i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("scalars[0][%d] = %v, want ~%v", i, v, c.Scalars[0][i])
		}
	}
	if len(got.Poses) != 2 || got.Poses[1].Trans.Z != 6 {
		t.Fatalf("unexpected poses: %+v", got.Poses)
	}
	if string(got.EventLog) != string(c.EventLog) {
		t.Errorf("EventLog = %q, want %q", got.EventLog, c.EventLog)
	}
}

func TestContainerDecodeRejectsBadMagic(t *testing.T) {
	c := sampleContainer()
	buf := c.Encode()
	buf[0] = 'X'
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error decoding container with corrupt magic")
	}
}

func TestContainerDecodeRejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error decoding truncated header")
	}
}

func TestContainerDecodeRejectsStateHashMismatch(t *testing.T) {
	c := sampleContainer()
	buf := c.Encode()
	buf[len(buf)-1] ^= 0xFF
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error decoding container with corrupted body")
	}
}

func TestContainerHeaderIsExactly64Bytes(t *testing.T) {
	c := sampleContainer()
	h := c.encodeHeader()
	if len(h) != HeaderSize {
		t.Fatalf("encoded header = %d bytes, want %d", len(h), HeaderSize)
	}
}
