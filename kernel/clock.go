package kernel

import "time"

// wallClockMicros is the event chain's default Clock (§4.7 "microsecond
// resolution"). It is the one place in this package that touches wall
// time; nothing on the deterministic step path depends on it.
func wallClockMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}
