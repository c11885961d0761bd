// Package processid mints process_id values shared by every path that
// launches a control run — the scheduler's dispatch workers and the HTTP
// dispatcher's run-control handler alike (§3: "process_id once written is
// immutable", so two callers minting concurrently must never collide).
package processid

import (
	"sync/atomic"
	"time"
)

var seq atomic.Int64

// Next returns a process_id unique within this engine instance: a
// nanosecond timestamp folded with a monotonic counter.
func Next() int64 {
	return time.Now().UnixNano() + seq.Add(1)
}
