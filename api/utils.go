package api

import (
	"sync/atomic"
	"time"
)

var lastCommandStamp int64

// nextCommandStamp returns a process-wide strictly increasing nanosecond
// timestamp. Commands finalized in the same request keep their submission
// order, and the stamp doubles as the base36 idempotency key fallback.
func nextCommandStamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastCommandStamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastCommandStamp, last, now) {
			return now
		}
	}
}
