package venue

import (
	"sync/atomic"
	"time"
)

// nonceSource issues strictly increasing nonces. Kraken hard-rejects a
// reused or decreasing nonce per credential, so wall-clock nanoseconds
// alone are not enough: two calls in the same nanosecond, or a clock
// step backwards, must still produce an increase.
type nonceSource struct {
	last atomic.Int64
}

func (n *nonceSource) Next() int64 {
	for {
		candidate := time.Now().UnixNano()
		last := n.last.Load()
		if candidate <= last {
			candidate = last + 1
		}
		if n.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}
