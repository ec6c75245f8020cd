package session

import "sync/atomic"

// oneShotGate is a latch that admits exactly one Fire per Reset. It makes
// at-most-once contracts (silence edges, capture completion, playback done)
// visible in the type instead of an ad-hoc boolean.
type oneShotGate struct {
	fired atomic.Bool
}

// Fire reports whether this call won the gate. Exactly one call between
// Resets returns true.
func (g *oneShotGate) Fire() bool {
	return g.fired.CompareAndSwap(false, true)
}

func (g *oneShotGate) Fired() bool {
	return g.fired.Load()
}

func (g *oneShotGate) Reset() {
	g.fired.Store(false)
}
