package xsync

import "sync/atomic"

// ref is a node pointer plus a one-bit claim tag.
//
// Each node embeds both of its refs, so a list head can be switched between
// the plain and the claimed form of the same node with a single pointer CAS.
// While the head holds a claimed ref the node belongs to the popping
// goroutine: nobody else may read its payload or link past it.
type ref[N any] struct {
	node    *N
	claimed bool
}

// refs is embedded into every stack and queue node.
type refs[N any] struct {
	plain ref[N]
	claim ref[N]
}

func (r *refs[N]) init(n *N) {
	r.plain = ref[N]{node: n}
	r.claim = ref[N]{node: n, claimed: true}
}

// claimTop marks the node referenced by head as claimed.
// It returns the claimed node, or nil if the list is empty.
// Goroutines finding the head already claimed yield and retry.
func claimTop[N any](head *atomic.Pointer[ref[N]], claimOf func(*N) *ref[N]) *N {
	var spins uint32
	for {
		top := head.Load()
		if top == nil {
			return nil
		}
		if !top.claimed && head.CompareAndSwap(top, claimOf(top.node)) {
			return top.node
		}
		spins++
		backoff(spins)
	}
}
