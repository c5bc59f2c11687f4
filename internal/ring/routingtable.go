package ring

import (
	"sync"

	"chordring/internal/key"
)

// RoutingTable holds a node's local ring-position state: its finger
// table (the successor is fingers[0]) and its predecessor pointer.
// A freshly constructed table points every finger at self, exactly
// the state of a lone ring of one node.
type RoutingTable struct {
	mu          sync.RWMutex
	self        Descriptor
	space       key.Space
	fingers     []Descriptor
	fingerStart []key.ID
	predecessor *Descriptor
}

// NewRoutingTable builds the initial table for self in the given space.
func NewRoutingTable(self Descriptor, space key.Space) *RoutingTable {
	rt := &RoutingTable{
		self:        self,
		space:       space,
		fingers:     make([]Descriptor, space.Bits),
		fingerStart: make([]key.ID, space.Bits),
	}
	for i := 0; i < space.Bits; i++ {
		rt.fingerStart[i] = space.Add(self.ID, space.Pow2(i))
		rt.fingers[i] = self
	}
	return rt
}

// Self returns the node this table belongs to.
func (rt *RoutingTable) Self() Descriptor { return rt.self }

// FingerStart returns start(i) = (self.ID + 2^i) mod 2^m, the target
// identifier the i'th finger is responsible for.
func (rt *RoutingTable) FingerStart(i int) key.ID { return rt.fingerStart[i] }

// Finger returns the current i'th finger table entry.
func (rt *RoutingTable) Finger(i int) Descriptor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.fingers[i]
}

// SetFinger updates the i'th finger table entry.
func (rt *RoutingTable) SetFinger(i int, d Descriptor) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.fingers[i] = d
}

// Successor is finger 0, the node's immediate ring successor.
func (rt *RoutingTable) Successor() Descriptor { return rt.Finger(0) }

// SetSuccessor updates finger 0.
func (rt *RoutingTable) SetSuccessor(d Descriptor) { rt.SetFinger(0, d) }

// Predecessor returns the node's predecessor, if known.
func (rt *RoutingTable) Predecessor() (Descriptor, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.predecessor == nil {
		return Descriptor{}, false
	}
	return *rt.predecessor, true
}

// SetPredecessor records d as this node's predecessor.
func (rt *RoutingTable) SetPredecessor(d Descriptor) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	cp := d
	rt.predecessor = &cp
}

// ClearPredecessor forgets the current predecessor.
func (rt *RoutingTable) ClearPredecessor() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.predecessor = nil
}

// Snapshot returns a consistent copy of every finger entry, for
// closest_preceding_finger's scan and debug introspection.
func (rt *RoutingTable) Snapshot() []Descriptor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Descriptor, len(rt.fingers))
	copy(out, rt.fingers)
	return out
}
