// Package ring implements the Chord routing core: a node's identity,
// finger table, and the lookup/join/stabilization state machine that
// keeps a ring of nodes consistent as membership changes.
package ring

import (
	"context"
	"errors"
	"fmt"

	"chordring/internal/key"
	"chordring/internal/logger"
)

// ErrLookupStalled is returned when a find_predecessor iteration stops
// making progress: the hop count exceeds the identifier width, which a
// correct routing state can never need. It indicates corrupted state,
// not a transient condition stabilization will repair.
var ErrLookupStalled = errors.New("ring: lookup made no progress")

// Node is a single Chord ring member: its own identity, its routing
// state, and the transport used to reach remote peers.
type Node struct {
	self   Descriptor
	space  key.Space
	client Client
	lgr    logger.Logger
	rt     *RoutingTable
}

// New constructs a node that has not yet joined any ring: its finger
// table and successor point at itself and it has no predecessor,
// exactly the state of a freshly created ring of one.
func New(self Descriptor, space key.Space, client Client, lgr logger.Logger) *Node {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	return &Node{
		self:   self,
		space:  space,
		client: client,
		lgr:    lgr.Named("ring").WithNode(self),
		rt:     NewRoutingTable(self, space),
	}
}

// Descriptor returns this node's own descriptor.
func (n *Node) Descriptor() Descriptor { return n.self }

// Space returns the identifier space this node routes within.
func (n *Node) Space() key.Space { return n.space }

// RoutingTable exposes the node's finger table and predecessor
// pointer, for the stabilizer, the RPC handlers, and debug tooling.
func (n *Node) RoutingTable() *RoutingTable { return n.rt }

// Successor is this node's immediate ring successor (finger 0).
func (n *Node) Successor() Descriptor { return n.rt.Successor() }

// Predecessor is this node's immediate ring predecessor, if known.
func (n *Node) Predecessor() (Descriptor, bool) { return n.rt.Predecessor() }

// FindSuccessor answers "who is responsible for id": the node reached
// first walking clockwise from id, inclusive.
func (n *Node) FindSuccessor(ctx context.Context, id key.ID) (Descriptor, error) {
	_, succ, err := n.FindPredecessor(ctx, id)
	if err != nil {
		return Descriptor{}, err
	}
	return succ, nil
}

// FindPredecessor walks the ring, via fingers, to the node immediately
// preceding id, and returns that node together with its successor (so
// callers get the responsible node for id in the same round trip).
func (n *Node) FindPredecessor(ctx context.Context, id key.ID) (pred, predSucc Descriptor, err error) {
	self := n.self
	succ := n.rt.Successor()

	if self.Equal(succ) {
		// Alone on the ring: self precedes everything.
		return self, succ, nil
	}
	if id.IsBetweenRIncl(self.ID, succ.ID) {
		return self, succ, nil
	}

	cur := n.HandleFor(n.ClosestPrecedingFinger(id))
	curSucc, err := cur.GetSuccessor(ctx)
	if err != nil {
		return Descriptor{}, Descriptor{}, fmt.Errorf("ring: find_predecessor: get_successor on %s: %w", cur.Descriptor().LogString(), err)
	}
	if cur.Descriptor().Equal(curSucc) {
		return cur.Descriptor(), curSucc, nil
	}

	for hops := 0; !id.IsBetweenRIncl(cur.Descriptor().ID, curSucc.ID); hops++ {
		if hops >= n.space.Bits {
			return Descriptor{}, Descriptor{}, fmt.Errorf("%w: %d hops resolving %s", ErrLookupStalled, hops, id.Hex(true))
		}
		next, err := cur.ClosestPrecedingFinger(ctx, id)
		if err != nil {
			return Descriptor{}, Descriptor{}, fmt.Errorf("ring: find_predecessor: closest_preceding_finger on %s: %w", cur.Descriptor().LogString(), err)
		}
		cur = n.HandleFor(next)
		curSucc, err = cur.GetSuccessor(ctx)
		if err != nil {
			return Descriptor{}, Descriptor{}, fmt.Errorf("ring: find_predecessor: get_successor on %s: %w", cur.Descriptor().LogString(), err)
		}
		if cur.Descriptor().Equal(curSucc) {
			// The queried node believes it is alone; take its word for
			// now and let its next stabilize round mend the view.
			break
		}
	}
	return cur.Descriptor(), curSucc, nil
}

// ClosestPrecedingFinger returns the node in this node's finger table
// that most closely precedes id without passing it, scanning the
// table from the widest reach down. Asked for this node's own id, it
// answers with this node's predecessor: update_others relies on this
// to locate the nodes whose i'th finger must change when this node
// joins.
func (n *Node) ClosestPrecedingFinger(id key.ID) Descriptor {
	self := n.self
	if id.Equal(self.ID) {
		if pred, ok := n.rt.Predecessor(); ok {
			return pred
		}
		return self
	}

	fingers := n.rt.Snapshot()
	succ := fingers[0]
	for i := len(fingers) - 1; i >= 0; i-- {
		f := fingers[i]
		if f.Equal(self) {
			if succ.Equal(self) {
				return self // alone on the ring
			}
			if id.IsBetweenRIncl(self.ID, succ.ID) {
				return self
			}
			continue
		}
		if f.ID.IsBetweenExclu(self.ID, id) {
			return f
		}
	}
	return self
}

// LookupWithSucc answers a lookup using only successor pointers,
// never fingers: a slow O(n) path that stays correct even on a ring
// whose finger tables have not converged yet.
func (n *Node) LookupWithSucc(ctx context.Context, id key.ID) (Descriptor, error) {
	if id.Equal(n.self.ID) {
		return n.self, nil
	}
	succ := n.rt.Successor()
	if id.IsBetween(n.self.ID, succ.ID) {
		return succ, nil
	}
	return n.HandleFor(succ).LookupWithSucc(ctx, id)
}

// Snapshot describes this node's current routing state: the data
// backing the operator-facing Describe RPC and the ringctl shell.
type Snapshot struct {
	Self        Descriptor
	Predecessor *Descriptor
	Successor   Descriptor
	Fingers     []Descriptor
}

// Snapshot captures this node's routing state. The predecessor, the
// successor and the finger table are each read under a separate lock
// acquisition, so the three are not taken at one instant.
func (n *Node) Snapshot() Snapshot {
	var predPtr *Descriptor
	if pred, ok := n.rt.Predecessor(); ok {
		predPtr = &pred
	}
	return Snapshot{
		Self:        n.self,
		Predecessor: predPtr,
		Successor:   n.rt.Successor(),
		Fingers:     n.rt.Snapshot(),
	}
}
