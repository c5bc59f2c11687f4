package ring

import (
	"context"
	"fmt"

	"chordring/internal/logger"
)

// Join attaches this node to the ring reachable through bootstrap: it
// initializes the finger table from the existing ring (init_fingers)
// and then notifies every node that must now point at this one
// (update_others).
func (n *Node) Join(ctx context.Context, bootstrap Descriptor) error {
	if bootstrap.Equal(n.self) {
		return fmt.Errorf("ring: join: bootstrap descriptor is self")
	}
	if err := n.initFingers(ctx, bootstrap); err != nil {
		return fmt.Errorf("ring: join: %w", err)
	}
	if err := n.updateOthers(ctx); err != nil {
		return fmt.Errorf("ring: join: update_others: %w", err)
	}
	n.lgr.Info("join: completed", logger.FNode("successor", n.rt.Successor()))
	return nil
}

// initFingers populates this node's finger table using an existing
// ring member as an entry point. It rewires the successor's
// predecessor and the predecessor's successor eagerly rather than
// waiting for the next stabilize round, so the ring is closed
// immediately after a join instead of only eventually.
func (n *Node) initFingers(ctx context.Context, bootstrap Descriptor) error {
	existing := n.HandleFor(bootstrap)

	pred, predSucc, err := existing.FindPredecessor(ctx, n.self.ID)
	if err != nil {
		return fmt.Errorf("init_fingers: find_predecessor via bootstrap %s: %w", bootstrap.LogString(), err)
	}
	if predSucc.Equal(n.self) {
		return fmt.Errorf("init_fingers: a node with id %s is already on the ring", n.self.ID.Hex(true))
	}

	n.rt.SetSuccessor(predSucc)
	n.rt.SetPredecessor(pred)

	if err := n.HandleFor(pred).SetSuccessor(ctx, n.self); err != nil {
		return fmt.Errorf("init_fingers: set_successor on predecessor %s: %w", pred.LogString(), err)
	}
	if err := n.HandleFor(predSucc).SetPredecessor(ctx, n.self); err != nil {
		return fmt.Errorf("init_fingers: set_predecessor on successor %s: %w", predSucc.LogString(), err)
	}

	for i := 0; i < n.space.Bits-1; i++ {
		fi := n.rt.Finger(i)
		start := n.rt.FingerStart(i)
		nextStart := n.rt.FingerStart(i + 1)
		if nextStart.Equal(start) || nextStart.IsBetween(start, fi.ID) {
			n.rt.SetFinger(i+1, fi)
		} else {
			fs, err := existing.FindSuccessor(ctx, nextStart)
			if err != nil {
				return fmt.Errorf("init_fingers: find_successor(finger %d) via bootstrap: %w", i+1, err)
			}
			n.rt.SetFinger(i+1, fs)
		}
	}
	return nil
}

// updateOthers notifies every node whose i'th finger should now point
// at this node, for every i.
func (n *Node) updateOthers(ctx context.Context) error {
	for i := 0; i < n.space.Bits; i++ {
		target := n.space.Sub(n.self.ID, n.space.Pow2(i))
		pred, _, err := n.FindPredecessor(ctx, target)
		if err != nil {
			return fmt.Errorf("update_others: find_predecessor(i=%d): %w", i, err)
		}
		if err := n.HandleFor(pred).UpdateFingerTable(ctx, n.self, i); err != nil {
			return fmt.Errorf("update_others: update_finger_table on %s (i=%d): %w", pred.LogString(), i, err)
		}
	}
	return nil
}

// UpdateFingerTable is invoked, locally or over RPC, by a node s that
// may belong in this node's i'th finger slot. The interval tested is
// self-inclusive on the start and exclusive on the current responsible
// node (the paper's [start, responsible) form): the self-exclusive
// variant fails to update the entry when s lands exactly on the
// finger's start. If it does belong, the update is propagated back to
// this node's predecessor, since s may belong in that node's i'th slot
// too; the chain terminates naturally when it reaches a node whose
// predecessor is s itself, or loops back to s.
func (n *Node) UpdateFingerTable(ctx context.Context, s Descriptor, i int) error {
	if s.Equal(n.self) {
		return nil
	}
	fi := n.rt.Finger(i)
	start := n.rt.FingerStart(i)
	if !s.ID.Equal(start) && !s.ID.IsBetween(start, fi.ID) {
		return nil
	}
	n.rt.SetFinger(i, s)

	pred, ok := n.rt.Predecessor()
	if !ok || pred.Equal(s) {
		return nil
	}
	if err := n.HandleFor(pred).UpdateFingerTable(ctx, s, i); err != nil {
		return fmt.Errorf("update_finger_table: forward to predecessor %s: %w", pred.LogString(), err)
	}
	return nil
}
