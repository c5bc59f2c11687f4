package ring

import (
	"context"
	"fmt"
	"time"

	"chordring/internal/logger"
)

// StartStabilizer launches the periodic stabilize and fix_fingers
// loops that repair the ring as membership changes. It stops when ctx
// is canceled. fix_fingers round-robins sequentially through every
// finger rather than sampling a random index per tick, so every entry
// has a bounded worst-case repair time.
func (n *Node) StartStabilizer(ctx context.Context, interval time.Duration) {
	go n.stabilizeLoop(ctx, interval)
	go n.fixFingersLoop(ctx, interval)
}

func (n *Node) stabilizeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.stabilize(ctx); err != nil {
				n.lgr.Warn("stabilize: failed", logger.F("err", err))
			}
		}
	}
}

func (n *Node) fixFingersLoop(ctx context.Context, interval time.Duration) {
	if n.space.Bits <= 1 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	next := 1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.fixFinger(ctx, next)
			next = next%(n.space.Bits-1) + 1
		}
	}
}

// stabilize asks this node's successor for its predecessor, adopts it
// as the new successor if it lies strictly between this node and the
// current successor, then notifies the (possibly updated) successor
// that this node may be its predecessor.
func (n *Node) stabilize(ctx context.Context) error {
	succ := n.rt.Successor()
	succHandle := n.HandleFor(succ)

	x, ok, err := succHandle.GetPredecessor(ctx)
	if err != nil {
		return fmt.Errorf("stabilize: get_predecessor on %s: %w", succ.LogString(), err)
	}
	if ok && !x.Equal(n.self) {
		if succ.Equal(n.self) || x.ID.IsBetweenExclu(n.self.ID, succ.ID) {
			n.rt.SetSuccessor(x)
			succ = x
			succHandle = n.HandleFor(succ)
		}
	}

	if succ.Equal(n.self) {
		return nil
	}
	if err := succHandle.NotifyNewPredecessor(ctx, n.self); err != nil {
		return fmt.Errorf("stabilize: notify %s: %w", succ.LogString(), err)
	}
	return nil
}

// NotifyNewPredecessor is invoked, locally or over RPC, by a node that
// believes it may be this node's predecessor: adopted only if this
// node has no predecessor yet, or candidate lies strictly between the
// current predecessor and this node.
func (n *Node) NotifyNewPredecessor(candidate Descriptor) {
	pred, ok := n.rt.Predecessor()
	if !ok || candidate.ID.IsBetweenExclu(pred.ID, n.self.ID) {
		n.rt.SetPredecessor(candidate)
	}
}

func (n *Node) fixFinger(ctx context.Context, i int) {
	start := n.rt.FingerStart(i)
	succ, err := n.FindSuccessor(ctx, start)
	if err != nil {
		n.lgr.Debug("fix_fingers: lookup failed", logger.F("index", i), logger.F("err", err))
		return
	}
	n.rt.SetFinger(i, succ)
}
