package ring

import (
	"context"
	"testing"

	"chordring/internal/key"
)

// trueSuccessor is the ground-truth ownership rule: the member with the
// smallest id >= target, wrapping to the smallest member overall.
func trueSuccessor(members []Descriptor, target key.ID) Descriptor {
	var best, min *Descriptor
	for i := range members {
		d := &members[i]
		if min == nil || d.ID.Cmp(min.ID) < 0 {
			min = d
		}
		if d.ID.Cmp(target) >= 0 && (best == nil || d.ID.Cmp(best.ID) < 0) {
			best = d
		}
	}
	if best != nil {
		return *best
	}
	return *min
}

func descriptors(nodes []*Node) []Descriptor {
	out := make([]Descriptor, len(nodes))
	for i, n := range nodes {
		out[i] = n.Descriptor()
	}
	return out
}

// converge runs stabilize and a full finger sweep on every node for the
// given number of rounds.
func converge(t *testing.T, nodes []*Node, rounds int) {
	t.Helper()
	ctx := context.Background()
	for r := 0; r < rounds; r++ {
		for _, n := range nodes {
			if err := n.stabilize(ctx); err != nil {
				t.Fatalf("stabilize on %s: %v", n.Descriptor().Addr, err)
			}
		}
		for _, n := range nodes {
			for i := 1; i < n.Space().Bits; i++ {
				n.fixFinger(ctx, i)
			}
		}
	}
}

// checkRingClosure asserts N.successor.predecessor == N for every node.
func checkRingClosure(t *testing.T, c *fakeClient, nodes []*Node) {
	t.Helper()
	for _, n := range nodes {
		succ := c.node(n.Successor())
		pred, ok := succ.Predecessor()
		if !ok || !pred.Equal(n.Descriptor()) {
			t.Errorf("%s.successor.predecessor = %v, want %s",
				n.Descriptor().Addr, pred, n.Descriptor().Addr)
		}
	}
}

// checkFingerCorrectness asserts every finger entry equals the true
// successor of its start on the ground-truth ring.
func checkFingerCorrectness(t *testing.T, nodes []*Node) {
	t.Helper()
	members := descriptors(nodes)
	for _, n := range nodes {
		fingers := n.RoutingTable().Snapshot()
		for i, f := range fingers {
			start := n.RoutingTable().FingerStart(i)
			want := trueSuccessor(members, start)
			if !f.Equal(want) {
				t.Errorf("%s.fingers[%d] (start %s) = %s, want %s",
					n.Descriptor().Addr, i, start.Hex(true), f.LogString(), want.LogString())
			}
		}
	}
}

// TestFindSuccessorOnOwnID covers the boundary rule that a key equal to
// a node's identifier is owned by that node itself, asked from any node.
func TestFindSuccessorOnOwnID(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)
	b := newTestNode(t, sp, c, "b", 100)
	d := newTestNode(t, sp, c, "d", 200)

	ctx := context.Background()
	if err := b.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("b.Join: %v", err)
	}
	if err := d.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("d.Join: %v", err)
	}
	nodes := []*Node{a, b, d}
	converge(t, nodes, 4)

	for _, owner := range nodes {
		for _, asker := range nodes {
			got, err := asker.FindSuccessor(ctx, owner.Descriptor().ID)
			if err != nil {
				t.Fatalf("%s.FindSuccessor(%s): %v", asker.Descriptor().Addr, owner.Descriptor().Addr, err)
			}
			if !got.Equal(owner.Descriptor()) {
				t.Errorf("%s.FindSuccessor(id of %s) = %s, want %s",
					asker.Descriptor().Addr, owner.Descriptor().Addr,
					got.LogString(), owner.Descriptor().LogString())
			}
		}
	}
}

// TestClosestPrecedingFingerMatchesBruteForce checks the reverse finger
// scan against a brute-force pass over the same finger snapshot: the
// answer must be the finger whose id lies in (self, key) closest to key.
func TestClosestPrecedingFingerMatchesBruteForce(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)
	b := newTestNode(t, sp, c, "b", 100)
	d := newTestNode(t, sp, c, "d", 200)

	ctx := context.Background()
	if err := b.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("b.Join: %v", err)
	}
	if err := d.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("d.Join: %v", err)
	}
	nodes := []*Node{a, b, d}
	converge(t, nodes, 4)

	brute := func(n *Node, id key.ID) Descriptor {
		self := n.Descriptor()
		best := self
		var bestDist key.ID
		for _, f := range n.RoutingTable().Snapshot() {
			if f.Equal(self) || !f.ID.IsBetween(self.ID, id) {
				continue
			}
			dist := sp.Sub(id, f.ID)
			if best.Equal(self) || dist.Cmp(bestDist) < 0 {
				best, bestDist = f, dist
			}
		}
		return best
	}

	// Includes key = a.id - 1: on this ring the answer must be the node
	// that most closely precedes the key going clockwise (wrapping past
	// zero), which is d (200).
	targets := []int{9, 0, 11, 55, 99, 101, 150, 201, 255}
	for _, target := range targets {
		id := mustID(t, sp, target)
		for _, n := range nodes {
			if id.Equal(n.Descriptor().ID) {
				continue // asks for the predecessor, not a finger scan
			}
			got := n.ClosestPrecedingFinger(id)
			want := brute(n, id)
			if !got.Equal(want) {
				t.Errorf("%s.ClosestPrecedingFinger(%d) = %s, want %s",
					n.Descriptor().Addr, target, got.LogString(), want.LogString())
			}
		}
	}

	keyBeforeA := mustID(t, sp, 9)
	for _, n := range nodes {
		if got := n.ClosestPrecedingFinger(keyBeforeA); !got.Equal(d.Descriptor()) {
			t.Errorf("%s.ClosestPrecedingFinger(a.id-1) = %s, want d", n.Descriptor().Addr, got.LogString())
		}
	}
}

// TestStabilizationRepairsCrudeRing starts from a ring wired with
// nothing but successor pointers (no predecessors, no fingers) and runs
// stabilization rounds until ring closure and finger correctness hold.
func TestStabilizationRepairsCrudeRing(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)
	b := newTestNode(t, sp, c, "b", 100)
	d := newTestNode(t, sp, c, "d", 200)

	a.rt.SetSuccessor(b.Descriptor())
	b.rt.SetSuccessor(d.Descriptor())
	d.rt.SetSuccessor(a.Descriptor())

	nodes := []*Node{a, b, d}
	converge(t, nodes, 2*len(nodes))

	checkRingClosure(t, c, nodes)
	checkFingerCorrectness(t, nodes)
}

// TestEightNodeRingConvergence grows a ring to eight members joined
// through the same bootstrap node, stabilizes, and checks closure,
// finger correctness, and lookup consistency from every member.
func TestEightNodeRingConvergence(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}

	ids := []int{5, 30, 77, 110, 145, 180, 215, 250}
	nodes := make([]*Node, 0, len(ids))
	for i, id := range ids {
		nodes = append(nodes, newTestNode(t, sp, c, string(rune('a'+i)), id))
	}

	ctx := context.Background()
	first := nodes[0]
	for _, n := range nodes[1:] {
		if err := n.Join(ctx, first.Descriptor()); err != nil {
			t.Fatalf("%s.Join: %v", n.Descriptor().Addr, err)
		}
	}
	converge(t, nodes, 2*len(nodes))

	checkRingClosure(t, c, nodes)
	checkFingerCorrectness(t, nodes)

	members := descriptors(nodes)
	for _, target := range []int{0, 5, 6, 76, 77, 144, 214, 251, 255} {
		id := mustID(t, sp, target)
		want := trueSuccessor(members, id)
		for _, n := range nodes {
			got, err := n.FindSuccessor(ctx, id)
			if err != nil {
				t.Fatalf("%s.FindSuccessor(%d): %v", n.Descriptor().Addr, target, err)
			}
			if !got.Equal(want) {
				t.Errorf("%s.FindSuccessor(%d) = %s, want %s",
					n.Descriptor().Addr, target, got.LogString(), want.LogString())
			}
		}
	}
}
