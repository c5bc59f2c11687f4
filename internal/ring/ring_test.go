package ring

import (
	"context"
	"fmt"
	"testing"

	"chordring/internal/key"
)

// fakeClient dispatches RPCs directly to in-process Node instances by
// address, simulating the wire without a transport: every method here
// is the in-process equivalent of the grpc handler in internal/rpc.
type fakeClient struct{ nodes map[string]*Node }

func (c *fakeClient) node(to Descriptor) *Node {
	n, ok := c.nodes[to.Addr]
	if !ok {
		panic(fmt.Sprintf("fakeClient: no node registered at %s", to.Addr))
	}
	return n
}

func (c *fakeClient) GetSuccessor(_ context.Context, to Descriptor) (Descriptor, error) {
	return c.node(to).Successor(), nil
}

func (c *fakeClient) GetPredecessor(_ context.Context, to Descriptor) (Descriptor, bool, error) {
	p, ok := c.node(to).Predecessor()
	return p, ok, nil
}

func (c *fakeClient) SetSuccessor(_ context.Context, to, succ Descriptor) error {
	c.node(to).RoutingTable().SetSuccessor(succ)
	return nil
}

func (c *fakeClient) SetPredecessor(_ context.Context, to, pred Descriptor) error {
	c.node(to).RoutingTable().SetPredecessor(pred)
	return nil
}

func (c *fakeClient) FindSuccessor(ctx context.Context, to Descriptor, id key.ID) (Descriptor, error) {
	return c.node(to).FindSuccessor(ctx, id)
}

func (c *fakeClient) FindPredecessor(ctx context.Context, to Descriptor, id key.ID) (Descriptor, Descriptor, error) {
	return c.node(to).FindPredecessor(ctx, id)
}

func (c *fakeClient) ClosestPrecedingFinger(_ context.Context, to Descriptor, id key.ID) (Descriptor, error) {
	return c.node(to).ClosestPrecedingFinger(id), nil
}

func (c *fakeClient) NotifyNewPredecessor(_ context.Context, to, candidate Descriptor) error {
	c.node(to).NotifyNewPredecessor(candidate)
	return nil
}

func (c *fakeClient) UpdateFingerTable(ctx context.Context, to, s Descriptor, i int) error {
	return c.node(to).UpdateFingerTable(ctx, s, i)
}

func (c *fakeClient) LookupWithSucc(ctx context.Context, to Descriptor, id key.ID) (Descriptor, error) {
	return c.node(to).LookupWithSucc(ctx, id)
}

func mustSpace(t *testing.T, bits int) key.Space {
	t.Helper()
	sp, err := key.NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace(%d): %v", bits, err)
	}
	return sp
}

func hex2(v int) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[(v>>4)&0xF], digits[v&0xF]})
}

func newTestNode(t *testing.T, sp key.Space, c *fakeClient, addr string, id int) *Node {
	t.Helper()
	kid, err := sp.IDFromHex(hex2(id))
	if err != nil {
		t.Fatalf("IDFromHex(%d): %v", id, err)
	}
	self := Descriptor{Addr: addr, ID: kid}
	n := New(self, sp, c, nil)
	c.nodes[addr] = n
	return n
}

// TestLoneNodeRing covers a ring of exactly one node: it is its own
// successor and predecessor is unknown, and every lookup resolves to
// itself.
func TestLoneNodeRing(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)

	if !a.Successor().Equal(a.Descriptor()) {
		t.Fatalf("lone node successor = %v, want self", a.Successor())
	}
	if _, ok := a.Predecessor(); ok {
		t.Fatalf("lone node should have no predecessor")
	}

	ctx := context.Background()
	for _, target := range []int{0, 10, 255} {
		id, _ := sp.IDFromHex(hex2(target))
		got, err := a.FindSuccessor(ctx, id)
		if err != nil {
			t.Fatalf("FindSuccessor(%d): %v", target, err)
		}
		if !got.Equal(a.Descriptor()) {
			t.Errorf("FindSuccessor(%d) = %v, want self", target, got)
		}
	}
}

// TestTwoNodeJoin: after B joins A's lone ring, the two must form a
// closed, symmetric 2-cycle without needing a stabilize round, because
// init_fingers wires successor and predecessor on both sides eagerly.
func TestTwoNodeJoin(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)
	b := newTestNode(t, sp, c, "b", 200)

	if err := b.Join(context.Background(), a.Descriptor()); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if !a.Successor().Equal(b.Descriptor()) {
		t.Errorf("a.successor = %v, want b", a.Successor())
	}
	if !b.Successor().Equal(a.Descriptor()) {
		t.Errorf("b.successor = %v, want a", b.Successor())
	}
	pa, ok := a.Predecessor()
	if !ok || !pa.Equal(b.Descriptor()) {
		t.Errorf("a.predecessor = %v, want b", pa)
	}
	pb, ok := b.Predecessor()
	if !ok || !pb.Equal(a.Descriptor()) {
		t.Errorf("b.predecessor = %v, want a", pb)
	}
}

// TestThreeNodeJoinAndRouting: joins in ascending id order, then the
// finger-driven and successor-chain lookups must agree on the
// resulting 3-node ring for keys on every arc.
func TestThreeNodeJoinAndRouting(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10) // ring: a
	b := newTestNode(t, sp, c, "b", 100)
	d := newTestNode(t, sp, c, "d", 200)

	ctx := context.Background()
	if err := b.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("b.Join: %v", err)
	}
	if err := d.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("d.Join: %v", err)
	}

	// Ring closure: a -> b -> d -> a.
	if !a.Successor().Equal(b.Descriptor()) {
		t.Fatalf("a.successor = %v, want b", a.Successor())
	}
	if !b.Successor().Equal(d.Descriptor()) {
		t.Fatalf("b.successor = %v, want d", b.Successor())
	}
	if !d.Successor().Equal(a.Descriptor()) {
		t.Fatalf("d.successor = %v, want a", d.Successor())
	}

	for _, target := range []int{0, 5, 10, 50, 100, 150, 200, 250, 255} {
		id, _ := sp.IDFromHex(hex2(target))
		for _, n := range []*Node{a, b, d} {
			got, err := n.FindSuccessor(ctx, id)
			if err != nil {
				t.Fatalf("%s.FindSuccessor(%d): %v", n.Descriptor().Addr, target, err)
			}
			want, err := n.LookupWithSucc(ctx, id)
			if err != nil {
				t.Fatalf("%s.LookupWithSucc(%d): %v", n.Descriptor().Addr, target, err)
			}
			if !got.Equal(want) {
				t.Errorf("%s: FindSuccessor(%d)=%v disagrees with LookupWithSucc=%v",
					n.Descriptor().Addr, target, got, want)
			}
		}
	}
}

// TestStabilizationConvergence: after two nodes join through the same
// bootstrap node, ten rounds of stabilize and full finger sweeps on
// every node must leave the ring correctly closed.
func TestStabilizationConvergence(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	a := newTestNode(t, sp, c, "a", 10)
	b := newTestNode(t, sp, c, "b", 100)
	d := newTestNode(t, sp, c, "d", 200)

	ctx := context.Background()
	// b and d join one after the other, both through a.
	if err := b.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("b.Join: %v", err)
	}
	if err := d.Join(ctx, a.Descriptor()); err != nil {
		t.Fatalf("d.Join: %v", err)
	}

	all := []*Node{a, b, d}
	for round := 0; round < 10; round++ {
		for _, n := range all {
			if err := n.stabilize(ctx); err != nil {
				t.Fatalf("stabilize: %v", err)
			}
		}
		for _, n := range all {
			for i := 1; i < sp.Bits; i++ {
				n.fixFinger(ctx, i)
			}
		}
	}

	if !a.Successor().Equal(b.Descriptor()) {
		t.Errorf("after convergence a.successor = %v, want b", a.Successor())
	}
	if !b.Successor().Equal(d.Descriptor()) {
		t.Errorf("after convergence b.successor = %v, want d", b.Successor())
	}
	if !d.Successor().Equal(a.Descriptor()) {
		t.Errorf("after convergence d.successor = %v, want a", d.Successor())
	}
}
