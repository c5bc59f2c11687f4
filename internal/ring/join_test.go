package ring

import (
	"context"
	"testing"

	"chordring/internal/key"
)

// TestUpdateFingerTableBoundaryIsSelfInclusive pins the interval used
// by UpdateFingerTable to [start, responsible.id): a node landing
// exactly on the finger's start must still update the entry; the
// open-on-both-ends variant would silently skip it.
func TestUpdateFingerTableBoundaryIsSelfInclusive(t *testing.T) {
	sp := mustSpace(t, 8)
	c := &fakeClient{nodes: map[string]*Node{}}
	n := newTestNode(t, sp, c, "n", 10)

	const i = 3 // finger start = (10 + 2^3) mod 256 = 18
	start := n.rt.FingerStart(i)
	if start.Hex(false) != hex2(18) {
		t.Fatalf("finger %d start = %s, want %s (18 decimal)", i, start.Hex(false), hex2(18))
	}
	// Seed finger i with a distant responsible node so the interval
	// [start, responsible) is non-empty.
	far := Descriptor{Addr: "far", ID: mustID(t, sp, 200)}
	n.rt.SetFinger(i, far)

	// s lands exactly on start: must still be adopted.
	s := Descriptor{Addr: "s", ID: mustID(t, sp, 18)}
	if err := n.UpdateFingerTable(context.Background(), s, i); err != nil {
		t.Fatalf("UpdateFingerTable: %v", err)
	}
	if got := n.rt.Finger(i); !got.Equal(s) {
		t.Errorf("finger %d = %v, want %v (s landing on start must be adopted)", i, got, s)
	}
}

func mustID(t *testing.T, sp key.Space, v int) key.ID {
	t.Helper()
	id, err := sp.IDFromHex(hex2(v))
	if err != nil {
		t.Fatalf("IDFromHex(%d): %v", v, err)
	}
	return id
}
