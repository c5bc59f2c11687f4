package ring

import (
	"context"

	"chordring/internal/key"
)

// Client is the outbound transport a remote Handle issues RPCs
// through. The grpc-backed implementation lives in internal/rpc; tests
// use an in-process fake wired directly to other Node instances.
type Client interface {
	GetSuccessor(ctx context.Context, to Descriptor) (Descriptor, error)
	GetPredecessor(ctx context.Context, to Descriptor) (Descriptor, bool, error)
	SetSuccessor(ctx context.Context, to, succ Descriptor) error
	SetPredecessor(ctx context.Context, to, pred Descriptor) error
	FindSuccessor(ctx context.Context, to Descriptor, id key.ID) (Descriptor, error)
	FindPredecessor(ctx context.Context, to Descriptor, id key.ID) (pred, predSucc Descriptor, err error)
	ClosestPrecedingFinger(ctx context.Context, to Descriptor, id key.ID) (Descriptor, error)
	NotifyNewPredecessor(ctx context.Context, to, candidate Descriptor) error
	UpdateFingerTable(ctx context.Context, to, s Descriptor, i int) error
	LookupWithSucc(ctx context.Context, to Descriptor, id key.ID) (Descriptor, error)
}

// Handle is the node-handle abstraction routing is written against: it
// dispatches either straight into this process's own Node (no RPC, no
// loopback through the network) or out to a remote peer through
// Client, depending on whether its descriptor names this node itself.
type Handle interface {
	Descriptor() Descriptor
	GetSuccessor(ctx context.Context) (Descriptor, error)
	GetPredecessor(ctx context.Context) (Descriptor, bool, error)
	SetSuccessor(ctx context.Context, succ Descriptor) error
	SetPredecessor(ctx context.Context, pred Descriptor) error
	FindSuccessor(ctx context.Context, id key.ID) (Descriptor, error)
	FindPredecessor(ctx context.Context, id key.ID) (pred, predSucc Descriptor, err error)
	ClosestPrecedingFinger(ctx context.Context, id key.ID) (Descriptor, error)
	NotifyNewPredecessor(ctx context.Context, candidate Descriptor) error
	UpdateFingerTable(ctx context.Context, s Descriptor, i int) error
	LookupWithSucc(ctx context.Context, id key.ID) (Descriptor, error)
}

// HandleFor returns the Handle used to reach d: local if d names this
// node's own descriptor, remote (through n's Client) otherwise.
func (n *Node) HandleFor(d Descriptor) Handle {
	if d.Equal(n.self) {
		return localHandle{n: n}
	}
	return remoteHandle{d: d, c: n.client}
}

// localHandle short-circuits every call into direct method calls on
// the owning Node, the way the node on the other end of a loopback
// dial would answer anyway, but without the round trip.
type localHandle struct{ n *Node }

func (h localHandle) Descriptor() Descriptor { return h.n.self }

func (h localHandle) GetSuccessor(context.Context) (Descriptor, error) {
	return h.n.rt.Successor(), nil
}

func (h localHandle) GetPredecessor(context.Context) (Descriptor, bool, error) {
	p, ok := h.n.rt.Predecessor()
	return p, ok, nil
}

func (h localHandle) SetSuccessor(_ context.Context, succ Descriptor) error {
	h.n.rt.SetSuccessor(succ)
	return nil
}

func (h localHandle) SetPredecessor(_ context.Context, pred Descriptor) error {
	h.n.rt.SetPredecessor(pred)
	return nil
}

func (h localHandle) FindSuccessor(ctx context.Context, id key.ID) (Descriptor, error) {
	return h.n.FindSuccessor(ctx, id)
}

func (h localHandle) FindPredecessor(ctx context.Context, id key.ID) (Descriptor, Descriptor, error) {
	return h.n.FindPredecessor(ctx, id)
}

func (h localHandle) ClosestPrecedingFinger(_ context.Context, id key.ID) (Descriptor, error) {
	return h.n.ClosestPrecedingFinger(id), nil
}

func (h localHandle) NotifyNewPredecessor(_ context.Context, candidate Descriptor) error {
	h.n.NotifyNewPredecessor(candidate)
	return nil
}

func (h localHandle) UpdateFingerTable(ctx context.Context, s Descriptor, i int) error {
	return h.n.UpdateFingerTable(ctx, s, i)
}

func (h localHandle) LookupWithSucc(ctx context.Context, id key.ID) (Descriptor, error) {
	return h.n.LookupWithSucc(ctx, id)
}

// remoteHandle dispatches every call as an RPC to d through c.
type remoteHandle struct {
	d Descriptor
	c Client
}

func (h remoteHandle) Descriptor() Descriptor { return h.d }

func (h remoteHandle) GetSuccessor(ctx context.Context) (Descriptor, error) {
	return h.c.GetSuccessor(ctx, h.d)
}

func (h remoteHandle) GetPredecessor(ctx context.Context) (Descriptor, bool, error) {
	return h.c.GetPredecessor(ctx, h.d)
}

func (h remoteHandle) SetSuccessor(ctx context.Context, succ Descriptor) error {
	return h.c.SetSuccessor(ctx, h.d, succ)
}

func (h remoteHandle) SetPredecessor(ctx context.Context, pred Descriptor) error {
	return h.c.SetPredecessor(ctx, h.d, pred)
}

func (h remoteHandle) FindSuccessor(ctx context.Context, id key.ID) (Descriptor, error) {
	return h.c.FindSuccessor(ctx, h.d, id)
}

func (h remoteHandle) FindPredecessor(ctx context.Context, id key.ID) (Descriptor, Descriptor, error) {
	return h.c.FindPredecessor(ctx, h.d, id)
}

func (h remoteHandle) ClosestPrecedingFinger(ctx context.Context, id key.ID) (Descriptor, error) {
	return h.c.ClosestPrecedingFinger(ctx, h.d, id)
}

func (h remoteHandle) NotifyNewPredecessor(ctx context.Context, candidate Descriptor) error {
	return h.c.NotifyNewPredecessor(ctx, h.d, candidate)
}

func (h remoteHandle) UpdateFingerTable(ctx context.Context, s Descriptor, i int) error {
	return h.c.UpdateFingerTable(ctx, h.d, s, i)
}

func (h remoteHandle) LookupWithSucc(ctx context.Context, id key.ID) (Descriptor, error) {
	return h.c.LookupWithSucc(ctx, h.d, id)
}
