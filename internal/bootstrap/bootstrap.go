// Package bootstrap discovers the addresses of existing ring members a
// new node can join through. The routing core itself only ever needs
// one reachable peer address to call Join on; how that address is
// found is this package's concern.
package bootstrap

import "context"

// Bootstrap resolves and maintains this node's membership in whatever
// directory peers use to find each other before the ring itself can
// answer that question.
type Bootstrap interface {
	// Discover returns the addresses of currently known ring members,
	// in no particular order. An empty result (no error) means this
	// node is the first member: it should not call Join.
	Discover(ctx context.Context) ([]string, error)
	// Register publishes selfAddr as a joinable peer.
	Register(ctx context.Context, selfAddr string) error
	// Deregister removes selfAddr, best-effort, at node shutdown.
	Deregister(ctx context.Context, selfAddr string) error
}

// Static is a fixed peer list supplied at startup: the simplest
// bootstrap mode, useful for tests and small static deployments.
type Static struct {
	peers []string
}

// NewStatic returns a Bootstrap that always discovers peers exactly as
// given; an address of this node's own in the list is not removed.
func NewStatic(peers []string) *Static {
	cp := make([]string, len(peers))
	copy(cp, peers)
	return &Static{peers: cp}
}

func (s *Static) Discover(context.Context) ([]string, error) { return s.peers, nil }
func (s *Static) Register(context.Context, string) error     { return nil }
func (s *Static) Deregister(context.Context, string) error   { return nil }
