package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chordring/internal/key"
	"chordring/internal/logger"
	"chordring/internal/ring"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is the grpc-backed implementation of ring.Client: it dials
// each peer address lazily and keeps the connection around for reuse,
// since routing hops repeatedly address the same handful of peers
// (predecessor, successor, and finger targets).
type Client struct {
	space   key.Space
	timeout time.Duration
	lgr     logger.Logger
	dial    []grpc.DialOption

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

var _ ring.Client = (*Client)(nil)

// NewClient builds a Client that bounds every outbound RPC to timeout
// (2x the stabilization interval is a sensible bound: a peer that slow
// will be retried by the next round anyway).
func NewClient(space key.Space, timeout time.Duration, lgr logger.Logger, tracingEnabled bool) *Client {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	}
	if tracingEnabled {
		dial = append(dial, grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	}
	return &Client{
		space:   space,
		timeout: timeout,
		lgr:     lgr.Named("rpc-client"),
		dial:    dial,
		conns:   make(map[string]*grpc.ClientConn),
	}
}

// Close tears down every pooled connection, called once at node stop.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for addr, cc := range c.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rpc: close %s: %w", addr, err)
		}
	}
	c.conns = make(map[string]*grpc.ClientConn)
	return firstErr
}

func (c *Client) connFor(addr string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.conns[addr]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(addr, c.dial...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	c.conns[addr] = cc
	return cc, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) invoke(ctx context.Context, to ring.Descriptor, method string, req, resp interface{}) error {
	cc, err := c.connFor(to.Addr)
	if err != nil {
		return fmt.Errorf("rpc: node unreachable (%s): %w", to.LogString(), err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	fullMethod := fmt.Sprintf("/%s/%s", serviceName, method)
	if err := cc.Invoke(ctx, fullMethod, req, resp); err != nil {
		return fmt.Errorf("rpc: node unreachable (%s): %w", to.LogString(), err)
	}
	return nil
}

func (c *Client) GetSuccessor(ctx context.Context, to ring.Descriptor) (ring.Descriptor, error) {
	resp := new(descriptorResponse)
	if err := c.invoke(ctx, to, "GetSuccessor", &emptyMsg{}, resp); err != nil {
		return ring.Descriptor{}, err
	}
	return resp.Descriptor.toDescriptor(c.space)
}

func (c *Client) GetPredecessor(ctx context.Context, to ring.Descriptor) (ring.Descriptor, bool, error) {
	resp := new(getPredecessorResponse)
	if err := c.invoke(ctx, to, "GetPredecessor", &emptyMsg{}, resp); err != nil {
		return ring.Descriptor{}, false, err
	}
	if resp.Predecessor == nil {
		return ring.Descriptor{}, false, nil
	}
	pred, err := resp.Predecessor.toDescriptor(c.space)
	if err != nil {
		return ring.Descriptor{}, false, err
	}
	return pred, true, nil
}

func (c *Client) SetSuccessor(ctx context.Context, to, succ ring.Descriptor) error {
	return c.invoke(ctx, to, "SetSuccessor", &setSuccessorRequest{Successor: toMsg(succ)}, new(emptyMsg))
}

func (c *Client) SetPredecessor(ctx context.Context, to, pred ring.Descriptor) error {
	return c.invoke(ctx, to, "SetPredecessor", &setPredecessorRequest{Predecessor: toMsg(pred)}, new(emptyMsg))
}

func (c *Client) FindSuccessor(ctx context.Context, to ring.Descriptor, id key.ID) (ring.Descriptor, error) {
	resp := new(descriptorResponse)
	if err := c.invoke(ctx, to, "FindSuccessor", &keyMsg{ID: id.Hex(false)}, resp); err != nil {
		return ring.Descriptor{}, err
	}
	return resp.Descriptor.toDescriptor(c.space)
}

func (c *Client) FindPredecessor(ctx context.Context, to ring.Descriptor, id key.ID) (ring.Descriptor, ring.Descriptor, error) {
	resp := new(findPredecessorResponse)
	if err := c.invoke(ctx, to, "FindPredecessor", &keyMsg{ID: id.Hex(false)}, resp); err != nil {
		return ring.Descriptor{}, ring.Descriptor{}, err
	}
	pred, err := resp.Predecessor.toDescriptor(c.space)
	if err != nil {
		return ring.Descriptor{}, ring.Descriptor{}, err
	}
	succ, err := resp.Successor.toDescriptor(c.space)
	if err != nil {
		return ring.Descriptor{}, ring.Descriptor{}, err
	}
	return pred, succ, nil
}

func (c *Client) ClosestPrecedingFinger(ctx context.Context, to ring.Descriptor, id key.ID) (ring.Descriptor, error) {
	resp := new(descriptorResponse)
	if err := c.invoke(ctx, to, "ClosestPrecedingFinger", &keyMsg{ID: id.Hex(false)}, resp); err != nil {
		return ring.Descriptor{}, err
	}
	return resp.Descriptor.toDescriptor(c.space)
}

func (c *Client) NotifyNewPredecessor(ctx context.Context, to, candidate ring.Descriptor) error {
	return c.invoke(ctx, to, "NotifyNewPredecessor", &notifyRequest{Candidate: toMsg(candidate)}, new(emptyMsg))
}

func (c *Client) UpdateFingerTable(ctx context.Context, to, s ring.Descriptor, i int) error {
	return c.invoke(ctx, to, "UpdateFingerTable", &updateFingerTableRequest{Node: toMsg(s), Index: int32(i)}, new(emptyMsg))
}

func (c *Client) LookupWithSucc(ctx context.Context, to ring.Descriptor, id key.ID) (ring.Descriptor, error) {
	resp := new(descriptorResponse)
	if err := c.invoke(ctx, to, "LookupWithSucc", &keyMsg{ID: id.Hex(false)}, resp); err != nil {
		return ring.Descriptor{}, err
	}
	return resp.Descriptor.toDescriptor(c.space)
}

// Describe fetches the operator-facing routing snapshot of the node at
// addr, used by cmd/ringctl and not part of the ring.Client interface
// (the core never calls it itself).
func (c *Client) Describe(ctx context.Context, to ring.Descriptor) (Snapshot, error) {
	resp := new(describeResponse)
	if err := c.invoke(ctx, to, "Describe", &emptyMsg{}, resp); err != nil {
		return Snapshot{}, err
	}
	return resp.toSnapshot(c.space)
}
