package rpc

import (
	"context"

	"chordring/internal/key"
	"chordring/internal/ring"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service implements the Chord RPC surface by dispatching into a
// local *ring.Node: it is the service value NewServer registers with
// the grpc.ServiceDesc in server.go.
type Service struct {
	node  *ring.Node
	space key.Space
}

// NewService wraps n for RPC dispatch.
func NewService(n *ring.Node) *Service {
	return &Service{node: n, space: n.Space()}
}

func (s *Service) getSuccessor(_ context.Context, _ *emptyMsg) (*descriptorResponse, error) {
	return &descriptorResponse{Descriptor: toMsg(s.node.Successor())}, nil
}

func (s *Service) getPredecessor(_ context.Context, _ *emptyMsg) (*getPredecessorResponse, error) {
	pred, ok := s.node.Predecessor()
	if !ok {
		return &getPredecessorResponse{}, nil
	}
	m := toMsg(pred)
	return &getPredecessorResponse{Predecessor: &m}, nil
}

func (s *Service) setSuccessor(_ context.Context, req *setSuccessorRequest) (*emptyMsg, error) {
	succ, err := req.Successor.toDescriptor(s.space)
	if err != nil {
		return nil, err
	}
	s.node.RoutingTable().SetSuccessor(succ)
	return &emptyMsg{}, nil
}

func (s *Service) setPredecessor(_ context.Context, req *setPredecessorRequest) (*emptyMsg, error) {
	pred, err := req.Predecessor.toDescriptor(s.space)
	if err != nil {
		return nil, err
	}
	s.node.RoutingTable().SetPredecessor(pred)
	return &emptyMsg{}, nil
}

func (s *Service) findSuccessor(ctx context.Context, req *keyMsg) (*descriptorResponse, error) {
	id, err := s.space.IDFromHex(req.ID)
	if err != nil {
		return nil, err
	}
	d, err := s.node.FindSuccessor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &descriptorResponse{Descriptor: toMsg(d)}, nil
}

func (s *Service) findPredecessor(ctx context.Context, req *keyMsg) (*findPredecessorResponse, error) {
	id, err := s.space.IDFromHex(req.ID)
	if err != nil {
		return nil, err
	}
	pred, succ, err := s.node.FindPredecessor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &findPredecessorResponse{Predecessor: toMsg(pred), Successor: toMsg(succ)}, nil
}

func (s *Service) closestPrecedingFinger(_ context.Context, req *keyMsg) (*descriptorResponse, error) {
	id, err := s.space.IDFromHex(req.ID)
	if err != nil {
		return nil, err
	}
	return &descriptorResponse{Descriptor: toMsg(s.node.ClosestPrecedingFinger(id))}, nil
}

func (s *Service) notifyNewPredecessor(_ context.Context, req *notifyRequest) (*emptyMsg, error) {
	cand, err := req.Candidate.toDescriptor(s.space)
	if err != nil {
		return nil, err
	}
	s.node.NotifyNewPredecessor(cand)
	return &emptyMsg{}, nil
}

func (s *Service) updateFingerTable(ctx context.Context, req *updateFingerTableRequest) (*emptyMsg, error) {
	node, err := req.Node.toDescriptor(s.space)
	if err != nil {
		return nil, err
	}
	if req.Index < 0 || int(req.Index) >= s.space.Bits {
		return nil, status.Errorf(codes.InvalidArgument, "finger index %d out of range [0, %d)", req.Index, s.space.Bits)
	}
	if err := s.node.UpdateFingerTable(ctx, node, int(req.Index)); err != nil {
		return nil, err
	}
	return &emptyMsg{}, nil
}

func (s *Service) lookupWithSucc(ctx context.Context, req *keyMsg) (*descriptorResponse, error) {
	id, err := s.space.IDFromHex(req.ID)
	if err != nil {
		return nil, err
	}
	d, err := s.node.LookupWithSucc(ctx, id)
	if err != nil {
		return nil, err
	}
	return &descriptorResponse{Descriptor: toMsg(d)}, nil
}

func (s *Service) describe(_ context.Context, _ *emptyMsg) (*describeResponse, error) {
	snap := s.node.Snapshot()
	resp := &describeResponse{
		Self:      toMsg(snap.Self),
		Successor: toMsg(snap.Successor),
	}
	if snap.Predecessor != nil {
		m := toMsg(*snap.Predecessor)
		resp.Predecessor = &m
	}
	for _, f := range snap.Fingers {
		resp.Fingers = append(resp.Fingers, toMsg(f))
	}
	return resp, nil
}
