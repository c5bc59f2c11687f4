package rpc

import (
	"fmt"

	"chordring/internal/key"
	"chordring/internal/ring"
)

// descriptorMsg is the wire form of a ring.Descriptor: the identifier
// travels hex-encoded since JSON has no native fixed-width byte type.
type descriptorMsg struct {
	Addr string `json:"addr"`
	ID   string `json:"id"`
}

func toMsg(d ring.Descriptor) descriptorMsg {
	return descriptorMsg{Addr: d.Addr, ID: d.ID.Hex(false)}
}

func (m descriptorMsg) toDescriptor(sp key.Space) (ring.Descriptor, error) {
	if m.Addr == "" && m.ID == "" {
		return ring.Descriptor{}, nil
	}
	id, err := sp.IDFromHex(m.ID)
	if err != nil {
		return ring.Descriptor{}, fmt.Errorf("rpc: decode descriptor %q: %w", m.ID, err)
	}
	return ring.Descriptor{Addr: m.Addr, ID: id}, nil
}

type keyMsg struct {
	ID string `json:"id"`
}

type emptyMsg struct{}

type descriptorResponse struct {
	Descriptor descriptorMsg `json:"descriptor"`
}

type getPredecessorResponse struct {
	Predecessor *descriptorMsg `json:"predecessor,omitempty"`
}

type findPredecessorResponse struct {
	Predecessor descriptorMsg `json:"predecessor"`
	Successor   descriptorMsg `json:"successor"`
}

type setSuccessorRequest struct {
	Successor descriptorMsg `json:"successor"`
}

type setPredecessorRequest struct {
	Predecessor descriptorMsg `json:"predecessor"`
}

type notifyRequest struct {
	Candidate descriptorMsg `json:"candidate"`
}

type updateFingerTableRequest struct {
	Node  descriptorMsg `json:"node"`
	Index int32         `json:"index"`
}

// describeResponse is the operator-facing snapshot served by the
// Describe RPC and consumed by cmd/ringctl.
type describeResponse struct {
	Self        descriptorMsg   `json:"self"`
	Predecessor *descriptorMsg  `json:"predecessor,omitempty"`
	Successor   descriptorMsg   `json:"successor"`
	Fingers     []descriptorMsg `json:"fingers"`
}

// Snapshot is the decoded form of describeResponse, handed back to
// rpc.Client callers (cmd/ringctl) instead of the wire shape.
type Snapshot struct {
	Self        ring.Descriptor
	Predecessor *ring.Descriptor
	Successor   ring.Descriptor
	Fingers     []ring.Descriptor
}

func (m describeResponse) toSnapshot(sp key.Space) (Snapshot, error) {
	self, err := m.Self.toDescriptor(sp)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rpc: decode self: %w", err)
	}
	succ, err := m.Successor.toDescriptor(sp)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rpc: decode successor: %w", err)
	}
	out := Snapshot{Self: self, Successor: succ}
	if m.Predecessor != nil {
		pred, err := m.Predecessor.toDescriptor(sp)
		if err != nil {
			return Snapshot{}, fmt.Errorf("rpc: decode predecessor: %w", err)
		}
		out.Predecessor = &pred
	}
	for _, fm := range m.Fingers {
		f, err := fm.toDescriptor(sp)
		if err != nil {
			return Snapshot{}, fmt.Errorf("rpc: decode finger: %w", err)
		}
		out.Fingers = append(out.Fingers, f)
	}
	return out, nil
}
