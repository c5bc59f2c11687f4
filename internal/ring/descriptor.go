package ring

import "chordring/internal/key"

// Descriptor identifies a ring member: the address other nodes dial to
// reach it, and its identifier in the ring's key space.
type Descriptor struct {
	Addr string
	ID   key.ID
}

// Equal compares descriptors by address and identifier.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Addr == o.Addr && d.ID.Equal(o.ID)
}

// IsZero reports whether d is the unset descriptor.
func (d Descriptor) IsZero() bool {
	return d.Addr == "" && len(d.ID) == 0
}

// LogString implements logger.NodeDescriptor.
func (d Descriptor) LogString() string {
	if d.IsZero() {
		return "<none>"
	}
	return d.Addr + "#" + d.ID.Hex(false)
}
