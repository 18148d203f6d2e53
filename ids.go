package primordium

import (
	"github.com/google/uuid"
)

// AgentID is a 128-bit stable identity for an agent, never reused.
type AgentID uuid.UUID

// NilAgentID is the zero-value AgentID, used to mean "no parent"/"no partner".
var NilAgentID = AgentID(uuid.Nil)

// NewAgentID allocates a fresh random agent identity.
func NewAgentID() AgentID {
	return AgentID(uuid.New())
}

// IsNil reports whether this id is the zero identity.
func (id AgentID) IsNil() bool {
	return id == NilAgentID
}

func (id AgentID) String() string {
	return uuid.UUID(id).String()
}

// Halves returns the id split into two uint64 words, used to seed per-agent
// RNG streams deterministically (spec: ChaCha8(world_seed ^ tick ^ id)).
func (id AgentID) Halves() (lo, hi uint64) {
	u := uuid.UUID(id)
	for i := 0; i < 8; i++ {
		lo = lo<<8 | uint64(u[i])
	}
	for i := 8; i < 16; i++ {
		hi = hi<<8 | uint64(u[i])
	}
	return lo, hi
}

// LineageID identifies an equivalence class of agents descended from a
// common founder.
type LineageID uuid.UUID

// NilLineageID means "no lineage" (should not occur for live agents).
var NilLineageID = LineageID(uuid.Nil)

// NewLineageID allocates a fresh lineage identity.
func NewLineageID() LineageID {
	return LineageID(uuid.New())
}

func (id LineageID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText writes the canonical UUID text form, which also lets a
// LineageID key a JSON object.
func (id LineageID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText parses the text form written by MarshalText.
func (id *LineageID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
