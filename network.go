package primordium

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/net/websocket"
)

// maxFrameBytes is the per-message cap the wire protocol enforces before
// even attempting to decode a frame (spec §6).
const maxFrameBytes = 100 * 1024

// NetworkMessageKind discriminates the engine-facing subset of the
// migration/trade protocol (spec §6).
type NetworkMessageKind string

const (
	MsgMigrateEntity NetworkMessageKind = "migrate_entity"
	MsgMigrateAck    NetworkMessageKind = "migrate_ack"
	MsgRelief        NetworkMessageKind = "relief"
	MsgTradeOffer    NetworkMessageKind = "trade_offer"
	MsgTradeAccept   NetworkMessageKind = "trade_accept"
	MsgTradeRevoke   NetworkMessageKind = "trade_revoke"
	MsgGlobalEvent   NetworkMessageKind = "global_event"
)

// MigrateEntity carries one agent's portable state across the network
// boundary. DNA is the hex-encoded serialized Genotype; checksum guards
// against truncation/corruption in transit.
type MigrateEntity struct {
	MigrationID string  `json:"migration_id"`
	DNA         string  `json:"dna"`
	Energy      float64 `json:"energy"`
	Generation  int     `json:"generation"`
	SpeciesName string  `json:"species_name"`
	Fingerprint string  `json:"fingerprint"`
	Checksum    string  `json:"checksum"`
}

type MigrateAck struct {
	MigrationID string `json:"migration_id"`
}

type Relief struct {
	LineageID LineageID `json:"lineage_id"`
	Amount    float64   `json:"amount"`
	SenderID  string    `json:"sender_id"`
}

type TradeProposal struct {
	ProposalID string  `json:"proposal_id"`
	Resource   string  `json:"resource"`
	Amount     float64 `json:"amount"`
	Incoming   bool    `json:"incoming"`
}

type TradeOffer struct {
	Proposal TradeProposal `json:"proposal"`
}

type TradeAccept struct {
	ProposalID string `json:"proposal_id"`
}

type TradeRevoke struct {
	ProposalID string `json:"proposal_id"`
}

type GlobalEvent struct {
	Type string `json:"type"`
}

// envelope is the wire-level {kind, payload} wrapper every frame uses.
type envelope struct {
	Kind    NetworkMessageKind `json:"kind"`
	Payload json.RawMessage    `json:"payload"`
}

// ConfigFingerprint derives a short, comparable hash of the fields that
// must match between two engines for a migrated agent to make sense (world
// dimensions and input/output arity), so an incompatible peer is rejected
// up front rather than producing a malformed agent.
func ConfigFingerprint(cfg SimulationConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%d|%d", int(cfg.World.Width), int(cfg.World.Height), NumInputs, NumOutputs)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func migrationChecksum(dna string, energy float64, generation int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%f|%d", dna, energy, generation)
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeMigration builds a MigrateEntity frame for an outgoing agent (spec
// §6 Scenario E: "engine A exports agent at x=width-1").
func EncodeMigration(a *Agent, cfg SimulationConfig) (MigrateEntity, error) {
	body, err := json.Marshal(a.Intel.Genotype.Get())
	if err != nil {
		return MigrateEntity{}, wrapf(ErrBadInput, err.Error())
	}
	dna := hex.EncodeToString(body)
	return MigrateEntity{
		MigrationID: a.ID.String(), DNA: dna, Energy: a.Metabolism.Energy,
		Generation: a.Metabolism.Generation, SpeciesName: a.Metabolism.LineageID.String(),
		Fingerprint: ConfigFingerprint(cfg), Checksum: migrationChecksum(dna, a.Metabolism.Energy, a.Metabolism.Generation),
	}, nil
}

// DecodeMigration validates and rebuilds an Agent from an incoming
// MigrateEntity, spawning it at a random edge cell. A fingerprint mismatch
// or checksum failure returns ErrNetwork and spawns nothing (spec §7).
func DecodeMigration(msg MigrateEntity, cfg SimulationConfig, rng *AgentRNG) (*Agent, error) {
	if msg.Fingerprint != ConfigFingerprint(cfg) {
		return nil, wrapf(ErrNetwork, "config fingerprint mismatch")
	}
	if migrationChecksum(msg.DNA, msg.Energy, msg.Generation) != msg.Checksum {
		return nil, wrapf(ErrNetwork, "checksum mismatch")
	}
	raw, err := hex.DecodeString(msg.DNA)
	if err != nil {
		return nil, wrapf(ErrNetwork, "malformed dna hex")
	}
	var g Genotype
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, wrapf(ErrNetwork, "malformed dna payload")
	}
	g.Clamp()

	pos := edgeSpawnPosition(rng, cfg.World.Width, cfg.World.Height)
	return &Agent{
		ID: NewAgentID(), Position: pos,
		Physics: Physics{SensingRange: g.SensingRange, MaxSpeed: g.MaxSpeed, Appearance: Appearance{Glyph: 'm'}},
		Metabolism: Metabolism{
			Energy: Clamp(msg.Energy, 0, g.MaxEnergy), MaxEnergy: g.MaxEnergy, PeakEnergy: msg.Energy,
			Generation: msg.Generation, LineageID: NewLineageID(), IsInTransit: true,
		},
		Intel: Intel{Genotype: NewGenotypeRef(&g), AncestralTraits: map[string]bool{}},
		Alive: true,
	}, nil
}

func edgeSpawnPosition(rng *AgentRNG, width, height float64) Vector2D {
	switch rng.IntN(4) {
	case 0:
		return Vector2D{X: 0, Y: rng.Uniform(0, height)}
	case 1:
		return Vector2D{X: prevFloat(width), Y: rng.Uniform(0, height)}
	case 2:
		return Vector2D{X: rng.Uniform(0, width), Y: 0}
	default:
		return Vector2D{X: rng.Uniform(0, width), Y: prevFloat(height)}
	}
}

// ReceiveMigration implements the in-engine side of a migration round trip:
// given a decoded MigrateEntity, spawn the arriving agent and report the
// MigrateAck the caller should send back over the wire (spec §6 Scenario
// E). Despawning the sender's original agent on MigrateAck receipt is the
// caller's responsibility (DespawnMigrated), since it runs on engine A
// while this runs on engine B.
func (w *World) ReceiveMigration(msg MigrateEntity) (MigrateAck, error) {
	rng := DeriveRNG(w.Config.World.Seed, w.Tick, 0x31, 0x67)
	agent, err := DecodeMigration(msg, w.Config, rng)
	if err != nil {
		return MigrateAck{}, err
	}
	w.Agents = append(w.Agents, agent)
	return MigrateAck{MigrationID: msg.MigrationID}, nil
}

// DespawnMigrated removes the local agent whose id string matches
// migrationID, called when the remote engine's MigrateAck confirms receipt.
func (w *World) DespawnMigrated(migrationID string) {
	for _, a := range w.Agents {
		if a.Alive && a.ID.String() == migrationID {
			a.Alive = false
			return
		}
	}
}

// ApplyRelief credits amount to the target lineage by lowering its
// TotalEnergyConsumed, a narrow proxy since the engine has no other
// lineage-scoped energy ledger (spec §6 Relief). An unknown lineage is
// ignored.
func (w *World) ApplyRelief(r Relief) {
	if l, ok := w.Lineages.Get(r.LineageID); ok {
		l.TotalEnergyConsumed -= r.Amount
	}
}

// DecodeFrame validates a frame's size then dispatches on kind. Frames over
// maxFrameBytes or with malformed JSON are dropped with ErrNetwork (spec §7:
// "drop frame, log warning").
func DecodeFrame(raw []byte) (NetworkMessageKind, json.RawMessage, error) {
	if len(raw) > maxFrameBytes {
		return "", nil, wrapf(ErrNetwork, "frame exceeds size cap")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, wrapf(ErrNetwork, "malformed frame json")
	}
	return env.Kind, env.Payload, nil
}

// ServeMigration opens a websocket handler suitable for golang.org/x/net's
// websocket.Handler adaptor: it reads one JSON frame per message, dispatches
// recognized kinds, and never blocks the simulation tick (the handler only
// enqueues decoded messages; applying them happens between ticks via the
// command-interface mutators in commands_external.go).
func ServeMigration(w *World, inbox chan<- envelope) websocket.Handler {
	return func(ws *websocket.Conn) {
		defer ws.Close()
		for {
			var raw []byte
			if err := websocket.Message.Receive(ws, &raw); err != nil {
				return
			}
			kind, payload, err := DecodeFrame(raw)
			if err != nil {
				w.logBuf.Warn("dropped malformed network frame", map[string]interface{}{"error": err.Error()})
				continue
			}
			select {
			case inbox <- envelope{Kind: kind, Payload: payload}:
			default:
				w.logBuf.Warn("network inbox full, dropping frame", map[string]interface{}{"kind": string(kind)})
			}
		}
	}
}
