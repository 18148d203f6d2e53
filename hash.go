package primordium

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// DeterministicHash computes the replay-divergence hash described in spec
// §6: SHA-256 over tick, sorted (id, position, energy, lineage_id, sensing,
// speed, max_energy), sorted (food position, nutrient), terrain cells (type
// + fertility), and carbon/oxygen. Stdlib crypto/sha256 is used directly —
// this is a single unambiguous correctness primitive the spec names
// explicitly, not a concern any pack library targets (see SPEC_FULL §11).
func DeterministicHash(w *World) string {
	h := sha256.New()
	var buf [8]byte

	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeF64 := func(v float64) {
		writeU64(math.Float64bits(v))
	}

	writeU64(w.Tick)

	type agentKey struct {
		id    AgentID
		a     *Agent
	}
	keys := make([]agentKey, 0, len(w.Agents))
	for _, a := range w.Agents {
		if a.Alive {
			keys = append(keys, agentKey{a.ID, a})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].id.String() < keys[j].id.String() })
	for _, k := range keys {
		h.Write([]byte(k.id.String()))
		writeF64(k.a.Position.X)
		writeF64(k.a.Position.Y)
		writeF64(k.a.Metabolism.Energy)
		h.Write([]byte(k.a.Metabolism.LineageID.String()))
		writeF64(k.a.Intel.Genotype.Get().SensingRange)
		writeF64(k.a.Intel.Genotype.Get().MaxSpeed)
		writeF64(k.a.Intel.Genotype.Get().MaxEnergy)
	}

	type foodKey struct {
		x, y, nutrient float64
	}
	fkeys := make([]foodKey, 0, len(w.Food))
	for _, f := range w.Food {
		fkeys = append(fkeys, foodKey{f.Position.X, f.Position.Y, f.NutrientType})
	}
	sort.Slice(fkeys, func(i, j int) bool {
		if fkeys[i].x != fkeys[j].x {
			return fkeys[i].x < fkeys[j].x
		}
		return fkeys[i].y < fkeys[j].y
	})
	for _, fk := range fkeys {
		writeF64(fk.x)
		writeF64(fk.y)
		writeF64(fk.nutrient)
	}

	for _, c := range w.Terrain.Cells {
		writeU64(uint64(c.Type))
		writeF64(c.Fertility)
	}

	writeF64(w.Environment.Carbon)
	writeF64(w.Environment.Oxygen)

	return hex.EncodeToString(h.Sum(nil))
}
