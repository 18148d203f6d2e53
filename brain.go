package primordium

import "math"

// HiddenState is the agent-private recurrent memory carried across ticks.
type HiddenState map[int]float64

// Forward evaluates the brain over inputs (length NumInputs), reading
// recurrent edges from prevHidden (the previous tick's node values) and
// writing this tick's hidden/output values into nextHidden. It returns the
// NumOutputs-length output vector. Pure with respect to anything outside the
// brain and the two hidden-state maps passed in (spec §4.4: write-through is
// private to the agent).
func (b *Brain) Forward(inputs [NumInputs]float64, prevHidden HiddenState) (outputs [NumOutputs]float64, nextHidden HiddenState) {
	values := make(map[int]float64, len(b.Nodes))
	for i, v := range inputs {
		values[i] = v
	}

	order := b.topoOrder()
	incoming := make(map[int][]Connection)
	for _, c := range b.Connections {
		if !c.Enabled {
			continue
		}
		incoming[c.To] = append(incoming[c.To], c)
	}

	nextHidden = make(HiddenState, len(b.Nodes))
	for _, id := range order {
		node := b.nodeByID(id)
		if node == nil || node.Kind == NodeInput {
			continue
		}
		sum := 0.0
		for _, c := range incoming[id] {
			if c.Recurrent {
				sum += c.Weight * prevHidden[c.From]
				continue
			}
			if v, ok := values[c.From]; ok {
				sum += c.Weight * v
			}
		}
		activated := math.Tanh(sum)
		values[id] = activated
		if node.Kind == NodeHidden {
			nextHidden[id] = activated
		}
	}

	for i := 0; i < NumOutputs; i++ {
		id := NumInputs + i
		outputs[i] = Clamp(values[id], -1, 1)
		nextHidden[id] = values[id]
	}
	return outputs, nextHidden
}

func (b *Brain) nodeByID(id int) *Node {
	for i := range b.Nodes {
		if b.Nodes[i].ID == id {
			return &b.Nodes[i]
		}
	}
	return nil
}

// topoOrder returns node ids in a topological order over the non-recurrent
// forward edges (Kahn's algorithm); recurrent edges are excluded from the
// dependency graph since they read the *previous* tick's value and can
// therefore never create a same-tick cycle.
func (b *Brain) topoOrder() []int {
	indeg := make(map[int]int, len(b.Nodes))
	adj := make(map[int][]int)
	for _, n := range b.Nodes {
		indeg[n.ID] = 0
	}
	for _, c := range b.Connections {
		if !c.Enabled || c.Recurrent {
			continue
		}
		indeg[c.To]++
		adj[c.From] = append(adj[c.From], c.To)
	}

	var queue []int
	for _, n := range b.Nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	// Deterministic order: process queue in ascending id order every round.
	order := make([]int, 0, len(b.Nodes))
	for len(queue) > 0 {
		sortInts(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, to := range adj[id] {
			indeg[to]--
			if indeg[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	// Any node left out (should not happen on an acyclic forward graph) is
	// appended so every node is still assigned some output; invariant 2
	// guards against this in well-formed brains.
	seen := make(map[int]bool, len(order))
	for _, id := range order {
		seen[id] = true
	}
	for _, n := range b.Nodes {
		if !seen[n.ID] {
			order = append(order, n.ID)
		}
	}
	return order
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
