package primordium

// Food is a point resource, consumed atomically by the first successful
// EatFood command for its index (spec §4.6). Grounded on the teacher's
// plant.go nutrient-value idea, simplified to a point resource since the
// spec's Food is not itself a reproducing organism.
type Food struct {
	Position    Vector2D
	NutrientType float64 // [0, 1]
	Value        float64
}
