package primordium

import "errors"

// Error taxonomy (spec §7). Every sentinel is safe to compare with
// errors.Is; none of these ever escape World.Step as a panic — they are
// recorded (logged, or stored on World.LastPersistenceError) and the
// operation that produced them becomes a no-op.
var (
	// ErrBadInput: out-of-range gene edit, malformed hex DNA, trade of an
	// unknown resource. Policy: clamp or reject silently.
	ErrBadInput = errors.New("primordium: bad input")

	// ErrTransientPersistence: storage channel full, write failed. Policy:
	// record in LastPersistenceError, engine continues.
	ErrTransientPersistence = errors.New("primordium: transient persistence failure")

	// ErrCorruptSave: unknown save version or deserialization error.
	// Policy: refuse to load, return to caller.
	ErrCorruptSave = errors.New("primordium: corrupt or unsupported save")

	// ErrArithmeticDegeneracy: non-finite position/velocity detected.
	// Policy: treat as absent in spatial index, damp to zero.
	ErrArithmeticDegeneracy = errors.New("primordium: non-finite state detected")

	// ErrLogicalOverflow: more lineages/entities than a configured cap.
	// Policy: prune by age/count, truncate spawn batch.
	ErrLogicalOverflow = errors.New("primordium: logical capacity exceeded")

	// ErrNetwork: oversized frame or malformed JSON on the wire.
	// Policy: drop frame, log warning.
	ErrNetwork = errors.New("primordium: network frame rejected")
)

// wrapf is a tiny helper to attach context to a sentinel without pulling in
// fmt at every call site that just needs "sentinel: detail".
func wrapf(sentinel error, detail string) error {
	return &taggedError{sentinel: sentinel, detail: detail}
}

type taggedError struct {
	sentinel error
	detail   string
}

func (e *taggedError) Error() string { return e.sentinel.Error() + ": " + e.detail }
func (e *taggedError) Unwrap() error { return e.sentinel }
