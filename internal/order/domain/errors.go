package domain

import "errors"

var (
	// ErrCounterExhausted is returned when the counter transaction keeps
	// aborting past the retry budget.
	ErrCounterExhausted = errors.New("counter_retries_exhausted")
	// ErrCounterMissing is returned when the counter row has not been
	// seeded by migrations.
	ErrCounterMissing = errors.New("counter_missing")
	// ErrInvalidBlockSize is returned for non-positive reservation sizes.
	ErrInvalidBlockSize = errors.New("invalid_block_size")
	// ErrEmptyChunk is returned when a write chunk carries no orders.
	ErrEmptyChunk = errors.New("empty_chunk")
)
