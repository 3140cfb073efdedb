package sharecore

import "errors"

// Sentinel errors returned by Job.ProcessShare. The stratum layer maps these
// to protocol error codes; the core never does that mapping itself.
var (
	// ErrDuplicateShare is returned when the (extranonce1, extranonce2, nTime,
	// nonce) tuple has already been recorded against this Job.
	ErrDuplicateShare = errors.New("duplicate share")

	// ErrLowDifficultyShare is returned when a share's computed difficulty
	// falls short of both the worker's current and previous difficulty.
	ErrLowDifficultyShare = errors.New("low difficulty share")

	// ErrShare wraps every other share-rejection reason not covered by a more
	// specific sentinel: malformed field sizes, out-of-range ntime, and
	// version-rolling mask violations. Use errors.Is(err, ErrShare) to detect
	// the family; the wrapped message carries the specific reason.
	ErrShare = errors.New("share rejected")

	// errStaleTemplate mirrors the pool's own freshness guard: a block
	// template that regresses height or curtime relative to the job it would
	// replace is a caller bug, not a share-validation outcome.
	errStaleTemplate = errors.New("stale template")
)
