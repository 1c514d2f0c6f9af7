package media

import "errors"

var (
	// ErrInvalidInput marks malformed, unsupported or zero-duration media.
	ErrInvalidInput = errors.New("invalid media input")

	// ErrUnsplittable marks input that cannot be sliced small enough to
	// satisfy both the payload-size and duration limits.
	ErrUnsplittable = errors.New("input cannot be split within limits")
)
