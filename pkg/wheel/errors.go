package wheel

import "errors"

var (
	// ErrInvalidParameters is returned by NewEngine for a configuration that cannot be simulated.
	ErrInvalidParameters = errors.New("wheel: invalid parameters")
	// ErrMissingPriceData is returned by Run when a scheduled week has no usable bars.
	ErrMissingPriceData = errors.New("wheel: missing price data")
	// ErrDataUnavailable is returned by Run when the history provider cannot supply the range.
	ErrDataUnavailable = errors.New("wheel: price history unavailable")
	// ErrInvariantViolated means a transition left the portfolio in an impossible state.
	ErrInvariantViolated = errors.New("wheel: portfolio invariant violated")
)
