package domain

import "errors"

var (
	ErrWindowNotFound       = errors.New("availability window not found")
	ErrInvalidRange         = errors.New("invalid availability date range")
	ErrOverlappingWindow    = errors.New("availability window overlaps an existing window")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrWindowInUse          = errors.New("availability window is referenced by an active booking")
	ErrInvalidCount         = errors.New("count must be positive")
)
