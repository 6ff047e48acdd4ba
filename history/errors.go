package history

import "errors"

// Sentinel errors for transcript stores.
var (
	ErrNotFound       = errors.New("transcript not found")
	ErrInvalidID      = errors.New("invalid transcript id")
	ErrLoadFailed     = errors.New("load failed")
	ErrSaveFailed     = errors.New("save failed")
	ErrUnknownBackend = errors.New("unknown history backend")
)
