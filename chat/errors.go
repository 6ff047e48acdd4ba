package chat

import "errors"

var (
	// ErrUnknownProvider is returned by New for an unrecognized engine provider.
	ErrUnknownProvider = errors.New("unknown engine provider")
	// ErrNoStore is returned by Save and Resume when history is disabled.
	ErrNoStore = errors.New("history store disabled")
)
