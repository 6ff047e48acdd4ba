package engine

import "errors"

// ErrInvalidConfig is returned by engines that reject a configuration
// before doing any work (e.g. a zero batch size).
var ErrInvalidConfig = errors.New("invalid engine config")
