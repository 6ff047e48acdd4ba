package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors mapped from API responses.
var (
	ErrAuth        = errors.New("openai: authentication failed")
	ErrRateLimit   = errors.New("openai: rate limited")
	ErrUnavailable = errors.New("openai: service unavailable")
)

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// mapHTTPError maps a non-2xx status and body to an error. Returns nil for
// 2xx status codes.
func mapHTTPError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(body)
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch {
	case statusCode == 429:
		return fmt.Errorf("%w: %s", ErrRateLimit, msg)
	case statusCode == 401 || statusCode == 403:
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("openai: HTTP %d: %s", statusCode, msg)
	}
}

// mapConnectionError maps network failures to ErrUnavailable. Context
// errors pass through unchanged.
func mapConnectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("openai: %w", err)
}
