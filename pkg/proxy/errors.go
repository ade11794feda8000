// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// upstreamError wraps a failed upstream exchange with the URL it targeted.
type upstreamError struct {
	Target string // Target is the upstream URL the request was sent to.
	Err    error  // Err retains the original cause for logging.
}

// Error implements the error interface for upstreamError.
func (e *upstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Target, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *upstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the exchange failed on a deadline.
func (e *upstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
