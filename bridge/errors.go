package bridge

import (
	"fmt"
	"time"
)

// ConnectionError means the bridge could not be reached or reported itself
// unhealthy. Without a live bridge no action can succeed, so this is only
// raised at startup.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("wallet bridge not running on %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BridgeError is a failed call to the bridge: transport failure, an HTTP
// error status or an ok=false answer.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// TimeoutError is returned by AwaitResolution when the request is still
// pending at the deadline.
type TimeoutError struct {
	RequestID string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sign_request_timeout: request %s not resolved within %s", e.RequestID, e.Timeout)
}
