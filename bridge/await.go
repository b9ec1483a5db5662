package bridge

import (
	"context"
	"time"
)

// AwaitResolution polls request id every pollInterval until the bridge
// reports it signed or rejected. A failed poll is returned at once. Once
// timeout has elapsed the last observed request is returned together with
// a *TimeoutError; the request itself is left alone on the bridge.
func (c *Client) AwaitResolution(ctx context.Context, id string, timeout, pollInterval time.Duration) (SignRequest, error) {
	started := time.Now()
	for {
		req, err := c.SignRequest(ctx, id)
		if err != nil {
			return SignRequest{}, err
		}
		c.metrics.SignPoll()
		if req.Status.Terminal() {
			return req, nil
		}
		if time.Since(started) >= timeout {
			return req, &TimeoutError{RequestID: id, Timeout: timeout}
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return SignRequest{}, ctx.Err()
		case <-timer.C:
		}
	}
}
