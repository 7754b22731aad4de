package spotify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zmb3/spotify/v2"
)

// RetryPolicy retries an API call while it fails with one of the ignorable
// HTTP statuses. Any other failure is returned immediately.
type RetryPolicy struct {
	IgnorableStatuses []int
	MaxAttempts       int // 1 disables retries
	Delay             time.Duration
}

// Do runs op until it succeeds, fails with a non-ignorable error, the
// attempts are used up or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		status, ok := StatusCode(err)
		if !ok || !slices.Contains(p.IgnorableStatuses, status) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// StatusCode extracts the HTTP status from a Spotify API error
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status, true
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Status != 0 {
		return apiErrPtr.Status, true
	}

	// Responses without a body are reported as "spotify: HTTP <status>: ..."
	var status int
	if _, scanErr := fmt.Sscanf(err.Error(), "spotify: HTTP %d:", &status); scanErr == nil {
		return status, true
	}
	return 0, false
}
