package spotify

import (
	"fmt"
	"io"
	"net/http"
	"slices"
)

// maxDrainBytes bounds how much of a rejected body is read so the
// connection can be reused
const maxDrainBytes = 4096

// StatusError reports a response whose status the retry policy may retry.
// The status comes from the HTTP response itself, whatever the body holds.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: HTTP %s", e.Status)
}

// statusTransport turns responses with one of the given statuses into a
// *StatusError before the Spotify library tries to decode their body
type statusTransport struct {
	base     http.RoundTripper
	statuses []int
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(t.statuses, resp.StatusCode) {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()
	return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
}

// withStatusTransport returns a copy of httpClient whose transport reports
// the given statuses as *StatusError
func withStatusTransport(httpClient *http.Client, statuses []int) *http.Client {
	if len(statuses) == 0 {
		return httpClient
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *httpClient
	wrapped.Transport = &statusTransport{base: base, statuses: slices.Clone(statuses)}
	return &wrapped
}
