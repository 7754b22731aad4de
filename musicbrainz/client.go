package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2/"
	userAgent      = "localify/1.0 (https://github.com/grrywlsn/localify)"

	// MusicBrainz asks anonymous clients for at most one request per second
	requestInterval = time.Second

	// Search scores run from 0 to 100; lower hits are usually other songs
	minScore = 80
)

// ErrNotFound is returned when a search yields no recording
var ErrNotFound = errors.New("no recording found")

// Client looks up recordings in MusicBrainz
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Recording is a MusicBrainz recording search hit
type Recording struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// searchResponse represents the response from the recording search API
type searchResponse struct {
	Recordings []Recording `json:"recordings"`
}

// NewClient creates a new MusicBrainz client
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL creates a client against another MusicBrainz mirror
func NewClientWithBaseURL(baseURL string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
	}
}

// RecordingURL returns the public page of a recording
func RecordingURL(id string) string {
	return "https://musicbrainz.org/recording/" + id
}

// LookupRecording searches for the best recording by artist and title. An
// empty artist searches by title alone.
func (c *Client) LookupRecording(ctx context.Context, artist, title string) (*Recording, error) {
	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}

	query := fmt.Sprintf("recording:%s", quote(title))
	if artist != "" {
		query = fmt.Sprintf("artist:%s AND %s", quote(artist), query)
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("fmt", "json")
	params.Add("limit", "1")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"recording/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers for MusicBrainz API
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("MusicBrainz API returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	if len(searchResp.Recordings) == 0 || searchResp.Recordings[0].Score < minScore {
		return nil, fmt.Errorf("%w for artist: %s, title: %s", ErrNotFound, artist, title)
	}

	return &searchResp.Recordings[0], nil
}

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote wraps a term in double quotes for the Lucene query syntax
func quote(s string) string {
	return `"` + phraseEscaper.Replace(s) + `"`
}
