package spotify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/grrywlsn/localify/config"
	"github.com/grrywlsn/localify/matcher"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"
)

const (
	trackURIPrefix = "spotify:track:"

	// Spotify rejects search limits above this
	maxSearchLimit = 50

	playlistDescription = "Recreated from a local music library by localify"
)

// Client wraps the Spotify API client
type Client struct {
	client  *spotify.Client
	config  *config.Config
	limiter *rate.Limiter
	retry   RetryPolicy
	debug   bool
}

// PlaylistInfo represents basic information about a playlist
type PlaylistInfo struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Public      bool
}

// NewClient authenticates against Spotify and creates a client
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	httpClient, err := Authenticate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	// 429 responses are retried by the library itself, honouring Retry-After
	return NewClientWithHTTP(httpClient, cfg, spotify.WithRetry(true)), nil
}

// NewClientWithHTTP creates a client on top of an already authorized HTTP client
func NewClientWithHTTP(httpClient *http.Client, cfg *config.Config, opts ...spotify.ClientOption) *Client {
	rps := cfg.Spotify.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultRequestsPerSecond
	}

	return &Client{
		client:  spotify.New(withStatusTransport(httpClient, cfg.Spotify.IgnorableStatuses), opts...),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry: RetryPolicy{
			IgnorableStatuses: cfg.Spotify.IgnorableStatuses,
			MaxAttempts:       cfg.Spotify.MaxRetries + 1,
			Delay:             cfg.Spotify.RetryDelay,
		},
	}
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// BuildQuery builds the search query for a local track. The artist filter is
// left out for files without an artist directory.
func BuildQuery(track, artist string) string {
	query := "track:" + track
	if artist != "" && artist != matcher.UnknownArtist {
		query += " artist:" + artist
	}
	return query
}

// Search looks up a track and returns the results as match candidates, in
// search order. Empty items in the response come back as nil entries.
func (c *Client) Search(ctx context.Context, track, artist string) ([]*matcher.Candidate, error) {
	query := BuildQuery(track, artist)

	limit := c.config.Spotify.SearchLimit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if c.config.Spotify.Market != "" {
		opts = append(opts, spotify.Market(c.config.Spotify.Market))
	}

	var result *spotify.SearchResult
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		result, err = c.client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}

	if result == nil || result.Tracks == nil {
		c.debugLog("No matches for query %q", query)
		return nil, nil
	}

	c.debugLog("Query %q returned %d of %d result(s)", query, len(result.Tracks.Tracks), result.Tracks.Total)

	candidates := make([]*matcher.Candidate, 0, len(result.Tracks.Tracks))
	for _, track := range result.Tracks.Tracks {
		candidates = append(candidates, convertTrackToCandidate(track))
	}
	return candidates, nil
}

// convertTrackToCandidate converts a Spotify track to a match candidate;
// an empty (null) track converts to nil
func convertTrackToCandidate(track spotify.FullTrack) *matcher.Candidate {
	if track.ID == "" && track.URI == "" && track.Name == "" {
		return nil
	}

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return &matcher.Candidate{
		TrackName:   track.Name,
		ArtistNames: artists,
		AlbumName:   track.Album.Name,
		ReleaseDate: track.Album.ReleaseDate,
		ExternalID:  string(track.URI),
		ExternalURL: track.ExternalURLs["spotify"],
	}
}

// CreatePlaylist creates a playlist owned by the current user
func (c *Client) CreatePlaylist(ctx context.Context, name string, public bool) (*PlaylistInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	playlist, err := c.client.CreatePlaylistForUser(ctx, user.ID, name, playlistDescription, public, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}

	log.Printf("Created playlist %q (%s) for user %s", playlist.Name, playlist.ID, user.ID)
	return convertPlaylist(playlist), nil
}

// GetPlaylistInfo returns basic information about an existing playlist
func (c *Client) GetPlaylistInfo(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	playlist, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("playlist not found or not accessible: %w", err)
	}
	return convertPlaylist(playlist), nil
}

func convertPlaylist(playlist *spotify.FullPlaylist) *PlaylistInfo {
	return &PlaylistInfo{
		ID:          string(playlist.ID),
		Name:        playlist.Name,
		Description: playlist.Description,
		Owner:       playlist.Owner.DisplayName,
		TrackCount:  int(playlist.Tracks.Total),
		Public:      playlist.IsPublic,
	}
}

// Playlist returns a writer that adds tracks to the given playlist
func (c *Client) Playlist(playlistID string) *Playlist {
	return &Playlist{client: c, id: spotify.ID(playlistID)}
}

// Playlist adds tracks to one Spotify playlist
type Playlist struct {
	client *Client
	id     spotify.ID
}

// ID returns the playlist ID
func (p *Playlist) ID() string {
	return string(p.id)
}

// AddToPlaylist appends a track, given by its spotify:track URI, to the
// playlist. Ignorable failures are retried with the same URI.
func (p *Playlist) AddToPlaylist(ctx context.Context, externalID string) error {
	trackID, err := TrackIDFromURI(externalID)
	if err != nil {
		return err
	}

	attempt := 0
	err = p.client.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			log.Printf("⚠️  Retrying add of %s to playlist %s (attempt %d)", externalID, p.id, attempt)
		}
		if err := p.client.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := p.client.client.AddTracksToPlaylist(ctx, p.id, trackID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to playlist %s: %w", externalID, p.id, err)
	}

	p.client.debugLog("Added %s to playlist %s", externalID, p.id)
	return nil
}

// TrackIDFromURI extracts the track ID from a spotify:track URI. A bare ID is
// accepted as is.
func TrackIDFromURI(uri string) (spotify.ID, error) {
	id := strings.TrimPrefix(uri, trackURIPrefix)
	if id == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("invalid track URI %q", uri)
	}
	return spotify.ID(id), nil
}

// debugLog logs a message only if debug mode is enabled
func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf(format, args...)
	}
}
