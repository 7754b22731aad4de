package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values
type Config struct {
	Spotify  SpotifyConfig
	Library  LibraryConfig
	Matching MatchingConfig
	Output   OutputConfig
}

// SpotifyConfig holds Spotify API configuration
type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	AccessToken       string // Pre-issued token; skips the browser authorization flow
	Market            string
	SearchLimit       int
	PlaylistName      string
	PlaylistID        string // Existing playlist to fill instead of creating one
	PlaylistPublic    bool
	IgnorableStatuses []int // HTTP statuses retried when adding tracks
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
}

// LibraryConfig describes the local music collection
type LibraryConfig struct {
	Root           string
	LabelSeparator string // "Track --- label.ogg" -> "Track"
}

// MatchingConfig holds track matching options
type MatchingConfig struct {
	ExclusionsFile   string
	SingleTokenExact bool
}

// OutputConfig holds audit and reporting options
type OutputConfig struct {
	AuditFile         string
	HistoryDB         string
	MusicBrainzLookup bool
}

// Default values
const (
	DefaultRedirectURI       = "http://localhost:8080/callback"
	DefaultMarket            = "US"
	DefaultSearchLimit       = 20
	DefaultMaxRetries        = 5
	DefaultRetryDelay        = 2 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultLabelSeparator    = " --- "
	DefaultAuditFile         = "songs.csv"
)

// DefaultIgnorableStatuses are the transient statuses Spotify returns under load
var DefaultIgnorableStatuses = []int{502, 503}

// Load loads configuration following the specified order:
// 1. Start with default values
// 2. Load from OS environment variables (only if they exist)
// 3. Load from .env file (only if it exists and values exist)
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides loads configuration and applies CLI flag overrides last
func LoadWithOverrides(overrides map[string]string) (*Config, error) {
	config := &Config{}

	// Step 1: Initialize with default values
	config.initializeDefaults()

	// Step 2: Load from OS environment variables (only if they exist)
	config.loadFromOSEnv()

	// Step 3: Load from .env file (only if it exists and values exist)
	config.loadFromEnvFile()

	// Step 4: Apply CLI flag overrides (only if they exist)
	if err := config.applyOverrides(overrides); err != nil {
		return nil, err
	}

	// Validate required configuration after all sources have been loaded
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// initializeDefaults sets up the initial configuration with default values
func (c *Config) initializeDefaults() {
	c.Spotify = SpotifyConfig{
		RedirectURI:       DefaultRedirectURI,
		Market:            DefaultMarket,
		SearchLimit:       DefaultSearchLimit,
		IgnorableStatuses: append([]int(nil), DefaultIgnorableStatuses...),
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        DefaultRetryDelay,
		RequestsPerSecond: DefaultRequestsPerSecond,
	}

	c.Library = LibraryConfig{
		LabelSeparator: DefaultLabelSeparator,
	}

	c.Matching = MatchingConfig{
		SingleTokenExact: true,
	}

	c.Output = OutputConfig{
		AuditFile: DefaultAuditFile,
	}
}

// loadFromOSEnv loads configuration from OS environment variables (only if they exist)
func (c *Config) loadFromOSEnv() {
	for _, key := range knownKeys {
		if value := os.Getenv(key); value != "" {
			// Malformed numeric values keep the previous layer's value
			_ = c.set(key, value)
		}
	}
}

// loadFromEnvFile loads configuration from .env file (only if it exists and values exist)
func (c *Config) loadFromEnvFile() {
	values, err := godotenv.Read()
	if err != nil {
		// .env file doesn't exist, skip this step
		return
	}

	for _, key := range knownKeys {
		if value := values[key]; value != "" {
			_ = c.set(key, value)
		}
	}
}

// LookupValue resolves a single key through the environment layers without
// loading or validating a full configuration. A .env value wins over the OS
// environment, as in Load.
func LookupValue(key string) string {
	value := os.Getenv(key)
	if values, err := godotenv.Read(); err == nil && values[key] != "" {
		value = values[key]
	}
	return value
}

// applyOverrides applies CLI flag overrides to the configuration (only if they exist)
func (c *Config) applyOverrides(overrides map[string]string) error {
	for key, value := range overrides {
		// Only apply if the value is not empty
		if value == "" {
			continue
		}
		if err := c.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// knownKeys lists every configuration key in load order
var knownKeys = []string{
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_CLIENT_SECRET",
	"SPOTIFY_REDIRECT_URI",
	"SPOTIFY_ACCESS_TOKEN",
	"SPOTIFY_MARKET",
	"SPOTIFY_SEARCH_LIMIT",
	"SPOTIFY_PLAYLIST_NAME",
	"SPOTIFY_PLAYLIST_ID",
	"SPOTIFY_PLAYLIST_PUBLIC",
	"SPOTIFY_IGNORABLE_STATUSES",
	"SPOTIFY_MAX_RETRIES",
	"SPOTIFY_RETRY_DELAY",
	"SPOTIFY_REQUESTS_PER_SECOND",
	"MUSIC_ROOT",
	"LABEL_SEPARATOR",
	"EXCLUSIONS_FILE",
	"SINGLE_TOKEN_EXACT",
	"AUDIT_FILE",
	"HISTORY_DB",
	"MUSICBRAINZ_LOOKUP",
}

// set assigns a single configuration key
func (c *Config) set(key, value string) error {
	switch key {
	case "SPOTIFY_CLIENT_ID":
		c.Spotify.ClientID = value
	case "SPOTIFY_CLIENT_SECRET":
		c.Spotify.ClientSecret = value
	case "SPOTIFY_REDIRECT_URI":
		c.Spotify.RedirectURI = value
	case "SPOTIFY_ACCESS_TOKEN":
		c.Spotify.AccessToken = value
	case "SPOTIFY_MARKET":
		c.Spotify.Market = strings.ToUpper(strings.TrimSpace(value))
	case "SPOTIFY_SEARCH_LIMIT":
		limit, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		c.Spotify.SearchLimit = limit
	case "SPOTIFY_PLAYLIST_NAME":
		c.Spotify.PlaylistName = value
	case "SPOTIFY_PLAYLIST_ID":
		c.Spotify.PlaylistID = strings.TrimSpace(value)
	case "SPOTIFY_PLAYLIST_PUBLIC":
		public, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Spotify.PlaylistPublic = public
	case "SPOTIFY_IGNORABLE_STATUSES":
		statuses, err := parseStatusList(value)
		if err != nil {
			return err
		}
		c.Spotify.IgnorableStatuses = statuses
	case "SPOTIFY_MAX_RETRIES":
		retries, err := parseNonNegativeInt(key, value)
		if err != nil {
			return err
		}
		c.Spotify.MaxRetries = retries
	case "SPOTIFY_RETRY_DELAY":
		delay, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", key, value, err)
		}
		c.Spotify.RetryDelay = delay
	case "SPOTIFY_REQUESTS_PER_SECOND":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps <= 0 {
			return fmt.Errorf("invalid %s '%s': must be a positive number", key, value)
		}
		c.Spotify.RequestsPerSecond = rps
	case "MUSIC_ROOT":
		c.Library.Root = value
	case "LABEL_SEPARATOR":
		c.Library.LabelSeparator = value
	case "EXCLUSIONS_FILE":
		c.Matching.ExclusionsFile = value
	case "SINGLE_TOKEN_EXACT":
		exact, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Matching.SingleTokenExact = exact
	case "AUDIT_FILE":
		c.Output.AuditFile = value
	case "HISTORY_DB":
		c.Output.HistoryDB = value
	case "MUSICBRAINZ_LOOKUP":
		lookup, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Output.MusicBrainzLookup = lookup
	default:
		return fmt.Errorf("unknown configuration key '%s'", key)
	}
	return nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice of trimmed strings
func parseCommaSeparatedList(input string) []string {
	if input == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(input, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

// parseStatusList parses a comma-separated list of HTTP status codes
func parseStatusList(input string) ([]int, error) {
	var statuses []int
	for _, item := range parseCommaSeparatedList(input) {
		status, err := strconv.Atoi(item)
		if err != nil || status < 100 || status > 599 {
			return nil, fmt.Errorf("invalid HTTP status '%s' in SPOTIFY_IGNORABLE_STATUSES", item)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be a positive integer", key, value)
	}
	return n, nil
}

func parseNonNegativeInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be zero or a positive integer", key, value)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s '%s': %w", key, value, err)
	}
	return b, nil
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	var missingFields []string

	// A pre-issued token replaces the client credentials
	if c.Spotify.AccessToken == "" {
		if c.Spotify.ClientID == "" {
			missingFields = append(missingFields, "SPOTIFY_CLIENT_ID")
		}
		if c.Spotify.ClientSecret == "" {
			missingFields = append(missingFields, "SPOTIFY_CLIENT_SECRET")
		}
	}

	if c.Spotify.PlaylistName == "" && c.Spotify.PlaylistID == "" {
		missingFields = append(missingFields, "SPOTIFY_PLAYLIST_NAME or SPOTIFY_PLAYLIST_ID")
	}

	if c.Library.Root == "" {
		missingFields = append(missingFields, "MUSIC_ROOT")
	}

	if c.Output.AuditFile == "" {
		missingFields = append(missingFields, "AUDIT_FILE")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration values:\n%s\n\nSet these values via environment variables, .env file, or CLI flags", strings.Join(missingFields, "\n"))
	}

	return nil
}
