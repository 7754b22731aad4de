package spotify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/grrywlsn/localify/config"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes needed to create and fill playlists
var scopes = []string{
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopeUserReadPrivate,
}

// NewAuthenticator creates the OAuth authenticator for the configured application
func NewAuthenticator(cfg *config.Config) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithRedirectURL(cfg.Spotify.RedirectURI),
		spotifyauth.WithClientID(cfg.Spotify.ClientID),
		spotifyauth.WithClientSecret(cfg.Spotify.ClientSecret),
		spotifyauth.WithScopes(scopes...),
	)
}

// Authenticate returns an HTTP client authorized for the user's account.
// A configured access token is used directly; otherwise the authorization
// code flow runs, with a local listener on the redirect URI receiving the
// callback.
func Authenticate(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	if cfg.Spotify.AccessToken != "" {
		token := &oauth2.Token{AccessToken: cfg.Spotify.AccessToken, TokenType: "Bearer"}
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)), nil
	}

	auth := NewAuthenticator(cfg)
	token, err := authorize(ctx, auth, cfg.Spotify.RedirectURI, func(authURL string) {
		fmt.Println("🔑 Log in to Spotify by visiting this page in your browser:")
		fmt.Println("   " + authURL)
	})
	if err != nil {
		return nil, err
	}

	return auth.Client(ctx, token), nil
}

// authorize runs the authorization code flow and returns the issued token
func authorize(ctx context.Context, auth *spotifyauth.Authenticator, redirectURI string, prompt func(authURL string)) (*oauth2.Token, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	state := uuid.NewString()
	type result struct {
		token *oauth2.Token
		err   error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath(redirect), func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Authorization failed", http.StatusForbidden)
		} else {
			fmt.Fprintln(w, "Authorization complete, you can close this window.")
		}
		select {
		case results <- result{token: token, err: err}:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Authorization callback server failed: %v", err)
		}
	}()
	defer server.Close()

	prompt(auth.AuthURL(state))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", res.err)
		}
		return res.token, nil
	}
}

func callbackPath(redirect *url.URL) string {
	if redirect.Path == "" {
		return "/"
	}
	return redirect.Path
}
