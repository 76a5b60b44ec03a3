// Package main obtains a Spotify refresh token for the tunebox spotify catalog.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/osa030/tunebox/internal/infra/config"
)

var (
	app          = kingpin.New("tunebox-auth", "Obtain a Spotify refresh token for the tunebox spotify catalog")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	market       = app.Flag("market", "Market code written to the generated config").Default("JP").String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	timeout      = app.Flag("timeout", "How long to wait for authorization").Default("5m").Duration()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		zlog.Fatal().Err(err).Msg("authorization failed")
	}
}

func run() error {
	cb := newCallback(spotifyauth.New(
		spotifyauth.WithRedirectURL(fmt.Sprintf("http://127.0.0.1:%d/callback", *port)),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		// Catalog lookups only need the account's market
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadPrivate),
	))

	mux := http.NewServeMux()
	mux.Handle("/callback", cb)
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "callback server")
		}
	}()

	fmt.Printf("Open this URL to authorize tunebox:\n\n%s\n\nWaiting for the callback on port %d...\n", cb.URL(), *port)

	var token *oauth2.Token
	select {
	case token = <-cb.tokens:
	case err := <-errCh:
		return err
	case <-time.After(*timeout):
		return errors.Newf("no authorization within %s", *timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Err(err).Msg("failed to shut down callback server")
	}

	if token.RefreshToken == "" {
		return errors.New("spotify returned no refresh token")
	}

	fmt.Print("\nAuthorized. Merge this into your player.yaml:\n\n")
	if err := writeConfig(os.Stdout, *clientID, token.RefreshToken, *market); err != nil {
		return err
	}
	fmt.Print("\nThe client secret is read from SPOTIFY_CLIENT_SECRET; the token can also be set with SPOTIFY_REFRESH_TOKEN.\n")
	return nil
}

// callback completes the authorization code flow and hands over the token.
type callback struct {
	auth   *spotifyauth.Authenticator
	state  string
	tokens chan *oauth2.Token
}

func newCallback(auth *spotifyauth.Authenticator) *callback {
	return &callback{
		auth:   auth,
		state:  uuid.New().String(),
		tokens: make(chan *oauth2.Token, 1),
	}
}

// URL returns the authorization page to send the user to.
func (c *callback) URL() string {
	return c.auth.AuthURL(c.state)
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := c.auth.Token(r.Context(), c.state, r)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to exchange authorization code")
		http.Error(w, "authorization failed", http.StatusForbidden)
		return
	}

	select {
	case c.tokens <- token:
	default:
		// Already authorized.
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, donePage)
}

const donePage = `<!DOCTYPE html>
<html>
<head><title>tunebox</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>tunebox is authorized</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`

// spotifySection is the part of the player config the token belongs to.
type spotifySection struct {
	Catalog config.CatalogConfig `yaml:"catalog"`
	Spotify config.SpotifyConfig `yaml:"spotify"`
}

// writeConfig prints the catalog provider and credentials in player.yaml form.
func writeConfig(w io.Writer, clientID, refreshToken, market string) error {
	section := spotifySection{
		Catalog: config.CatalogConfig{
			Providers: []config.ProviderConfig{{
				Type:        "spotify",
				DisplayName: "Spotify",
				Settings:    map[string]any{"market": market},
			}},
		},
		Spotify: config.SpotifyConfig{
			ClientID:     clientID,
			RefreshToken: refreshToken,
			Market:       market,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(section); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return enc.Close()
}
