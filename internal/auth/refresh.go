package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single token request
const DefaultTimeout = 15 * time.Second

// TokenManager exchanges a long-lived refresh token for a fresh access token.
// Every call goes to the network; nothing is cached and nothing is retried.
type TokenManager struct {
	TokenURL   string        // defaults to TokenURL
	Timeout    time.Duration // defaults to DefaultTimeout
	HTTPClient *http.Client  // optional; its Timeout is overridden
}

// Renew returns a new access token
func (m *TokenManager) Renew(ctx context.Context, clientID, clientSecret, refreshToken string) (string, error) {
	tok, err := m.RenewToken(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// RenewToken performs the refresh grant and returns the whole token,
// including a rotated refresh token when the server issues one.
func (m *TokenManager) RenewToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" || strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: client id, client secret and refresh token are required", ErrAuthFailure)
	}

	cfg := NewOAuthConfig(Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     m.TokenURL,
	})

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient())

	start := time.Now()
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("Token renewal failed")
		return nil, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access_token", ErrAuthFailure)
	}

	log.Debug().
		Dur("elapsed", time.Since(start)).
		Time("expiry", tok.Expiry).
		Bool("rotated", Rotated(tok, refreshToken)).
		Msg("Access token renewed")

	return tok, nil
}

func (m *TokenManager) httpClient() *http.Client {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if m.HTTPClient == nil {
		return &http.Client{Timeout: timeout}
	}
	c := *m.HTTPClient
	c.Timeout = timeout
	return &c
}

// Rotated reports whether tok carries a refresh token different from previous
func Rotated(tok *oauth2.Token, previous string) bool {
	return tok != nil && tok.RefreshToken != "" && tok.RefreshToken != previous
}
