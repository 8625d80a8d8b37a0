package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fintrack/go/apiclient"
	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/tokenstore"
)

type GoogleSignIn struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// Claims are the access token claims the client looks at.
type Claims struct {
	jwt.RegisteredClaims
	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// User returns the id of the user the token was issued to.
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Auth manages the stored access token.
type Auth struct {
	api   *apiclient.Client
	store tokenstore.Store
}

func (a *Auth) key() string {
	return a.api.Config().TokenKey
}

// InitiateGoogleSignIn starts the OAuth flow. The caller sends the user to
// the returned URL; the token is delivered to the login callback.
func (a *Auth) InitiateGoogleSignIn(ctx context.Context) (*GoogleSignIn, error) {
	var out GoogleSignIn
	if err := a.api.GetJSON(ctx, "/auth/google/signin", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("finance: empty access token")
	}
	return a.store.Set(ctx, a.key(), token)
}

// AccessToken returns the stored token, or ErrNotAuthenticated.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	token, err := a.store.Get(ctx, a.key())
	if errors.Is(err, tokenstore.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNotAuthenticated
	}
	return token, err
}

func (a *Auth) RemoveAccessToken(ctx context.Context) error {
	return a.store.Delete(ctx, a.key())
}

// IsAuthenticated reports whether a token is stored. The token is not
// validated.
func (a *Auth) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := a.AccessToken(ctx)
	if errors.Is(err, ErrNotAuthenticated) {
		return false, nil
	}
	return err == nil, err
}

// Logout removes the token and sends the user to the login entry point.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.RemoveAccessToken(ctx); err != nil {
		return err
	}
	logging.With(ctx, logger).Info("logged out")
	a.api.RedirectToLogin(ctx)
	return nil
}

// Claims decodes the stored token without verifying its signature. Only the
// server can verify it; the result is for display and for picking the user
// id.
func (a *Auth) Claims(ctx context.Context) (*Claims, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("finance: malformed access token: %w", err)
	}
	return &claims, nil
}
