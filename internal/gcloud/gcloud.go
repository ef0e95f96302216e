/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package gcloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/konstructio/hybrid-setup/internal/shell"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	Binary = "gcloud"

	// CloudPlatformScope is requested when a downloaded key is validated.
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	// tokens printed by gcloud are valid for an hour, refresh well before that
	accessTokenLifetime = 45 * time.Minute
)

// Client wraps the gcloud CLI.
type Client struct {
	runner shell.Runner
}

func New(runner shell.Runner) *Client {
	return &Client{runner: runner}
}

// CurrentProject returns the active gcloud project, or an empty string when
// none is configured.
func (c *Client) CurrentProject(ctx context.Context) (string, error) {
	project, err := shell.Output(ctx, c.runner, shell.Command{
		Name: Binary,
		Args: []string{"config", "get-value", "project"},
	})
	if err != nil {
		return "", fmt.Errorf("unable to read the active gcloud project: %w", err)
	}
	if project == "(unset)" {
		return "", nil
	}

	log.Debug().Msgf("active gcloud project is %q", project)
	return project, nil
}

// AccessToken returns an access token for the logged in gcloud account.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	token, err := shell.Output(ctx, c.runner, shell.Command{
		Name: Binary,
		Args: []string{"auth", "print-access-token"},
	})
	if err != nil {
		return "", fmt.Errorf("unable to get a gcloud access token, run \"gcloud auth login\" first: %w", err)
	}
	if token == "" {
		return "", errors.New("gcloud returned an empty access token")
	}

	return token, nil
}

// TokenSource exposes the gcloud account credentials as an oauth2.TokenSource.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &cliTokenSource{ctx: ctx, client: c})
}

type cliTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *cliTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.client.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(accessTokenLifetime),
	}, nil
}

// ServiceAccountKey describes a validated service account key file.
type ServiceAccountKey struct {
	Email string
}

// Member is the IAM member string of the service account.
func (k ServiceAccountKey) Member() string {
	return "serviceAccount:" + k.Email
}

// ValidateKey parses a service account key and exchanges it for an access token.
func ValidateKey(ctx context.Context, key []byte) (ServiceAccountKey, error) {
	conf, err := google.JWTConfigFromJSON(key, CloudPlatformScope)
	if err != nil {
		return ServiceAccountKey{}, fmt.Errorf("invalid service account key: %w", err)
	}
	if conf.Email == "" {
		return ServiceAccountKey{}, errors.New("invalid service account key: client_email is missing")
	}

	if _, err := conf.TokenSource(ctx).Token(); err != nil {
		return ServiceAccountKey{}, fmt.Errorf("unable to get a token for %s: %w", conf.Email, err)
	}
	log.Info().Msgf("service account key for %s is valid", conf.Email)

	return ServiceAccountKey{Email: conf.Email}, nil
}
