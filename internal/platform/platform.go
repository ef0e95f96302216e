/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrConcurrentModification is returned when a sync authorization update is
// rejected because the etag no longer matches the server state.
var ErrConcurrentModification = errors.New("sync authorization was modified concurrently, re-run the command")

// StatusError is a non-2xx response of the management API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the management API of the runtime platform.
type Client struct {
	hostURL    string
	httpClient HTTPDoer
}

// New returns a Client authenticating every request with tokens from ts.
func New(ctx context.Context, hostURL string, ts oauth2.TokenSource) *Client {
	return &Client{
		hostURL:    strings.TrimSuffix(hostURL, "/"),
		httpClient: oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, baseHTTPClient()), ts),
	}
}

type EnvGroup struct {
	Name      string   `json:"name"`
	Hostnames []string `json:"hostnames,omitempty"`
}

type envGroupList struct {
	EnvironmentGroups []EnvGroup `json:"environmentGroups"`
}

// SyncAuthorization is the list of identities allowed to pull runtime
// configuration. Etag guards read-modify-write cycles.
type SyncAuthorization struct {
	Identities []string `json:"identities"`
	Etag       string   `json:"etag,omitempty"`
}

// ListEnvironments returns the environment names of org.
func (c *Client) ListEnvironments(ctx context.Context, org string) ([]string, error) {
	var envs []string
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/organizations/%s/environments", org), nil, &envs); err != nil {
		return nil, fmt.Errorf("unable to list environments of %s: %w", org, err)
	}

	return envs, nil
}

// ListEnvGroups returns the environment groups of org.
func (c *Client) ListEnvGroups(ctx context.Context, org string) ([]EnvGroup, error) {
	var groups envGroupList
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/organizations/%s/envgroups", org), nil, &groups); err != nil {
		return nil, fmt.Errorf("unable to list environment groups of %s: %w", org, err)
	}

	return groups.EnvironmentGroups, nil
}

func (c *Client) GetSyncAuthorization(ctx context.Context, org string) (SyncAuthorization, error) {
	var sa SyncAuthorization
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/organizations/%s:getSyncAuthorization", org), struct{}{}, &sa); err != nil {
		return SyncAuthorization{}, fmt.Errorf("unable to get sync authorization of %s: %w", org, err)
	}

	return sa, nil
}

// SetSyncAuthorization replaces the identity list. sa.Etag must be the etag
// returned by the read this update is based on.
func (c *Client) SetSyncAuthorization(ctx context.Context, org string, sa SyncAuthorization) (SyncAuthorization, error) {
	var updated SyncAuthorization
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/organizations/%s:setSyncAuthorization", org), sa, &updated)

	var status *StatusError
	if errors.As(err, &status) && (status.Code == http.StatusConflict || status.Code == http.StatusPreconditionFailed) {
		return SyncAuthorization{}, ErrConcurrentModification
	}
	if err != nil {
		return SyncAuthorization{}, fmt.Errorf("unable to set sync authorization of %s: %w", org, err)
	}

	return updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.hostURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	log.Debug().Msgf("%s %s", method, req.URL.String())
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
