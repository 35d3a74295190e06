package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/subsync/svc/billing"
)

// StatusSource reads the subscription status for a session.
type StatusSource interface {
	Status(ctx context.Context, s Session) (Report, error)
}

// ProfileReader is satisfied by *billing.Service.
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (billing.Profile, error)
}

// ProfileSource reads the status straight from the profile store.
type ProfileSource struct {
	profiles ProfileReader
}

// NewProfileSource creates a ProfileSource.
func NewProfileSource(profiles ProfileReader) *ProfileSource {
	return &ProfileSource{profiles: profiles}
}

// Status returns the caller's report. A user whose profile row does not exist
// yet is reported as never subscribed.
func (p *ProfileSource) Status(ctx context.Context, s Session) (Report, error) {
	if s.User.ID == "" {
		return Report{}, ErrUnauthorized
	}
	profile, err := p.profiles.Profile(ctx, s.User.ID)
	if err != nil && !errors.Is(err, billing.ErrProfileNotFound) {
		return Report{}, err
	}
	return NewReport(s.User, profile), nil
}

const statusPath = "/subscription-status"

// Client reads the status from a deployed instance over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient creates a Client for the instance at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status calls GET /subscription-status with the session's bearer token.
func (c *Client) Status(ctx context.Context, s Session) (Report, error) {
	if s.AccessToken == "" {
		return Report{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrStatusAPI, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrStatusAPI, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Report{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Report{}, fmt.Errorf("%w: status %d", ErrStatusAPI, resp.StatusCode)
	}

	var r Report
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrStatusAPI, err)
	}
	return r, nil
}
