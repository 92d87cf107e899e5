// Package deviceauth provides an HTTP client for the external auth
// validator that vets management API tokens.
package deviceauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deviceline/inventory/internal/resilience"
)

const verifyURI = "/api/internal/v1/auth/verify"

// defaultTimeout bounds every verification call so a validator outage can
// never hang a request.
const defaultTimeout = 5 * time.Second

// ErrUnavailable indicates the validator could not be reached (or the
// circuit is open); it is distinct from a definite deny.
var ErrUnavailable = errors.New("auth validator unavailable")

// Verdict is the validator's decision for one token/request pair.
type Verdict int

const (
	// Allow means the token is valid for the original request.
	Allow Verdict = iota
	// DenyUnauthorized means the token is missing, malformed, or expired.
	DenyUnauthorized
	// DenyForbidden means the token is valid but not allowed the request.
	DenyForbidden
)

// Client talks to the external auth validator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new auth validator client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Verify forwards the original request coordinates and bearer token to the
// validator and maps its response to a Verdict. Transport failures and
// unexpected statuses surface as ErrUnavailable, never as a deny.
func (c *Client) Verify(ctx context.Context, token, originalURI, originalMethod string) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyURI, nil)
	if err != nil {
		return DenyUnauthorized, fmt.Errorf("prepare verify request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("X-Original-URI", originalURI)
	req.Header.Set("X-Original-Method", originalMethod)

	var resp *http.Response
	do := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		return err
	}
	if c.breaker != nil {
		err = c.breaker.Execute(do)
	} else {
		err = do()
	}
	if err != nil {
		return DenyUnauthorized, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return Allow, nil
	case http.StatusUnauthorized:
		return DenyUnauthorized, nil
	case http.StatusForbidden:
		return DenyForbidden, nil
	default:
		return DenyUnauthorized, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}
