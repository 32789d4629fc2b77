package executor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/sessioncache/session"
)

// CredentialSource supplies the bearer credential for authenticated
// calls. session.MemoryCredentialStore implements it.
type CredentialSource interface {
	// AccessToken returns the current access token. An error means the
	// credential store itself failed and is treated as an auth failure,
	// never as a transport internals exception.
	AccessToken() (string, error)
}

// Transport posts operations to a single endpoint, attaching the
// session credential when a call is authenticated.
type Transport struct {
	endpoint    string
	client      *http.Client
	credentials CredentialSource
	userAgent   string
}

// NewTransport creates a Transport. A nil client falls back to a plain
// http.Client; deadlines come from the request context.
func NewTransport(endpoint string, client *http.Client, credentials CredentialSource) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{
		endpoint:    endpoint,
		client:      client,
		credentials: credentials,
	}
}

// SetUserAgent sets the User-Agent header sent with every request.
func (t *Transport) SetUserAgent(ua string) { t.userAgent = ua }

// Do posts the body. When authenticated, the credential is resolved and
// attached first; a credential resolution failure is surfaced as
// session.ErrCredentialUnavailable so the executor classifies it as an
// auth failure.
func (t *Transport) Do(ctx context.Context, body []byte, authenticated bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	if authenticated {
		if t.credentials == nil {
			return nil, fmt.Errorf("%w: no credential source", session.ErrCredentialUnavailable)
		}
		token, err := t.credentials.AccessToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", session.ErrCredentialUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return t.client.Do(req)
}
