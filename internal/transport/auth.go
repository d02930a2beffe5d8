package transport

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/lodestar-gis/lodestar/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) error {
	return nil
}

// BearerAuth applies a static bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// TokenSourceAuth draws bearer tokens from an oauth2.TokenSource. The
// source refreshes tokens nearing expiry before they are applied, which is
// what makes the OAuth2 REST connector's transparent refresh work.
type TokenSourceAuth struct {
	Connector string
	Source    oauth2.TokenSource
}

// Apply implements the Authenticator interface for TokenSourceAuth.
func (a *TokenSourceAuth) Apply(req *http.Request) error {
	if a.Source == nil {
		return &errors.NotAuthenticatedError{Connector: a.Connector}
	}
	token, err := a.Source.Token()
	if err != nil {
		return &errors.AuthenticationError{
			Connector: a.Connector,
			Method:    "client_credentials",
			Message:   "token refresh failed",
			Err:       err,
		}
	}
	token.SetAuthHeader(req)
	return nil
}
