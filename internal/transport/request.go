package transport

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/lodestar-gis/lodestar/pkg/errors"
)

// maxResponseBytes bounds how much of a remote payload is read into memory.
// Large STAC catalogs stay well under this; anything bigger is suspect.
const maxResponseBytes = 64 << 20

// FetchJSON performs an authenticated GET and decodes the JSON body into
// target. Errors are classified into the connector taxonomy: deadline and
// connection failures are transient, undecodable payloads are malformed.
func (c *Client) FetchJSON(ctx context.Context, connector, rawURL string, target any) error {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return ClassifyNetError(connector, rawURL, err)
	}
	return DecodeResponse(connector, resp, target)
}

// FetchBody performs an authenticated GET and returns the raw body.
func (c *Client) FetchBody(ctx context.Context, connector, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, ClassifyNetError(connector, rawURL, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(connector, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.WrapTransient(connector, rawURL, err)
	}
	return body, nil
}

// DecodeResponse decodes a JSON response into the target structure,
// consuming and closing the body.
func DecodeResponse(connector string, resp *http.Response, target any) error {
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return statusError(connector, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.WrapTransient(connector, resp.Request.URL.String(), err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", connector, err)
	}
	return nil
}

// ClassifyNetError converts a low-level HTTP client error into the
// connector error taxonomy.
func ClassifyNetError(connector, endpoint string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return &errors.TimeoutError{Operation: "fetch " + endpoint}
	case stderrors.Is(err, context.Canceled):
		return errors.ErrCanceled
	}

	var urlErr *url.Error
	if stderrors.As(err, &urlErr) && urlErr.Timeout() {
		return &errors.TimeoutError{Operation: "fetch " + endpoint}
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return &errors.TimeoutError{Operation: "fetch " + endpoint}
	}

	return errors.WrapTransient(connector, endpoint, err)
}

// statusError maps a non-200 response to an APIError, keeping a bounded
// excerpt of the body for diagnostics.
func statusError(connector string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &errors.APIError{
		Connector:  connector,
		StatusCode: resp.StatusCode,
		Endpoint:   resp.Request.URL.String(),
		Message:    string(excerpt),
	}
}

// drain discards any remaining body to allow connection reuse.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
