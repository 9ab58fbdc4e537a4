package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/upcmap/pkg/errors"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// ReadJSON reads and closes the response body. It returns the body only for
// a 200 response carrying valid JSON; any other status yields an APIError
// and malformed JSON yields a ParseError.
func ReadJSON(resp *http.Response, provider string) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := errors.NewAPIError(provider, resp.StatusCode, http.StatusText(resp.StatusCode))
		apiErr.Endpoint = endpoint(resp)
		return nil, apiErr
	}

	if !json.Valid(body) {
		return nil, errors.NewParseError("json", "response", "invalid JSON payload", nil)
	}

	return body, nil
}

// endpoint returns the request URL without its query so credentials passed
// as query parameters never reach error messages.
func endpoint(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u := *resp.Request.URL
	u.RawQuery = ""
	return u.String()
}
