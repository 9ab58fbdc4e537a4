package transport

import (
	"net/http"
)

// Authenticator applies a credential to an outbound request. Client only
// calls it when the credential is non-empty.
type Authenticator interface {
	Apply(req *http.Request, credential string)
}

// NoAuth leaves requests untouched.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// QueryAuth passes the credential as a query parameter, as FoodData Central
// expects. Existing parameters are kept.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, credential string) {
	if req.URL == nil {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, credential)
	req.URL.RawQuery = query.Encode()
}
