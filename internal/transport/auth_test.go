package transport

import (
	"net/http"
	"net/url"
	"testing"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
	if req.URL != nil {
		t.Error("NoAuth must not touch the URL")
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "api_key"}

	reqURL, _ := url.Parse("https://api.nal.usda.gov/fdc/v1/foods/search?query=0123")
	req := &http.Request{
		URL:    reqURL,
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	query := req.URL.Query()
	if query.Get("api_key") != "test-api-key" {
		t.Errorf("Expected query param 'api_key=test-api-key', got '%s'", req.URL.RawQuery)
	}
	if query.Get("query") != "0123" {
		t.Errorf("Expected existing param to be preserved, got '%s'", query.Get("query"))
	}

	// nil URL must not panic
	auth.Apply(&http.Request{Header: make(http.Header)}, "test-api-key")
}
