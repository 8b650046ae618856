package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is the immutable per-client target: the normalized Canvas origin
// and the bearer credential sent with every request.
type Endpoint struct {
	base          *url.URL
	authorization string
}

// NormalizeBaseURL forces the https scheme onto a Canvas website root.
// A bare host, an http:// URL and an https:// URL are all accepted.
//
// Example:
//
//	NormalizeBaseURL("mst.instructure.com")        // https://mst.instructure.com
//	NormalizeBaseURL("http://mst.instructure.com") // https://mst.instructure.com
func NormalizeBaseURL(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("base url is required")
	}

	for _, scheme := range []string{"https://", "http://"} {
		if len(root) >= len(scheme) && strings.EqualFold(root[:len(scheme)], scheme) {
			root = root[len(scheme):]
			break
		}
	}
	root = "https://" + strings.TrimRight(root, "/")

	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Hostname() == "" || strings.HasSuffix(u.Host, ":") {
		return "", fmt.Errorf("base url %q has no host", root)
	}

	return root, nil
}

// NewEndpoint builds an Endpoint from a website root and an API token.
func NewEndpoint(root, token string) (Endpoint, error) {
	if token == "" {
		return Endpoint{}, fmt.Errorf("token is required")
	}

	normalized, err := NormalizeBaseURL(root)
	if err != nil {
		return Endpoint{}, err
	}

	base, err := url.Parse(normalized)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse base url: %w", err)
	}

	return Endpoint{
		base:          base,
		authorization: "Bearer " + token,
	}, nil
}

// BaseURL returns the normalized origin.
func (e Endpoint) BaseURL() string {
	return e.base.String()
}

// Resolve joins a relative path onto the base origin and appends params.
func (e Endpoint) Resolve(path string, params url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}

	target := e.base.ResolveReference(ref)
	if len(params) > 0 {
		query := target.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		target.RawQuery = query.Encode()
	}

	return target.String(), nil
}

// Apply sets the authorization and content-type headers on h.
func (e Endpoint) Apply(h http.Header) {
	h.Set("Authorization", e.authorization)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
}
