package apiclient

import (
	"net/http"
	"net/url"
	"strings"
)

// Request describes one logical call to the finance API. The client never
// modifies a Request: every attempt, including retries, is built afresh from
// it.
type Request struct {
	Method string
	// Path is resolved against Config.BaseURL. It may carry a query string,
	// which is merged with Query.
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
}

func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// RetryKey identifies the request for backoff accounting: the upper-cased
// method and the path, without any query string (e.g. "GET:/transactions").
func (r *Request) RetryKey() string {
	return r.method() + ":" + r.path()
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r *Request) path() string {
	p, _, _ := strings.Cut(r.Path, "?")
	return p
}

// url resolves r against base.
func (r *Request) url(base *url.URL) (*url.URL, error) {
	rel, err := url.Parse(r.Path)
	if err != nil {
		return nil, err
	}

	// Join the escaped form so escaped separators inside a segment survive.
	u := base.JoinPath(rel.EscapedPath())

	query := rel.Query()
	for k, vs := range r.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	u.RawQuery = query.Encode()

	return u, nil
}
