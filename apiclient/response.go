package apiclient

import (
	"encoding/json"
	"net/http"
)

// Response is a fully read response from the finance API.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 || v == nil {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}
