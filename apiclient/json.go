package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// GetJSON sends a GET and decodes the response body into out, which may be
// nil.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, nil, out)
}

// PostJSON encodes in as the request body, sends a POST and decodes the
// response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPost, Path: path}, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPut, Path: path}, in, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPatch, Path: path}, in, out)
}

func (c *Client) doJSON(ctx context.Context, req *Request, in, out any) error {
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return c.newError(req, 0, CodeInvalidRequest, nil, err)
		}
		req.Body = body
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil {
		return &Error{
			Class:      FatalFailure,
			Method:     req.method(),
			Path:       req.path(),
			StatusCode: resp.StatusCode,
			Code:       CodeMalformed,
			Body:       resp.Body,
			Err:        err,
		}
	}
	return nil
}
