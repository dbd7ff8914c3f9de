package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request describes a single HTTP request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string
	// Path is appended to the client's base URL.
	Path string
	// Headers are per-request headers, merged over the client defaults.
	Headers map[string]string
	// Query holds URL query parameters.
	Query map[string]string
	// JSON, when non-nil, is marshalled as the request body with
	// Content-Type application/json.
	JSON any
	// Multipart, when non-nil, is encoded as a multipart/form-data body.
	// JSON and Multipart are mutually exclusive.
	Multipart *MultipartBody
}

// Response is the outcome of a completed HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Body is the full response body.
	Body []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
