package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/physiolab/soapnote/internal/resilience"
)

// Client is an HTTP client with typed errors and retry support.
type Client struct {
	config Config
	client *http.Client
}

// New creates a client from the given config.
func New(config Config) *Client {
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do executes the request, applying the configured retry policy. The request
// body is fully buffered so every attempt sends the same bytes.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	if c.config.Retry == nil {
		return c.doOnce(ctx, req, body, contentType)
	}
	return resilience.Retry(ctx, *c.config.Retry, func() (*Response, error) {
		return c.doOnce(ctx, req, body, contentType)
	})
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return resp.DecodeJSON(out)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into out. A nil out discards the response body.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path, JSON: in})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

func (c *Client) doOnce(ctx context.Context, req *Request, body []byte, contentType string) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req, body, contentType)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	if clientErr := ClassifyStatusCode(httpResp.StatusCode, respBody); clientErr != nil {
		return nil, clientErr
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, req *Request, body []byte, contentType string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL, err := joinURL(c.config.BaseURL, req.Path)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}
	if len(req.Query) > 0 {
		q := url.Values{}
		for k, v := range req.Query {
			q.Set(k, v)
		}
		fullURL += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if auth := c.config.Auth; auth != nil {
		if auth.BearerToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+auth.BearerToken)
		}
		if auth.APIKey != "" {
			header := auth.APIKeyHeader
			if header == "" {
				header = "X-API-Key"
			}
			httpReq.Header.Set(header, auth.APIKey)
		}
	}
	return httpReq, nil
}

func encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case req.JSON != nil && req.Multipart != nil:
		return nil, "", NewValidationError("request cannot carry both JSON and multipart bodies")
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", NewValidationError(fmt.Sprintf("marshal request body: %v", err))
		}
		return data, "application/json", nil
	case req.Multipart != nil:
		return req.Multipart.encode()
	default:
		return nil, "", nil
	}
}

func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

func joinURL(base, path string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base URL is empty")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}
