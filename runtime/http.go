package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	MaxRetries  int           `yaml:"max_retries" default:"0" validate:"gte=0,lte=10"`
	RetryWaitMS int           `yaml:"retry_wait_ms" default:"100" validate:"gte=0,lte=10000"`
	Debug       bool          `yaml:"debug" default:"false"`
}

// HTTPRequest is a request description handed to the host.
// URL may be absolute, in which case BaseURL is ignored.
type HTTPRequest struct {
	Method  string
	BaseURL string
	URL     string
	Query   map[string]any
	Headers map[string]string
	Body    any
}

// FullURL joins BaseURL and URL.
func (r *HTTPRequest) FullURL() string {
	if r.BaseURL == "" || strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
		return r.URL
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(r.URL, "/")
}

func (r *HTTPRequest) Clone() *HTTPRequest {
	out := *r
	if r.Query != nil {
		out.Query = maps.Clone(r.Query)
	}
	if r.Headers != nil {
		out.Headers = maps.Clone(r.Headers)
	}
	return &out
}

// WithBody sets the body and returns r for chaining.
func (r *HTTPRequest) WithBody(body any) *HTTPRequest {
	r.Body = body
	return r
}

// SetQuery sets a query parameter, allocating the map on first use.
func (r *HTTPRequest) SetQuery(key string, value any) {
	if r.Query == nil {
		r.Query = map[string]any{}
	}
	r.Query[key] = value
}

func (r *HTTPRequest) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[key] = value
}

// HTTPResponse is a raw response.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode returns the body parsed as JSON, the raw text when it is not JSON,
// or an empty object for an empty body.
func (r *HTTPResponse) Decode() any {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return string(r.Body)
	}
	return out
}

// HTTPClient is the host's outbound HTTP client.
type HTTPClient struct {
	client *resty.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
		SetDebug(cfg.Debug)

	return &HTTPClient{client: client}
}

// Do executes req. A non-2xx status returns the response together with an *HTTPError.
func (c *HTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	r := c.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(ToStringValueMap(req.Query))
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.FullURL())
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	out := &HTTPResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if resp.IsError() {
		return out, &HTTPError{
			StatusCode: out.StatusCode,
			Status:     resp.Status(),
			Body:       out.Decode(),
		}
	}
	return out, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() {
	c.client.GetClient().CloseIdleConnections()
}
