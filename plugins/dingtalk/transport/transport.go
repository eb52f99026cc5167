// Package transport wraps authenticated DingTalk calls with a single
// token-refresh retry.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	DefaultBaseURL     = "https://api.dingtalk.com/v1.0"
	DefaultOAPIBaseURL = "https://oapi.dingtalk.com"

	tracerName = "github.com/sflowg/dingtalk/plugins/dingtalk/transport"
)

// Host is the part of the execution the transport needs.
type Host interface {
	context.Context
	Logger() *slog.Logger
	GetCredentials(ctx context.Context, name string) (runtime.Credentials, error)
	HTTPRequestWithAuthentication(ctx context.Context, credentialType string, req *runtime.HTTPRequest, opts ...runtime.AuthOption) (any, error)
}

// Options describe one logical DingTalk request.
type Options struct {
	Method  string
	URL     string
	BaseURL string
	Query   map[string]any
	Headers map[string]string
	Body    any

	// Raw sends Body untouched and skips the JSON default headers.
	Raw bool

	// CredentialType defaults to the application credential.
	CredentialType string
	// DisableTokenRefresh turns the retry off, for credentials without a derivable token.
	DisableTokenRefresh bool
}

// Client issues DingTalk requests through the host.
type Client struct {
	BaseURL     string
	OAPIBaseURL string
	tracer      trace.Tracer
}

func New(baseURL, oapiBaseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if oapiBaseURL == "" {
		oapiBaseURL = DefaultOAPIBaseURL
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		OAPIBaseURL: strings.TrimRight(oapiBaseURL, "/"),
		tracer:      otel.Tracer(tracerName),
	}
}

// OAPI returns the absolute URL of path on the legacy API host.
func (c *Client) OAPI(path string) string {
	return c.OAPIBaseURL + "/" + strings.TrimLeft(path, "/")
}

// Do performs the request with the stored token. When the response or the
// error looks like a token problem the request is reissued exactly once with
// the token cleared, forcing the host to fetch a new one, and the second
// outcome is returned as is.
func (c *Client) Do(h Host, opts Options) (any, error) {
	ctx, span := c.tracer.Start(h, "dingtalk.request", trace.WithAttributes(
		attribute.String("http.request.method", opts.method()),
		attribute.String("url.path", opts.URL),
		attribute.String("dingtalk.credential_type", opts.credentialType()),
	))
	defer span.End()

	req, err := c.build(opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	data, err := c.call(ctx, h, opts, req, false)
	switch {
	case err == nil && (opts.DisableTokenRefresh || !LooksLikeTokenProblem(data)):
		span.SetAttributes(attribute.Int("dingtalk.attempts", 1))
		return data, nil
	case err != nil && (opts.DisableTokenRefresh || !LooksLikeTokenProblem(errorPayload(err))):
		span.SetAttributes(attribute.Int("dingtalk.attempts", 1))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	h.Logger().InfoContext(ctx, "Access token rejected, refreshing",
		"url", req.URL,
		"credential_type", opts.credentialType())
	span.SetAttributes(attribute.Int("dingtalk.attempts", 2))

	data, err = c.call(ctx, h, opts, req, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return data, nil
}

func (c *Client) call(ctx context.Context, h Host, opts Options, req *runtime.HTTPRequest, clearToken bool) (any, error) {
	credType := opts.credentialType()

	var authOpts []runtime.AuthOption
	if clearToken {
		creds, err := h.GetCredentials(ctx, credType)
		if err != nil {
			return nil, err
		}
		override := creds.Clone()
		override["accessToken"] = ""
		authOpts = append(authOpts, runtime.WithCredentialsOverride(override))
	}

	h.Logger().DebugContext(ctx, "request (before)",
		"method", req.Method,
		"url", req.URL,
		"base_url", req.BaseURL,
		"query", req.Query,
		"headers", slices.Sorted(maps.Keys(req.Headers)),
		"clear_access_token", clearToken)

	data, err := h.HTTPRequestWithAuthentication(ctx, credType, req, authOpts...)

	status := "ok"
	var httpErr *runtime.HTTPError
	if errors.As(err, &httpErr) {
		status = fmt.Sprint(httpErr.StatusCode)
	} else if err != nil {
		status = "error"
	}
	h.Logger().DebugContext(ctx, "response (after)",
		"url", req.URL,
		"status", status,
		"token_hint", err == nil && LooksLikeTokenProblem(data))

	return data, err
}

func (c *Client) build(opts Options) (*runtime.HTTPRequest, error) {
	url := normalizeURL(opts.URL)
	if url == "" {
		return nil, errors.New("request options require a URL")
	}

	baseURL := opts.BaseURL
	if baseURL == "" && !isAbsoluteURL(url) {
		baseURL = c.BaseURL
	}

	headers := map[string]string{}
	if !opts.Raw {
		headers["Content-Type"] = "application/json"
		headers["Accept"] = "application/json"
	}
	maps.Copy(headers, opts.Headers)

	return &runtime.HTTPRequest{
		Method:  opts.method(),
		BaseURL: baseURL,
		URL:     url,
		Query:   opts.Query,
		Headers: headers,
		Body:    opts.Body,
	}, nil
}

func (o Options) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

func (o Options) credentialType() string {
	if o.CredentialType == "" {
		return credentials.APIName
	}
	return o.CredentialType
}

// LooksLikeTokenProblem reports whether a response body or error payload
// complains about the access token.
func LooksLikeTokenProblem(body any) bool {
	if body == nil {
		return false
	}

	var serialized string
	switch v := body.(type) {
	case string:
		serialized = v
	case []byte:
		serialized = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return false
		}
		serialized = string(data)
	}

	s := strings.ToLower(serialized)
	if !strings.Contains(s, "access_token") {
		return false
	}
	for _, hint := range []string{"blank", "invalid", "expired", "非法", "不合法"} {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

// errorPayload picks what an error says about itself: the response body of
// an HTTP error, an operation error's description, or the message.
func errorPayload(err error) any {
	var httpErr *runtime.HTTPError
	if errors.As(err, &httpErr) && httpErr.Body != nil {
		return httpErr.Body
	}
	var opErr *runtime.OperationError
	if errors.As(err, &opErr) && opErr.Description != "" {
		return opErr.Description
	}
	return err.Error()
}

func normalizeURL(u string) string {
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http") && !strings.HasPrefix(u, "/") {
		return "/" + u
	}
	return u
}

func isAbsoluteURL(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
