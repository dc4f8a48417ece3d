// Package transport provides the process-wide HTTP client for the Voyago
// backend. It owns the interceptor pipeline: credential injection before
// dispatch, error normalization and unauthorized recovery after, and
// diagnostic logging in non-production builds. It never retries; retry or
// fallback policy belongs to the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"voyago-client/internal/apperrors"
	"voyago-client/internal/config"
	"voyago-client/internal/observability"
	"voyago-client/internal/session"
	"voyago-client/pkg/result"
)

// maxResponseBody caps how much of a response is read into memory.
const maxResponseBody = 8 << 20

// Request describes one outbound call. The context passed to Do carries the
// cancellation handle.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is the raw result of a successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RecoveryTrigger reacts to an authentication failure. Implemented by
// session.Recovery.
type RecoveryTrigger interface {
	Trigger(ctx context.Context) error
}

// Client is the shared transport client. Construct one instance during
// bootstrap and inject it by reference into every consumer.
type Client struct {
	baseURL    string
	httpClient *http.Client

	appVersion  string
	buildNumber string
	environment string

	store    session.Store
	recovery RecoveryTrigger
	breaker  *gobreaker.CircuitBreaker
	metrics  *observability.Collector

	logger   *zap.Logger
	debugLog bool

	exemptPaths map[string]struct{}
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore sets the credential store read before every dispatch.
func WithCredentialStore(store session.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithRecovery sets the handler triggered on 401 responses.
func WithRecovery(r RecoveryTrigger) Option {
	return func(c *Client) { c.recovery = r }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying http.Client. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the time source used for expiry checks. For tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithAuthExemptPaths replaces the exact-path allow-list of session
// endpoints that must not trigger unauthorized recovery.
func WithAuthExemptPaths(paths ...string) Option {
	return func(c *Client) {
		c.exemptPaths = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			c.exemptPaths[p] = struct{}{}
		}
	}
}

// defaultExemptPaths lists the session endpoints excluded from unauthorized
// recovery. An exact-path allow-list, not substring matching: a business
// endpoint that happens to contain "/auth" in its name must not be exempt.
func defaultExemptPaths() map[string]struct{} {
	return map[string]struct{}{
		"/v1/auth/login":    {},
		"/v1/auth/register": {},
		"/v1/auth/refresh":  {},
		"/v1/auth/logout":   {},
	}
}

// New creates the transport client from resolved configuration. The
// connect/read timeouts map onto the dialer and response-header deadlines;
// the write timeout bounds the whole exchange together with the other two.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		appVersion:  cfg.AppVersion,
		buildNumber: cfg.BuildNumber,
		environment: cfg.EnvironmentName,
		logger:      logger,
		debugLog:    !cfg.IsProduction(),
		exemptPaths: defaultExemptPaths(),
		now:         time.Now,
		httpClient: &http.Client{
			Timeout: cfg.Timeouts.Connect + cfg.Timeouts.Read + cfg.Timeouts.Write,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeouts.Connect,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   cfg.Timeouts.Connect,
				ResponseHeaderTimeout: cfg.Timeouts.Read,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}

	if cfg.EnableBreaker {
		c.breaker = newBreaker(logger)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes one request through the interceptor pipeline and returns the
// raw response. Every failure is normalized to an *apperrors.AppError; no
// native transport error crosses this boundary.
func (c *Client) Do(ctx context.Context, req Request) result.Result[Response] {
	started := time.Now()

	httpReq, appErr := c.buildRequest(ctx, req)
	if appErr != nil {
		return result.Err[Response](appErr)
	}

	c.injectCredential(ctx, httpReq)

	resp, dispatchErr := c.dispatch(httpReq)
	if dispatchErr != nil {
		appErr := apperrors.Map(dispatchErr)
		c.observe(req, 0, started)
		c.logExchange(req, 0, appErr)
		return result.Err[Response](appErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		appErr := apperrors.Map(readErr)
		c.observe(req, resp.StatusCode, started)
		c.logExchange(req, resp.StatusCode, appErr)
		return result.Err[Response](appErr)
	}

	c.observe(req, resp.StatusCode, started)

	if resp.StatusCode >= 400 {
		appErr := apperrors.Map(&apperrors.HTTPError{StatusCode: resp.StatusCode, Body: body})
		// Error mapping strictly precedes recovery; the 401 is still
		// returned to the caller after recovery has been triggered.
		if resp.StatusCode == http.StatusUnauthorized && c.shouldRecover(req.Path) {
			if recErr := c.recovery.Trigger(ctx); recErr != nil {
				c.logger.Warn("session recovery failed", zap.Error(recErr))
			}
		}
		c.logExchange(req, resp.StatusCode, appErr)
		return result.Err[Response](appErr)
	}

	c.logExchange(req, resp.StatusCode, nil)
	return result.Ok(Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	})
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) result.Result[Response] {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) result.Result[Response] {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, *apperrors.AppError) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnknown,
				fmt.Sprintf("encode request body for %s: %v", req.Path, err), err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, apperrors.Map(err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-App-Version", c.appVersion)
	httpReq.Header.Set("X-Build-Number", c.buildNumber)
	httpReq.Header.Set("X-Environment", c.environment)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	return httpReq, nil
}

// injectCredential attaches a bearer header when the store holds a valid,
// unexpired token. A store read failure is swallowed: credential injection
// is best-effort and the request proceeds unauthenticated.
func (c *Client) injectCredential(ctx context.Context, httpReq *http.Request) {
	if c.store == nil {
		return
	}
	cred, err := c.store.Read(ctx)
	if err != nil {
		c.logger.Debug("credential read failed, proceeding unauthenticated", zap.Error(err))
		return
	}
	if cred == nil || cred.AccessToken == "" || cred.Expired(c.now()) {
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+cred.AccessToken)
}

// dispatch sends the request, through the circuit breaker when enabled.
// 5xx responses count as breaker failures; 4xx responses do not signal an
// outage and leave the breaker untouched.
func (c *Client) dispatch(httpReq *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(httpReq)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		resp, doErr := c.httpClient.Do(httpReq)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if resp, ok := res.(*http.Response); ok {
		// A 5xx tripped the breaker accounting but the response itself
		// still flows through normal status handling.
		return resp, nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.Wrap(apperrors.KindServer, "circuit breaker open: "+err.Error(), err)
	}
	return nil, err
}

// errServerStatus marks a 5xx for the breaker's failure accounting only.
var errServerStatus = fmt.Errorf("server status")

func (c *Client) shouldRecover(path string) bool {
	if c.recovery == nil {
		return false
	}
	_, exempt := c.exemptPaths[path]
	return !exempt
}

func (c *Client) observe(req Request, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.metrics.ObserveRequest(req.Method, req.Path, label, time.Since(started))
}

// logExchange logs method, path, status and error in non-production builds.
// The bearer token is never logged.
func (c *Client) logExchange(req Request, status int, appErr *apperrors.AppError) {
	if !c.debugLog {
		return
	}
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", status),
	}
	if appErr != nil {
		fields = append(fields, zap.String("kind", string(appErr.Kind)),
			zap.String("debug", appErr.DebugMessage))
		c.logger.Debug("api request failed", fields...)
		return
	}
	c.logger.Debug("api request", fields...)
}

func newBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "voyago-api",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}
