// internal/scraper/session.go
//
// Package scraper provides the shared HTTP session and the retrying
// fetch/post request layer every scrape driver uses. The retry/backoff
// and proxy/user-agent rotation semantics are kept identical to the
// original implementation this was distilled from: a bad response or a
// transient network error sleeps a random 1-3s (0.3s steps) before
// retrying, while a failed proxy connection retries almost instantly
// (0.25s) with a freshly drawn proxy.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/valpere/shopwatch/internal/proxy"
	"github.com/valpere/shopwatch/internal/useragent"
	"github.com/valpere/shopwatch/internal/utils"
)

// Session owns the shared connection pool plus the proxy/user-agent pools
// every Request draws from. One Session is built once by the scheduler and
// shared by every driver.
type Session struct {
	baseTransport *http.Transport
	cookieJar     http.CookieJar
	proxies       *proxy.Pool
	agents        *useragent.Pool
	limiter       *rate.Limiter
	logger        utils.Logger
}

// SessionOption configures optional Session behavior.
type SessionOption func(*Session)

// WithGlobalRateLimit caps the aggregate outbound request rate across every
// Request sharing this Session, independent of each Request's own
// per-attempt backoff. A zero or negative rps disables the cap.
func WithGlobalRateLimit(rps float64, burst int) SessionOption {
	return func(s *Session) {
		if rps <= 0 {
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewSession builds a Session backed by one pooled *http.Transport, the way
// the teacher's engine.NewEngine builds its client: a cookie jar using the
// public suffix list, and tuned idle-connection limits.
func NewSession(proxies *proxy.Pool, agents *useragent.Pool, logger utils.Logger, opts ...SessionOption) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInternal, "creating cookie jar")
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	if agents == nil {
		// A user agent is drawn on every request regardless of proxy
		// configuration, so unlike the proxy pool this one is never
		// allowed to stay nil - fall back to the built-in default list.
		agents = useragent.NewPool(logger)
	}

	s := &Session{
		baseTransport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		cookieJar: jar,
		proxies:   proxies,
		agents:    agents,
		logger:    utils.NewComponentLogger(logger, "scraper-session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// clientWithProxy returns an *http.Client sharing this session's cookie jar.
// A direct connection (nil proxyURL) uses the session's shared pooled
// transport. A proxied one uses a clone of that transport with its
// outbound proxy fixed to proxyURL; connections opened through such a
// clone are not part of the shared pool.
func (s *Session) clientWithProxy(proxyURL *url.URL, timeout time.Duration) *http.Client {
	transport := s.baseTransport
	if proxyURL != nil {
		transport = s.baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Transport: transport,
		Jar:       s.cookieJar,
		Timeout:   timeout,
	}
}

// Close drains this session's pooled idle connections (those of the
// per-proxy transport clones are not reached by it). Requests already
// in flight are left to their own context/timeout to finish or cancel -
// the scheduler's bounded shutdown window is what actually bounds the
// wait, not this call.
func (s *Session) Close() {
	s.baseTransport.CloseIdleConnections()
}

func (s *Session) waitGlobalLimit(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Params bundles one fetch/post call's target URL, optional POST body, and
// extra headers.
type Params struct {
	URL     string
	Data    interface{}
	Headers map[string]string
}

// Response wraps a completed request's outcome. Exactly one of (Text, Err)
// is meaningful: Err is non-nil only when every retry was exhausted or a
// non-retryable failure occurred.
type Response struct {
	StatusCode int
	Text       string
	Err        error
}

// Request is a single scraper's configured handle onto a shared Session.
// Each scrape driver owns its own Request so that timeout/retries/proxy
// usage can be tuned per shop without affecting others.
type Request struct {
	session        *Session
	timeout        time.Duration
	maxRetries     int
	useRandomProxy bool
}

// NewRequest returns a Request bound to session, with the conservative
// defaults Configure is expected to override.
func NewRequest(session *Session) *Request {
	return &Request{session: session, timeout: 10 * time.Second, useRandomProxy: true}
}

// Configure sets the per-scraper timeout, retry budget, and whether a
// random proxy should be drawn for every attempt.
func (r *Request) Configure(timeout time.Duration, maxRetries int, useRandomProxy bool) {
	r.timeout = timeout
	r.maxRetries = maxRetries
	r.useRandomProxy = useRandomProxy
}

// RandomBetween draws a uniformly random value from start, start+step,
// start+2*step, ... up to and never past stop, rounded to 2 decimals and
// floored at 0 - the same discretized draw as the original
// Tools.getRandomBetween. It is exported because the driver's
// inter-iteration sleep uses the identical formula, not a separate
// rate-limiting mechanism.
func RandomBetween(start, stop, step float64) float64 {
	if step <= 0 || step > 1 {
		step = 0.3
	}
	count := int(math.Floor((stop-start)/step+1e-9)) + 1
	if count <= 0 {
		return math.Max(0, start)
	}
	idx := rand.Intn(count)
	value := start + float64(idx)*step
	return math.Max(0, math.Round(value*100)/100)
}

func backoffDelay() time.Duration {
	return time.Duration(RandomBetween(1, 3, 0.3) * float64(time.Second))
}

const proxyRetryDelay = 250 * time.Millisecond

// isExceededMaxRetries reports whether callCount has used up maxRetries
// attempts already.
func isExceededMaxRetries(maxRetries, callCount int) bool {
	return callCount-1 > maxRetries
}

func (r *Request) drawProxy() (*url.URL, string, error) {
	if !r.useRandomProxy {
		return nil, "", nil
	}
	p, err := r.session.proxies.GetRandom()
	if err != nil {
		return nil, "", err
	}
	built, err := p.BuildForRequest()
	if err != nil {
		return nil, "", err
	}
	proxyURL, err := url.Parse(built)
	if err != nil {
		return nil, "", utils.WrapError(err, utils.ErrCodeProxyFailed, "parsing proxy URL")
	}
	return proxyURL, built, nil
}

func applyHeaders(req *http.Request, headers map[string]string, userAgent string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", userAgent)
}

// Fetch performs a GET request, retrying on bad status, proxy failure, and
// timeout up to maxRetries times. Success is status == 200, matching the
// original's fetch contract exactly (unlike post, fetch never treated
// non-200 as success).
func (r *Request) Fetch(ctx context.Context, params Params) *Response {
	return r.do(ctx, http.MethodGet, params, 0, isFetchSuccess)
}

// Post performs a POST request with a JSON body, retrying the same way as
// Fetch. Success is status == 200 or status == 204 - the redesign-flagged
// fix for the original's `status == 200 or 204` truthiness bug, which
// always evaluated to success regardless of the actual status.
func (r *Request) Post(ctx context.Context, params Params) *Response {
	return r.do(ctx, http.MethodPost, params, 0, isPostSuccess)
}

func isFetchSuccess(status int) bool { return status == http.StatusOK }
func isPostSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusNoContent
}

func (r *Request) do(ctx context.Context, method string, params Params, callCount int, isSuccess func(int) bool) *Response {
	callCount++
	if isExceededMaxRetries(r.maxRetries, callCount) {
		return &Response{Err: fmt.Errorf("still failed after %d tries, giving up %s", callCount-1, params.URL)}
	}

	if err := r.session.waitGlobalLimit(ctx); err != nil {
		return &Response{Err: err}
	}

	proxyURL, proxyStr, err := r.drawProxy()
	if err != nil {
		return &Response{Err: err}
	}
	agent, err := r.session.agents.GetRandom()
	if err != nil {
		return &Response{Err: err}
	}

	var body io.Reader
	if method == http.MethodPost {
		if params.Data == nil {
			return &Response{Err: fmt.Errorf("failed request post: no data to post: %s", params.URL)}
		}
		if len(params.Headers) == 0 {
			return &Response{Err: fmt.Errorf("failed request post: no headers to post: %s", params.URL)}
		}
		encoded, err := json.Marshal(params.Data)
		if err != nil {
			return &Response{Err: utils.WrapError(err, utils.ErrCodeValidation, "encoding post body")}
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, params.URL, body)
	if err != nil {
		return &Response{Err: utils.WrapError(err, utils.ErrCodeInvalidConfig, "building request")}
	}
	if method == http.MethodPost {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	applyHeaders(httpReq, params.Headers, agent)

	client := r.session.clientWithProxy(proxyURL, r.timeout)
	resp, reqErr := client.Do(httpReq)

	switch {
	case reqErr != nil && isProxyError(reqErr):
		r.session.logger.Debugf("proxy connection failed, retrying instantly: %s proxy=%s", params.URL, proxyStr)
		if err := sleep(ctx, proxyRetryDelay); err != nil {
			return &Response{Err: err}
		}
		return r.do(ctx, method, params, callCount, isSuccess)

	case reqErr != nil && isTimeoutError(reqErr):
		delay := backoffDelay()
		r.session.logger.Debugf("request timed out, retrying in %s: %s", delay, params.URL)
		if err := sleep(ctx, delay); err != nil {
			return &Response{Err: err}
		}
		return r.do(ctx, method, params, callCount, isSuccess)

	case reqErr != nil:
		return &Response{Err: utils.WrapError(reqErr, utils.ErrCodeNetworkUnreachable, "request failed, won't retry")}
	}
	defer resp.Body.Close()

	if isSuccess(resp.StatusCode) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &Response{Err: utils.WrapError(err, utils.ErrCodeNetworkTimeout, "reading response body")}
		}
		return &Response{StatusCode: resp.StatusCode, Text: string(data)}
	}

	delay := backoffDelay()
	r.session.logger.Debugf("bad status %d, retrying in %s: %s proxy=%s ua=%s",
		resp.StatusCode, delay, params.URL, proxyStr, agent)
	if err := sleep(ctx, delay); err != nil {
		return &Response{Err: err}
	}
	return r.do(ctx, method, params, callCount, isSuccess)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isProxyError(err error) bool {
	if opErr, ok := asURLError(err); ok {
		return opErr.Op == "proxyconnect" || strings.Contains(opErr.Error(), "proxyconnect")
	}
	return false
}

func isTimeoutError(err error) bool {
	if opErr, ok := asURLError(err); ok {
		return opErr.Timeout()
	}
	return false
}

func asURLError(err error) (*url.Error, bool) {
	for err != nil {
		if ue, ok := err.(*url.Error); ok {
			return ue, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
