package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/fault"
)

// Result is a completed remote fetch.
type Result struct {
	Body     []byte
	FinalURL string
	// Filename is the base of the final URL path, for inbox metadata.
	Filename string
}

// Client retrieves remote documents under the fetch policy. Redirects are
// followed manually so every hop passes the same admission checks.
type Client struct {
	policy *Policy
	logger *zap.Logger

	redirectLimit int
	maxBytes      int64
	readTimeout   time.Duration

	httpClient *http.Client
}

// Options bound a Client's network behavior.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RedirectLimit  int
	MaxBytes       int64
	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// NewClient builds a fetch client over the given policy.
func NewClient(policy *Policy, opts Options, logger *zap.Logger) *Client {
	rt := opts.Transport
	if rt == nil {
		rt = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: opts.ConnectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   opts.ConnectTimeout,
			ResponseHeaderTimeout: opts.ReadTimeout,
			MaxIdleConns:          10,
		}
	}
	return &Client{
		policy:        policy,
		logger:        logger,
		redirectLimit: opts.RedirectLimit,
		maxBytes:      opts.MaxBytes,
		readTimeout:   opts.ReadTimeout,
		httpClient: &http.Client{
			Transport: rt,
			// Redirects are handled by the fetch loop itself.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch retrieves rawURL, enforcing policy at every redirect hop and the
// byte cap on the final body. No inbound credentials are ever forwarded.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	target := rawURL
	for hop := 0; ; hop++ {
		u, err := c.policy.EnsureURLAllowed(target)
		if err != nil {
			return nil, err
		}
		if err := c.policy.ResolveAndCheck(ctx, u.Hostname()); err != nil {
			return nil, err
		}

		resp, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return nil, fault.New(fault.CodeIO, "redirect without location from %s", u.Host)
			}
			if hop+1 > c.redirectLimit {
				return nil, fault.New(fault.CodeRedirectLimit, "more than %d redirects", c.redirectLimit)
			}
			next, err := u.Parse(loc)
			if err != nil {
				return nil, fault.New(fault.CodeIO, "invalid redirect location %q", loc)
			}
			c.logger.Debug("following redirect",
				zap.String("from", u.String()),
				zap.String("to", next.String()),
				zap.Int("hop", hop+1),
			)
			target = next.String()
			continue
		}

		return c.readBody(u, resp)
	}
}

func (c *Client) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	resp, err := c.doGet(reqCtx, u)
	if err != nil {
		cancel()
		return nil, classifyNetErr(u.Host, err)
	}
	// The body read below inherits the deadline; tie cancel to body close.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) doGet(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "docflow-ingest/1.0")
	req.Header.Set("Accept", "*/*")
	return c.httpClient.Do(req)
}

func (c *Client) readBody(u *url.URL, resp *http.Response) (*Result, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fault.New(fault.CodeIO, "remote returned status %d", resp.StatusCode)
	}
	// A declared length over the cap rejects before any body read.
	if resp.ContentLength > c.maxBytes {
		return nil, fault.New(fault.CodeSizeLimit, "declared content length %d exceeds cap %d",
			resp.ContentLength, c.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, classifyNetErr(u.Host, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fault.New(fault.CodeSizeLimit, "body exceeds cap %d", c.maxBytes)
	}

	filename := path.Base(u.Path)
	if filename == "/" || filename == "." {
		filename = ""
	}
	return &Result{Body: body, FinalURL: u.String(), Filename: filename}, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func classifyNetErr(host string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fault.Wrap(fault.CodeRemoteTimeout, fmt.Errorf("fetch %s: %w", host, err))
	}
	return fault.Wrap(fault.CodeIO, fmt.Errorf("fetch %s: %w", host, err))
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
