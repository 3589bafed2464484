// Package gateway implements session.Gateway against the remote chats API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/guilhermegouw/chatkeeper/internal/session"
)

const component = "gateway"

// Defaults applied by New for zero Options fields.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryWaitMin = 200 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	// Root is API_ROOT. Requests are sent to Root + "/chats".
	Root    string
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt for
	// connection errors and 5xx/429 responses.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
}

// Client is the HTTP session gateway.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

var _ session.Gateway = (*Client)(nil)

// New creates a Client for the store at opts.Root.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = DefaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = DefaultRetryWaitMax
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max(opts.RetryMax, 0)
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = retryLogger{}
	// Hand the last response back instead of a "giving up" error so that
	// exhausted retries still surface as a status failure.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(opts.Root, "/")+"/chats").
		SetTimeout(opts.Timeout).
		SetLogger(restyLogger{}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "chatkeeper/1.0")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(int(opts.RateLimit), 1))
	}

	return &Client{resty: restyClient, limiter: limiter}
}

// ListActive fetches the owner's non-archived sessions.
func (c *Client) ListActive(ctx context.Context, ownerToken string) ([]session.Record, error) {
	return c.list(ctx, "list active", "/{token}", ownerToken)
}

// ListArchived fetches the owner's archived sessions.
func (c *Client) ListArchived(ctx context.Context, ownerToken string) ([]session.Record, error) {
	return c.list(ctx, "list archived", "/{token}/archived", ownerToken)
}

// ListShared fetches the owner's publicly shared sessions.
func (c *Client) ListShared(ctx context.Context, ownerToken string) ([]session.Record, error) {
	return c.list(ctx, "list shared", "/{token}/shared", ownerToken)
}

// SetArchived flips the archived flag.
func (c *Client) SetArchived(ctx context.Context, id string, archived bool) error {
	_, err := c.do(ctx, "set archived", http.MethodPatch, "/{id}/archive", func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(map[string]int{"archived": boolInt(archived)})
	})
	return err
}

// DeleteOne permanently removes a session.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, "/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	})
	return err
}

// DeleteAll permanently removes every session of the owner.
func (c *Client) DeleteAll(ctx context.Context, ownerToken string) error {
	_, err := c.do(ctx, "delete all", http.MethodDelete, "/deleteAll/{token}", func(r *resty.Request) {
		r.SetPathParam("token", ownerToken)
	})
	return err
}

// ExportAll downloads the export document of every session of the owner.
func (c *Client) ExportAll(ctx context.Context, ownerToken string) ([]byte, error) {
	resp, err := c.do(ctx, "export", http.MethodGet, "/export/{token}", func(r *resty.Request) {
		r.SetPathParam("token", ownerToken).SetHeader("Accept", "*/*")
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Rename sets the display title of a session.
func (c *Client) Rename(ctx context.Context, id, title string) error {
	_, err := c.do(ctx, "rename", http.MethodPatch, "/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(map[string]string{"title": title})
	})
	return err
}

// SetShared toggles public sharing and returns the share URL when the store
// reports one.
func (c *Client) SetShared(ctx context.Context, id string, shared bool) (string, error) {
	const op = "set shared"
	resp, err := c.do(ctx, op, http.MethodPatch, "/{id}/share", func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(map[string]int{"shared": boolInt(shared)})
	})
	if err != nil {
		return "", err
	}

	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}
	var payload struct {
		ShareURL string `json:"shareUrl"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	return payload.ShareURL, nil
}

func (c *Client) list(ctx context.Context, op, path, ownerToken string) ([]session.Record, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, func(r *resty.Request) {
		r.SetPathParam("token", ownerToken)
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Chats *[]session.Record `json:"chats"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	if payload.Chats == nil {
		return nil, fmt.Errorf("%s: %w: missing chats", op, ErrMalformedResponse)
	}
	return *payload.Chats, nil
}

// do sends one request and maps the outcome onto the gateway failure
// classes. Only 200 counts as success.
func (c *Client) do(ctx context.Context, op, method, path string, configure func(*resty.Request)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
		logCall(op, 0, err)
		return nil, err
	}

	req := c.resty.R().SetContext(ctx)
	if configure != nil {
		configure(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
		logCall(op, 0, err)
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		err := &StatusError{Op: op, StatusCode: resp.StatusCode()}
		logCall(op, resp.StatusCode(), err)
		return nil, err
	}

	logCall(op, resp.StatusCode(), nil)
	return resp, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
