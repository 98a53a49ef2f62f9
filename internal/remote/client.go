// Package remote talks to the platform's offline sync endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"vendorpos/internal/domain"
)

// ErrRejected is returned when the remote answers with a non-2xx status.
var ErrRejected = errors.New("remote rejected request")

// Client is safe for concurrent use. All calls share one fasthttp client,
// so a push batch reuses keep-alive connections to the remote.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

// NewClient builds a client rooted at baseURL. timeout applies per request
// at the transport; zero means no limit beyond the caller's context deadline.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "vendorpos",
			MaxIdleConnDuration: 90 * time.Second,
		},
	}
}

func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(u, "/")
	c.mu.Unlock()
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// PushSale posts one sale. The sale id doubles as the idempotency key, and a
// 409 means the remote already holds it, which counts as acknowledged.
func (c *Client) PushSale(ctx context.Context, s domain.Sale) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	code, resp, err := c.do(ctx, fiber.MethodPost, "/sales", body, s.ID)
	if err != nil {
		return err
	}
	if code == fiber.StatusConflict {
		return nil
	}
	return checkStatus(fiber.MethodPost, "/sales", code, resp)
}

// PushMutation dispatches one queued mutation by operation kind.
func (c *Client) PushMutation(ctx context.Context, it domain.SyncQueueItem) error {
	var (
		method string
		path   = "/" + url.PathEscape(string(it.TableName))
		body   []byte
	)
	switch it.Operation {
	case domain.OpCreate:
		method, body = fiber.MethodPost, []byte(it.Payload)
	case domain.OpUpdate:
		method, body = fiber.MethodPut, []byte(it.Payload)
		path += "/" + url.PathEscape(it.RecordID)
	case domain.OpDelete:
		method = fiber.MethodDelete
		path += "/" + url.PathEscape(it.RecordID)
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidOperation, it.Operation)
	}
	if body != nil && !json.Valid(body) {
		return fmt.Errorf("remote: queue item %d has a malformed payload", it.ID)
	}
	code, resp, err := c.do(ctx, method, path, body, it.OpKey)
	if err != nil {
		return err
	}
	return checkStatus(method, path, code, resp)
}

// FetchProducts returns the raw product records for a vendor. Records are
// left undecoded so a caller can skip the malformed ones individually.
func (c *Client) FetchProducts(ctx context.Context, vendorID string) ([]json.RawMessage, error) {
	return c.fetchList(ctx, "/products", vendorID)
}

func (c *Client) FetchCustomers(ctx context.Context, vendorID string) ([]json.RawMessage, error) {
	return c.fetchList(ctx, "/customers", vendorID)
}

func (c *Client) fetchList(ctx context.Context, path, vendorID string) ([]json.RawMessage, error) {
	full := path + "?" + url.Values{"vendorId": {vendorID}}.Encode()
	code, resp, err := c.do(ctx, fiber.MethodGet, full, nil, "")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(fiber.MethodGet, path, code, resp); err != nil {
		return nil, err
	}
	return decodeList(resp)
}

// decodeList accepts a bare JSON array or an envelope {"data": [...]}.
func decodeList(b []byte) ([]json.RawMessage, error) {
	b = bytes.TrimSpace(b)
	var list []json.RawMessage
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("remote: decode list: %w", err)
		}
		return list, nil
	}
	var env struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("remote: decode list: %w", err)
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idemKey string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	base := c.BaseURL()
	if base == "" {
		return 0, nil, errors.New("remote: base url not configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(base + path)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if body != nil {
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(body)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}

	var err error
	if deadline, ok := c.deadline(ctx); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.Do(req, resp)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	// resp goes back to the pool on return.
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}

// deadline is the earlier of the context deadline and the client timeout.
func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	d, ok := ctx.Deadline()
	if c.timeout > 0 {
		if t := time.Now().Add(c.timeout); !ok || t.Before(d) {
			d, ok = t, true
		}
	}
	return d, ok
}

func checkStatus(method, path string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%w: %s %s -> %d %s", ErrRejected, method, path, code, msg)
}
