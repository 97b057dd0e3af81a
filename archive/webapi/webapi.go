// Package webapi implements archive.Client against the ECMWF Web API.
//
// A request is submitted as JSON, polled until the server reports it
// complete, then the result is streamed into Request.Target. The server
// side request is deleted afterwards, best-effort. There is no overall
// timeout; only context cancellation stops a long-queued request.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/log"
)

// DefaultPollInterval is used when the server sends no Retry-After.
const DefaultPollInterval = 5 * time.Second

// Request statuses reported by the server.
const (
	StatusQueued    = "queued"
	StatusSubmitted = "submitted"
	StatusActive    = "active"
	StatusComplete  = "complete"
	StatusAborted   = "aborted"
	StatusRejected  = "rejected"
)

// Config configures the client.
type Config struct {
	Credentials Credentials
	// Dataset overrides the dataset path segment; defaults to the
	// request's dataset field.
	Dataset string
	// PollInterval is the wait between status polls without Retry-After.
	PollInterval time.Duration
	// HTTPClient defaults to a client without timeout.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the Web API.
type Client struct {
	cfg  Config
	base *url.URL
	http *http.Client
}

var _ archive.Client = (*Client)(nil)

// New creates a client. Credentials must be complete; see LoadCredentials.
func New(cfg Config) (*Client, error) {
	if !cfg.Credentials.Complete() {
		return nil, errors.New("webapi: key and email are required")
	}
	raw := cfg.Credentials.URL
	if raw == "" {
		raw = DefaultURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("webapi: invalid url %q: %w", raw, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Client{cfg: cfg, base: base, http: cfg.HTTPClient}, nil
}

// APIError is a failure reported by the server.
type APIError struct {
	// StatusCode is the HTTP status, or 0 for a failed request status.
	StatusCode int
	// Status is the server-side request status, if any.
	Status string
	Reason string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Reason != "":
		return fmt.Sprintf("webapi: HTTP %d: %s", e.StatusCode, e.Reason)
	case e.StatusCode != 0:
		return fmt.Sprintf("webapi: HTTP %d", e.StatusCode)
	default:
		return fmt.Sprintf("webapi: request %s: %s", e.Status, e.Reason)
	}
}

// SizeMismatchError reports a download shorter or longer than announced.
type SizeMismatchError struct {
	Want, Got int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("webapi: downloaded %d bytes, server announced %d", e.Got, e.Want)
}

// statusReply is the server's JSON body for submit and poll.
type statusReply struct {
	Status  string   `json:"status"`
	Href    string   `json:"href"`
	Size    int64    `json:"size"`
	Reason  string   `json:"reason"`
	Error   string   `json:"error"`
	Message []string `json:"messages"`
}

func (s *statusReply) reason() string {
	if s.Reason != "" {
		return s.Reason
	}
	if s.Error != "" {
		return s.Error
	}
	return strings.Join(s.Message, "; ")
}

// Retrieve submits req, waits for completion and downloads into req.Target.
func (c *Client) Retrieve(ctx context.Context, req *archive.Request) error {
	dataset := c.cfg.Dataset
	if dataset == "" {
		dataset = req.Dataset
	}
	reply, location, retryAfter, err := c.submit(ctx, dataset, req)
	if err != nil {
		return err
	}
	if location != "" {
		defer c.cleanup(ctx, location)
	}

	for reply.Status != StatusComplete {
		switch reply.Status {
		case StatusQueued, StatusSubmitted, StatusActive:
		case StatusAborted, StatusRejected:
			return &APIError{Status: reply.Status, Reason: reply.reason()}
		default:
			return &APIError{Status: reply.Status, Reason: "unexpected request status"}
		}
		if location == "" {
			return errors.New("webapi: server returned no Location to poll")
		}

		c.cfg.Logger.Debug("webapi request pending", map[string]any{"status": reply.Status, "location": location})
		wait := c.cfg.PollInterval
		if retryAfter > 0 {
			wait = retryAfter
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		reply, retryAfter, err = c.poll(ctx, location)
		if err != nil {
			return err
		}
	}

	if reply.Href == "" {
		return errors.New("webapi: complete request carries no href")
	}
	return c.download(ctx, reply.Href, reply.Size, req.Target)
}

func (c *Client) submit(ctx context.Context, dataset string, req *archive.Request) (*statusReply, string, time.Duration, error) {
	body := make(map[string]string)
	for _, f := range req.Fields() {
		if f.Key != "target" {
			body[f.Key] = f.Value
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", 0, fmt.Errorf("webapi: marshal request: %w", err)
	}

	endpoint := c.base.JoinPath("datasets", dataset, "requests").String()
	httpReq, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, "", 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", 0, fmt.Errorf("webapi: submit: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	reply, err := decodeReply(resp)
	if err != nil {
		return nil, "", 0, err
	}
	location := ""
	if loc := resp.Header.Get("Location"); loc != "" {
		location = c.resolve(resp.Request.URL, loc)
	}
	c.cfg.Logger.Info("webapi request submitted", map[string]any{"status": reply.Status, "location": location})
	return reply, location, retryAfter(resp), nil
}

func (c *Client) poll(ctx context.Context, location string) (*statusReply, time.Duration, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("webapi: poll: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	reply, err := decodeReply(resp)
	if err != nil {
		return nil, 0, err
	}
	return reply, retryAfter(resp), nil
}

// download streams href into target. On any failure target is removed.
func (c *Client) download(ctx context.Context, href string, size int64, target string) (err error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, c.resolve(c.base, href), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webapi: download: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Reason: "download failed"}
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("webapi: create target: %w", err)
	}
	defer func() {
		if err != nil {
			_ = iox.RemoveIfExists(target)
		}
	}()

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("webapi: download: %w", err)
	}
	if size > 0 && n != size {
		return &SizeMismatchError{Want: size, Got: n}
	}
	c.cfg.Logger.Debug("webapi download complete", map[string]any{"bytes": n, "target": target})
	return nil
}

// cleanup deletes the server-side request. Failures are only logged.
func (c *Client) cleanup(ctx context.Context, location string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	httpReq, err := c.newRequest(ctx, http.MethodDelete, location, nil)
	if err != nil {
		return
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.cfg.Logger.Warn("webapi delete failed", map[string]any{"location": location, "error": err.Error()})
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	iox.DiscardClose(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("webapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("From", c.cfg.Credentials.Email)
	req.Header.Set("X-ECMWF-KEY", c.cfg.Credentials.Key)
	return req, nil
}

func (c *Client) resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// decodeReply parses a status body, turning error statuses into *APIError.
func decodeReply(resp *http.Response) (*statusReply, error) {
	var reply statusReply
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webapi: read response: %w", err)
	}
	decodeErr := json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Reason = reply.reason()
		} else {
			apiErr.Reason = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("webapi: decode response: %w", decodeErr)
	}
	return &reply, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
