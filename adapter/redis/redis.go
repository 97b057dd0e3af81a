// Package redis publishes batch completion events to a Redis channel and,
// optionally, a capped list that late consumers can read back.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/strata/adapter"
)

// Defaults.
const (
	DefaultChannel = "strata:batch_completed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
	DefaultListMax = 100
)

// Config configures the Redis adapter.
type Config struct {
	// URL is redis://[:password@]host:port[/db].
	URL     string
	Channel string
	// List, when set, also LPUSHes each event onto this key, trimmed to
	// the newest ListMax entries.
	List    string
	ListMax int
	Timeout time.Duration
	Retries int
}

// Adapter publishes events with PUBLISH (and LPUSH when a list is set).
type Adapter struct {
	channel string
	list    string
	listMax int
	timeout time.Duration
	retries int
	client  *goredis.Client
}

// New validates cfg and connects lazily.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis: url is required")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("redis: retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	a := &Adapter{
		channel: cfg.Channel,
		list:    cfg.List,
		listMax: cfg.ListMax,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		client:  goredis.NewClient(opts),
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.listMax <= 0 {
		a.listMax = DefaultListMax
	}
	return a, nil
}

// Publish sends event. The list write and the publish share one MULTI so
// a retry never leaves a listed event unannounced.
func (a *Adapter) Publish(ctx context.Context, event *adapter.BatchCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode event: %w", err)
	}

	err = adapter.Retry(ctx, a.retries, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		err := a.send(ctx, body)
		if errors.Is(err, goredis.ErrClosed) {
			return &adapter.Permanent{Err: err}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *Adapter) send(ctx context.Context, body []byte) error {
	if a.list == "" {
		return a.client.Publish(ctx, a.channel, body).Err()
	}
	_, err := a.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, a.list, body)
		p.LTrim(ctx, a.list, 0, int64(a.listMax-1))
		p.Publish(ctx, a.channel, body)
		return nil
	})
	return err
}

// Close closes the client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
