// Package limiter guards the LibreOffice conversion path: a local in-process
// slot semaphore per tool, plus an optional Redis-backed cooldown breaker
// that opens with exponential backoff when conversions keep failing.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Adaptive struct {
	rdb         *redis.Client
	maxInflight int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

type Options struct {
	RedisURL    string // empty disables the shared breaker; semaphore still applies
	MaxInflight int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) (*Adaptive, error) {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	a := &Adaptive{
		maxInflight: opts.MaxInflight,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		sem:         map[string]chan struct{}{},
	}
	if opts.RedisURL != "" {
		ro, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, err
		}
		c := redis.NewClient(ro)
		if err := c.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		a.rdb = c
	}
	return a, nil
}

func (a *Adaptive) key(tool string) string {
	return fmt.Sprintf("cb:%s", strings.ToLower(tool))
}

// IsOpen returns true if the breaker for tool is in cooldown.
func (a *Adaptive) IsOpen(ctx context.Context, tool string) bool {
	if a.rdb == nil {
		return false
	}
	ts, err := a.rdb.Get(ctx, a.key(tool)).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Open sets/extends the cooldown with exponential backoff per attempt.
func (a *Adaptive) Open(ctx context.Context, tool string) {
	if a.rdb == nil {
		return
	}
	k := a.key(tool)
	cntKey := k + ":attempts"
	attempts, _ := a.rdb.Incr(ctx, cntKey).Result()
	if attempts < 1 {
		attempts = 1
	}
	d := a.baseBackoff * (1 << (attempts - 1))
	if d > a.maxBackoff {
		d = a.maxBackoff
	}
	until := time.Now().Add(d).Unix()
	_ = a.rdb.Set(ctx, k, until, d).Err()
}

// Close resets the breaker for tool.
func (a *Adaptive) Close(ctx context.Context, tool string) {
	if a.rdb == nil {
		return
	}
	k := a.key(tool)
	_ = a.rdb.Del(ctx, k, k+":attempts").Err()
}

// Allow tries to reserve a local in-process slot for tool.
// Returns a release function and true if allowed; otherwise nil-op,false.
func (a *Adaptive) Allow(tool string) (func(), bool) {
	key := strings.ToLower(tool)
	a.mu.Lock()
	ch, ok := a.sem[key]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

func (a *Adaptive) CloseClient() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}
