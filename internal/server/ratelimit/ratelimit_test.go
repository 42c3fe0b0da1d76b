package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{
		Enabled: true,
		EndpointConfigs: []EndpointConfig{
			{Path: "/upload", Method: "POST", Limit: 60, Window: time.Minute, Burst: 3},
		},
	})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("10.0.0.1", "/upload", "POST")
		require.True(t, allowed, "request %d within burst", i+1)
		assert.Equal(t, 60, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/upload", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Second, info.RetryAfter)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/upload", "POST")
	assert.True(t, allowed, "one token refilled after a second")
}

func TestLimiter_PerClient(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		EndpointConfigs: []EndpointConfig{{Path: "/upload", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}},
	})

	allowed, _ := l.Allow("a", "/upload", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/upload", "POST")
	assert.False(t, allowed)
	allowed, _ = l.Allow("b", "/upload", "POST")
	assert.True(t, allowed, "other clients have their own bucket")
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		Whitelist:       map[string]bool{"good": true},
		Blacklist:       map[string]bool{"bad": true},
		EndpointConfigs: []EndpointConfig{{Path: "/upload", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}},
	})

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("good", "/upload", "POST")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("bad", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})
	for i := 0; i < 100; i++ {
		allowed, info := l.Allow("c", "/upload_resumes", "POST")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	assert.Zero(t, l.Size())
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Hour})

	allowed, _ := l.Allow("c", "/unknown", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/unknown", "GET")
	assert.True(t, allowed)
	allowed, info := l.Allow("c", "/unknown", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 2, info.Limit)
}

func TestLimiter_PrefixSharesBucket(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		EndpointConfigs: []EndpointConfig{{Path: "/batches/", Method: "GET", Limit: 2, Window: time.Hour, Burst: 2}},
	})

	allowed, _ := l.Allow("c", "/batches/one", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/batches/two/export.xlsx", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/batches/three", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		EndpointConfigs: []EndpointConfig{{Path: "/upload", Method: "POST", Limit: 50, Window: time.Hour, Burst: 50}},
	})

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/upload", "POST"); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), granted.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Minute})

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/x", "GET")
	}
	require.Equal(t, 3, l.Size())

	clock.Advance(30 * time.Second)
	l.Allow("client-0", "/x", "GET")
	clock.Advance(45 * time.Second)
	l.cleanupBuckets()

	assert.Equal(t, 1, l.Size(), "only the recently used bucket survives")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	allowed, info := l.Allow("c", "/anything", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
		wantNil      bool
	}{
		{"/upload", "POST", "/upload", false},
		{"/upload_resumes", "POST", "/upload_resumes", false},
		{"/upload_resumes/stream", "POST", "/upload_resumes/stream", false},
		{"/batches/abc/export.xlsx", "GET", "/batches/", false},
		{"/upload", "GET", "", true},
		{"/health", "GET", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "127.0.0.1, ::1")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.True(t, cfg.Whitelist["::1"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
