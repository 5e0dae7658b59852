package plugs

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/pipeline"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
	clock    clock.Clock
}

func NewRateLimiter(rps float64, burst int, clk clock.Clock) *RateLimiter {
	if rps <= 0 {
		rps = 5
	}

	if burst <= 0 {
		burst = 10
	}

	if clk == nil {
		clk = clock.New()
	}

	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		clock:    clk,
	}
}

func (r *RateLimiter) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}

	l := rate.NewLimiter(r.rps, r.burst)
	r.limiters[key] = l
	return l
}

// Allow reports whether the client may proceed right now.
func (r *RateLimiter) Allow(key string) bool {
	return r.get(key).AllowN(r.clock.Now(), 1)
}

// Plug answers 429 Too Many Requests and halts once the client exceeds its rate.
func (r *RateLimiter) Plug() pipeline.Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		if r.Allow(c.RemoteIP.String()) {
			return c, nil
		}

		c, err := c.PutRespHeader("retry-after", "1")
		if err != nil {
			return c, err
		}

		c, err = c.SendString(status.TooManyRequests, string(status.Text(status.TooManyRequests)))
		if err != nil {
			return c, err
		}

		return c.Halt(), nil
	}
}
