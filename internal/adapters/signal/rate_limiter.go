package signal

import "golang.org/x/time/rate"

// connRateLimiter bounds inbound events for one connection. A zero limit
// disables it.
type connRateLimiter struct {
	lim *rate.Limiter
}

func newConnRateLimiter(perSecond float64, burst int) *connRateLimiter {
	if perSecond <= 0 {
		return &connRateLimiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &connRateLimiter{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *connRateLimiter) Allow() bool {
	if l.lim == nil {
		return true
	}
	return l.lim.Allow()
}
