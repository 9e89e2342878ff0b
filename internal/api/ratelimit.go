package api

import (
    "sync"

    "golang.org/x/time/rate"
)

// tenantLimiter applies a token-bucket limit per tenant to the optimize
// endpoint: a run can pin CPUs for its whole time budget.
type tenantLimiter struct {
    mu       sync.Mutex
    limiters map[string]*rate.Limiter
    rps      rate.Limit
    burst    int
}

func newTenantLimiter(rps float64, burst int) *tenantLimiter {
    return &tenantLimiter{limiters: map[string]*rate.Limiter{}, rps: rate.Limit(rps), burst: burst}
}

func (t *tenantLimiter) Allow(tenant string) bool {
    t.mu.Lock()
    l := t.limiters[tenant]
    if l == nil {
        l = rate.NewLimiter(t.rps, t.burst)
        t.limiters[tenant] = l
    }
    t.mu.Unlock()
    return l.Allow()
}
