// Package ratelimit implementa el cupo de envíos por emisor como token bucket
// explícito. El reloj se inyecta para poder testear sin depender del reloj de
// pared: rate.Limiter acepta el instante en AllowN.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstrae time.Now para los tests.
type Clock interface {
	Now() time.Time
}

// SystemClock usa el reloj real.
type SystemClock struct{}

// Now devuelve time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// TenantLimiter mantiene un token bucket por emisor. SUNAT limita los envíos
// por minuto, así que el rate se expresa en tokens/minuto.
type TenantLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
	burst    int
	clock    Clock
}

// NewTenantLimiter crea el limitador con cupo perMinute y ráfaga burst.
// clock puede ser nil (usa el reloj del sistema).
func NewTenantLimiter(perMinute, burst int, clock Clock) *TenantLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &TenantLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMinute,
		burst:    burst,
		clock:    clock,
	}
}

// Allow consume un token del bucket del emisor; false significa que el envío
// debe diferirse (no descartarse) hasta que haya cupo.
func (l *TenantLimiter) Allow(companyID string) bool {
	return l.bucket(companyID).AllowN(l.clock.Now(), 1)
}

func (l *TenantLimiter) bucket(companyID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[companyID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burst)
		l.limiters[companyID] = lim
	}
	return lim
}
