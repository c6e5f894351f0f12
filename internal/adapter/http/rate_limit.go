package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/infra/ratelimit"
	"github.com/fixora/spaceships/pkg/apperror"
)

// RateLimitConfig bounds the API requests of one client IP
type RateLimitConfig struct {
	Requests      int
	Window        time.Duration
	BlockDuration time.Duration
}

// RateLimitMiddleware blocks clients that exceed their request budget.
// Limiter failures let the request through.
type RateLimitMiddleware struct {
	rateLimitService ratelimit.RateLimitService
	config           RateLimitConfig
	logger           *logrus.Entry
}

func NewRateLimitMiddleware(rateLimitService ratelimit.RateLimitService, config RateLimitConfig, logger logrus.FieldLogger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		config:           config,
		logger:           logger.WithField("component", "rate_limit"),
	}
}

func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := getClientIP(r)
		key := fmt.Sprintf("api:ip:%s", clientIP)
		log := m.logger.WithContext(ctx).WithFields(logrus.Fields{
			"ip":   clientIP,
			"path": r.URL.Path,
		})

		blocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			log.WithError(err).Error("Failed to check block status")
		}
		if blocked {
			m.reject(w)
			return
		}

		count, err := m.rateLimitService.Increment(ctx, key, m.config.Window)
		if err != nil {
			log.WithError(err).Error("Failed to count request")
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(m.config.Requests) {
			if err := m.rateLimitService.Block(ctx, key, m.config.BlockDuration, "Rate limit exceeded"); err != nil {
				log.WithError(err).Error("Failed to block client")
			}
			log.WithField("count", count).Warn("Rate limit exceeded")
			m.reject(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.config.BlockDuration.Seconds())))
	writeErrorResponse(w, &apperror.AppError{
		Code:    "RATE_LIMITED",
		Message: "Too many requests. Please try again later.",
		Status:  http.StatusTooManyRequests,
	})
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
