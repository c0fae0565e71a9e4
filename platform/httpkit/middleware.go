package httpkit

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"agencydesk_backend/platform/logger"
)

// accessClaims is the JWT payload issued by the identity provider.
type accessClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// AuthRequired validates the Bearer token and stores the user identity
// in the gin context for downstream handlers.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &accessClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			RespondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid token subject")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, claims.Roles)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the request carries one of the
// given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		for _, role := range Roles(c) {
			if _, ok := allowed[role]; ok {
				c.Next()
				return
			}
		}
		RespondError(c, http.StatusForbidden, "insufficient permissions")
		c.Abort()
	}
}

// RequestLogger logs every request with latency and status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000.0
		log.HTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency, c.ClientIP())
	}
}

// IPRateLimiter keeps a token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter creates a limiter allowing r events/sec with the
// given burst per client IP.
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    r,
		burst:    burst,
	}
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// Middleware returns the gin middleware enforcing the limit.
func (l *IPRateLimiter) Middleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			log.RateLimitExceeded(c.ClientIP(), c.Request.URL.Path)
			RespondError(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
