package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const accountKey = "accountID"

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(start).Round(time.Microsecond),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Debug("request", fields...)
		}
	}
}

// requireAuth rejects requests without a valid session cookie.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := s.sessionAccount(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

func (s *Server) sessionAccount(c *gin.Context) (int64, bool) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return 0, false
	}
	id, err := s.accounts.ParseToken(token)
	if err != nil {
		return 0, false
	}
	return id, true
}

func accountID(c *gin.Context) int64 {
	return c.GetInt64(accountKey)
}

// limiter hands out one token bucket per client.
type limiter struct {
	mu      sync.Mutex
	perMin  int
	clients map[string]*rate.Limiter
}

func newLimiter(perMin int) *limiter {
	return &limiter{perMin: perMin, clients: make(map[string]*rate.Limiter)}
}

func (l *limiter) allow(client string) bool {
	l.mu.Lock()
	lim, ok := l.clients[client]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.clients[client] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// rateLimit throttles credential endpoints per client IP.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			s.logger.Warn("auth rate limited", "client", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
			return
		}
		c.Next()
	}
}
