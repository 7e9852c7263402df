package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"golang.org/x/time/rate"
)

// RouteAccessLogger 访问日志中间件
func RouteAccessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		logRouteAccess(c, tl.Info, "Accessing route", palette.Blue)
		c.Next()
		logRouteAccess(c, tl.Info1, "Route accessed", palette.Green)
	}
}

func logRouteAccess(c *gin.Context, level tl.LogLevel, action string, colorizer palette.Colorizer) {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	if c.Writer.Written() && c.Writer.Status() >= http.StatusBadRequest {
		level, colorizer = tl.Warning, palette.Yellow
	}
	tl.Log(level, colorizer, "%s: Method='%s', Path='%s', ClientIP='%s'", action, c.Request.Method, path, c.ClientIP())
}

// RateLimiter 按客户端 IP 限流
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	ttl     time.Duration
}

// NewRateLimiter 创建限流器；perSecond <= 0 表示不限流
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     time.Minute,
	}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[ip]
	if !exists {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = limiter

		// 一分钟后清理
		time.AfterFunc(l.ttl, func() {
			l.mu.Lock()
			delete(l.clients, ip)
			l.mu.Unlock()
		})
	}
	return limiter
}

// Middleware gin 中间件
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		if !l.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
