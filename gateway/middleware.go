package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxIdentity     = "identity"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if identity, ok := identityFrom(c); ok {
			fields = append(fields, zap.String("user_id", identity.ID))
		}
		logger.Info("HTTP request", fields...)
	}
}

// corsMiddleware allows credentialed requests from the configured origins
// so the browser sends the session cookie.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireAuth resolves the session cookie into an Identity stored on the
// request context.
func (g *Gateway) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := g.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

func (g *Gateway) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := g.authenticate(c)
		if !ok {
			return
		}
		if !identity.IsAdmin() {
			g.respondError(c, &orders.Error{Kind: orders.ErrUnauthorized, Message: "Admin access required"})
			return
		}
		c.Next()
	}
}

func (g *Gateway) authenticate(c *gin.Context) (models.Identity, bool) {
	sid, err := c.Cookie(g.config.Session.CookieName)
	if err != nil || sid == "" {
		g.respondError(c, unauthenticated(nil))
		return models.Identity{}, false
	}

	identity, err := g.sessions.Lookup(c.Request.Context(), sid)
	if err != nil {
		if errors.Is(err, orders.ErrUnauthenticated) {
			err = unauthenticated(err)
		}
		g.respondError(c, err)
		return models.Identity{}, false
	}

	c.Set(ctxIdentity, identity)
	return identity, true
}

func unauthenticated(cause error) error {
	return &orders.Error{Kind: orders.ErrUnauthenticated, Message: "Authentication required", Err: cause}
}

func identityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
