package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	identityKey   = "identity"
	sessionHeader = "X-Session-ID"
	tokenCookie   = "access_token"
)

// extractToken reads the bearer token from the Authorization header or the access_token cookie
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

// requireAuth rejects requests without a valid token
func requireAuth(provider *auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := provider.Verify(extractToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"details": err.Error(),
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// optionalAuth attaches the identity when a valid token is present
func optionalAuth(provider *auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if identity, err := provider.Verify(token); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// requireRole allows only identities with one of roles. Runs after requireAuth.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func currentIdentity(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*auth.Identity)
	return identity
}

// sessionID identifies the cart: the X-Session-ID header, else the signed-in user
func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(sessionHeader)); id != "" {
		return id
	}
	if identity := currentIdentity(c); identity != nil {
		return "user:" + identity.UserID
	}
	return ""
}

// requireSession rejects cart requests that carry no session
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID(c) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Missing cart session",
				"details": "send the " + sessionHeader + " header or sign in",
			})
			return
		}
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
