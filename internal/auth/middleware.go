package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// ClaimsFrom returns the verified claims of the request. With auth disabled
// every request is treated as admin.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// Middleware requires a valid bearer token on /api and /swagger routes.
// Probes and /metrics stay open.
func Middleware(j JWT, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			c.Set(claimsKey, Claims{Role: RoleAdmin})
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if !strings.HasPrefix(p, "/api/") && !strings.HasPrefix(p, "/swagger") {
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			// Browsers cannot set headers on websocket upgrades.
			tok = strings.TrimSpace(c.Query("access_token"))
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing bearer token"})
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
