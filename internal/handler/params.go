package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"orderbackup/internal/auth"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func boolPtr(v bool) *bool { return &v }

// timeQueryPtr accepts RFC3339 or a plain date.
func timeQueryPtr(c *gin.Context, key string) (*time.Time, bool) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, true
	}
	t, ok := parseTime(val)
	if !ok {
		return nil, false
	}
	return &t, true
}

func parseTime(val string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			val := strings.TrimSpace(part)
			if val == "" {
				continue
			}
			if _, ok := seen[val]; ok {
				continue
			}
			seen[val] = struct{}{}
			out = append(out, val)
		}
	}
	return out
}

func uint64Param(c *gin.Context, key string) uint64 {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0
	}
	out, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0
	}
	return out
}

// allowToken answers 403 and returns false when the caller's claims do not
// cover tokenID. Requests without claims only happen when the auth
// middleware is not installed and are let through.
func allowToken(c *gin.Context, tokenID string) bool {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.AllowsToken(tokenID) {
		return true
	}
	Error(c, http.StatusForbidden, "token not allowed", map[string]any{"token_id": tokenID})
	return false
}

// requiredToken reads token_id from the query and checks it against the caller.
func requiredToken(c *gin.Context) (string, bool) {
	tokenID := strings.TrimSpace(c.Query("token_id"))
	if tokenID == "" {
		Error(c, http.StatusBadRequest, "token_id is required", nil)
		return "", false
	}
	if !allowToken(c, tokenID) {
		return "", false
	}
	return tokenID, true
}

// optionalToken is like requiredToken but an empty token_id means all tokens,
// which only callers without a token restriction may ask for.
func optionalToken(c *gin.Context) (string, bool) {
	tokenID := strings.TrimSpace(c.Query("token_id"))
	if tokenID != "" {
		return tokenID, allowToken(c, tokenID)
	}
	if claims, ok := auth.ClaimsFrom(c); ok && len(claims.TokenIDs) > 0 && claims.Role != auth.RoleAdmin {
		Error(c, http.StatusBadRequest, "token_id is required", nil)
		return "", false
	}
	return "", true
}

// requireAdmin answers 403 unless the caller is an admin. Requests without
// claims pass.
func requireAdmin(c *gin.Context) bool {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.Role == auth.RoleAdmin {
		return true
	}
	Error(c, http.StatusForbidden, "admin role required", nil)
	return false
}
