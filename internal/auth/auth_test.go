package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := JWT{Secret: []byte("s3cret"), TokenTTL: time.Hour}
	tok, exp, err := j.Sign(Claims{Role: RoleOperator, TokenIDs: []string{"tok-a"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "orderbackup", claims.Issuer)
	assert.True(t, claims.AllowsToken("tok-a"))
	assert.False(t, claims.AllowsToken("tok-b"))

	_, err = JWT{Secret: []byte("other")}.Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	past := time.Now().Add(-time.Hour)
	tok, _, err := j.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)}})
	require.NoError(t, err)
	_, err = j.Verify(tok)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("s3cret")}
	r := gin.New()
	r.Use(Middleware(j, false))
	r.GET("/api/ping", func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Role)
	})
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	tok, _, err := j.Sign(Claims{Role: RoleAdmin})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleAdmin, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping?access_token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(JWT{}, true))
	r.GET("/api/ping", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Role)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleAdmin, w.Body.String())
}
