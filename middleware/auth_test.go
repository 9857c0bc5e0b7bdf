package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-ordering-api/access"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ptr(v uint) *uint { return &v }

type directory map[uint]access.Caller

func (d directory) Identify(_ context.Context, id uint) (access.Caller, error) {
	c, ok := d[id]
	if !ok {
		return access.Caller{}, fmt.Errorf("%w: unknown account %d", services.ErrUnauthenticated, id)
	}
	return c, nil
}

var accounts = directory{
	1: {AccountID: 1, Role: models.RoleCustomer},
	2: {AccountID: 2, Role: models.RoleAdmin, RestaurantID: ptr(4)},
}

func contextFor(req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestJWTRoundTrip(t *testing.T) {
	auth := middleware.NewJWTAuthenticator("s3cret", time.Hour, accounts)
	token, err := auth.GenerateToken(&models.User{ID: 2, Email: "a@x.so", Role: models.RoleCustomer})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	caller, err := auth.Authenticate(contextFor(req))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, caller.Role, "role comes from the account, not the token")
	require.NotNil(t, caller.RestaurantID)
	assert.Equal(t, uint(4), *caller.RestaurantID)

	req = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	caller, err = auth.Authenticate(contextFor(req))
	require.NoError(t, err)
	assert.Equal(t, uint(2), caller.AccountID)
}

func TestJWTRejects(t *testing.T) {
	auth := middleware.NewJWTAuthenticator("s3cret", time.Hour, accounts)
	expired := middleware.NewJWTAuthenticator("s3cret", -time.Minute, accounts)
	other := middleware.NewJWTAuthenticator("different", time.Hour, accounts)

	old, err := expired.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)
	forged, err := other.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)
	unknown, err := auth.GenerateToken(&models.User{ID: 99})
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, middleware.Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Token abc"},
		{"garbage", "Bearer abc.def.ghi"},
		{"expired", "Bearer " + old},
		{"wrong secret", "Bearer " + forged},
		{"unsigned", "Bearer " + none},
		{"unknown account", "Bearer " + unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, err := auth.Authenticate(contextFor(req))
			assert.ErrorIs(t, err, services.ErrUnauthenticated)
		})
	}
}

func TestHeaderAuthenticator(t *testing.T) {
	auth := middleware.NewHeaderAuthenticator(accounts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.UserIDHeader, "1")
	caller, err := auth.Authenticate(contextFor(req))
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, caller.Role)

	caller, err = auth.Authenticate(contextFor(httptest.NewRequest(http.MethodGet, "/?userId=2", nil)))
	require.NoError(t, err)
	assert.Equal(t, uint(2), caller.AccountID)

	for _, raw := range []string{"", "0", "-3", "abc", "99"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.UserIDHeader, raw)
		_, err := auth.Authenticate(contextFor(req))
		assert.ErrorIs(t, err, services.ErrUnauthenticated, "user-id %q", raw)
	}
}

func TestAuthRequiredAndRoleRequired(t *testing.T) {
	r := gin.New()
	r.GET("/admin",
		middleware.AuthRequired(middleware.NewHeaderAuthenticator(accounts), zap.NewNop()),
		middleware.RoleRequired(models.RoleAdmin, models.RoleSuperAdmin),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": middleware.GetUserID(c), "role": middleware.GetRole(c)})
		})
	r.GET("/open", middleware.RoleRequired(models.RoleAdmin), func(c *gin.Context) {})

	tests := []struct {
		name   string
		path   string
		userID string
		want   int
	}{
		{"admin passes", "/admin", "2", http.StatusOK},
		{"customer is forbidden", "/admin", "1", http.StatusForbidden},
		{"anonymous", "/admin", "", http.StatusUnauthorized},
		{"role check without auth", "/open", "2", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.userID != "" {
				req.Header.Set(middleware.UserIDHeader, tt.userID)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRequestLoggerAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(zap.NewNop()), middleware.RequestLogger(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}
