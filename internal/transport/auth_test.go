package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ggmemo/ggmemo/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToUser map[string]string
	err         error
}

func (r *testResolver) ResolveUser(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	user, ok := r.tokenToUser[token]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	return user, nil
}

func identityRouter(cfg IdentityConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(cfg), Device())
	r.GET("/whoami", func(c *gin.Context) {
		ctxUser, _ := auth.UserIDFromContext(c.Request.Context())
		ctxDevice, _ := auth.DeviceIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"user":      GetUserID(c),
			"ctxUser":   ctxUser,
			"device":    GetDeviceID(c),
			"ctxDevice": ctxDevice,
		})
	})
	return r
}

func whoami(t *testing.T, r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdentity_BearerToken(t *testing.T) {
	r := identityRouter(IdentityConfig{Resolver: &testResolver{tokenToUser: map[string]string{"token": "user1"}}})

	rec := whoami(t, r, map[string]string{"Authorization": "Bearer token", "X-Device-Id": "phone"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user":"user1","ctxUser":"user1","device":"phone","ctxDevice":"phone"}`, rec.Body.String())
}

func TestIdentity_InvalidToken(t *testing.T) {
	r := identityRouter(IdentityConfig{Resolver: &testResolver{err: errors.New("invalid")}})

	rec := whoami(t, r, map[string]string{"Authorization": "Bearer token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	rec = whoami(t, r, map[string]string{"Authorization": "Basic abc"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_ExpiredToken(t *testing.T) {
	r := identityRouter(IdentityConfig{Resolver: &testResolver{err: auth.ErrExpiredToken}})

	rec := whoami(t, r, map[string]string{"Authorization": "Bearer token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Token expired")
}

func TestIdentity_Anonymous(t *testing.T) {
	r := identityRouter(IdentityConfig{})

	rec := whoami(t, r, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user":"","ctxUser":"","device":"default","ctxDevice":"default"}`, rec.Body.String())
}

func TestIdentity_TrustedHeaderAndDefault(t *testing.T) {
	r := identityRouter(IdentityConfig{TrustUserHeader: true, DefaultUser: "local"})

	rec := whoami(t, r, map[string]string{"X-User-Id": "dev"})
	require.Contains(t, rec.Body.String(), `"user":"dev"`)

	rec = whoami(t, r, nil)
	require.Contains(t, rec.Body.String(), `"user":"local"`)

	// Without trust the header is ignored.
	r = identityRouter(IdentityConfig{})
	rec = whoami(t, r, map[string]string{"X-User-Id": "dev"})
	require.Contains(t, rec.Body.String(), `"user":""`)
}
