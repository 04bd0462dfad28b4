package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	deviceIDKey = "deviceID"

	// DefaultDevice is used when a request carries no X-Device-Id.
	DefaultDevice = "default"
)

// IdentityConfig controls how a request's owner is resolved.
type IdentityConfig struct {
	// Resolver verifies bearer tokens. Nil disables token auth.
	Resolver auth.Resolver
	// TrustUserHeader accepts X-User-Id without a token. Development only.
	TrustUserHeader bool
	// DefaultUser owns requests that carry no identity. Empty leaves them
	// anonymous.
	DefaultUser string
}

// Identity resolves the request owner and stores it in both the gin and the
// request context. Requests without credentials pass through anonymously;
// services reject owner-scoped calls without a user.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""

		header := c.GetHeader("Authorization")
		switch {
		case header != "" && cfg.Resolver != nil:
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				respondError(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid authorization header format")
				return
			}
			id, err := cfg.Resolver.ResolveUser(c.Request.Context(), token)
			if err != nil {
				message := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "Token expired"
				}
				respondError(c, http.StatusUnauthorized, apperr.CodeUnauthorized, message)
				return
			}
			userID = id
		case cfg.TrustUserHeader && c.GetHeader("X-User-Id") != "":
			userID = c.GetHeader("X-User-Id")
		default:
			userID = cfg.DefaultUser
		}

		if userID != "" {
			c.Set(userIDKey, userID)
			c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
		}
		c.Next()
	}
}

// Device reads X-Device-Id, which namespaces quick memos.
func Device() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader("X-Device-Id"))
		if deviceID == "" {
			deviceID = DefaultDevice
		}
		c.Set(deviceIDKey, deviceID)
		c.Request = c.Request.WithContext(auth.WithDeviceID(c.Request.Context(), deviceID))
		c.Next()
	}
}

// GetUserID returns the resolved owner, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetDeviceID returns the request's device namespace.
func GetDeviceID(c *gin.Context) string {
	if id := c.GetString(deviceIDKey); id != "" {
		return id
	}
	return DefaultDevice
}
