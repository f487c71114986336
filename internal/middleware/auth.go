// Package middleware provides authentication, logging, tracing and rate-limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strings"

	"threadpulse/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

var (
	errMissingSubject = errors.New("invalid token structure - missing subject")
	errBadSubject     = errors.New("invalid token subject")
)

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// AuthRequired is a middleware that enforces authentication for protected routes.
// Dashboard sessions are issued by an external provider; only the signature and
// the subject are checked here.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	tokenString, ok := bearerToken(authHeader)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	return authenticate(c, tokenString)
}

// WebSocketAuthRequired is middleware that validates JWT tokens from query parameters for WebSocket connections.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
		var ok bool
		token, ok = bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}
	}

	return authenticate(c, token)
}

// UserID returns the authenticated subject stored by AuthRequired.
func UserID(c *fiber.Ctx) (string, bool) {
	uid, ok := c.Locals("userID").(string)
	return uid, ok && uid != ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	subject, err := parseSubject(tokenString)
	if err != nil {
		msg := "Invalid or expired token"
		if errors.Is(err, errMissingSubject) || errors.Is(err, errBadSubject) {
			msg = err.Error()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": msg,
		})
	}

	c.Locals("userID", subject)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, subject))

	return c.Next()
}

func parseSubject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	// "sub" per RFC 7519
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", errBadSubject
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errMissingSubject
	}
	if len(subject) > 191 {
		return "", errBadSubject
	}
	return subject, nil
}
