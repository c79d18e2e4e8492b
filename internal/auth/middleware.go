package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
)

const claimsKey = "auth_claims"

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.StandardClaims
}

// IssueToken signs claims for subject valid for ttl. Used by tooling and tests;
// account management lives outside this service.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Id:        fmt.Sprintf("%s-%d", subject, now.UnixNano()),
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an HS256 token and its revocation status.
func ParseToken(secret []byte, revoker Revoker, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if revoker != nil && revoker.IsRevoked(claims.Id) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Middleware rejects requests without a valid bearer token.
func Middleware(secret []byte, revoker Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseToken(secret, revoker, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok
}

// LogoutHandler revokes the caller's token until it expires.
func LogoutHandler(revoker Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		revoker.Revoke(claims.Id, time.Unix(claims.ExpiresAt, 0))
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}
