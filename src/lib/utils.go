package lib

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// MessageResponse builds the standard one-line JSON body used for
// toast-style feedback.
func MessageResponse(message string) fiber.Map {
	return fiber.Map{
		"message": message,
	}
}

// UsernameFromEmail derives the public handle from an email address: its
// local part. Identity elsewhere in the system is this opaque string.
func UsernameFromEmail(email string) (string, error) {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return local, nil
}

// GenerateJWT signs a token carrying the user's id, valid for 24 hours.
func GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(Cfg.JWTSecret))
}

// VerifyJWT validates a token and returns its claims.
func VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(Cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
}
