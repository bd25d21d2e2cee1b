package errors

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrEmailAlreadyInUse        = errors.New("user with this email already exists")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrAccountDeactivated       = errors.New("account is deactivated")
	ErrRefreshTokenNotFound     = errors.New("invalid refresh token")
	ErrRefreshTokenInvalid      = errors.New("refresh token is expired or revoked")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrUserNotFound             = errors.New("user not found")

	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("invalid access token")
)

// StatusCode maps a service error to the HTTP status the boundary answers with.
// Unrecognized errors are treated as internal failures.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrEmailAlreadyInUse):
		return fiber.StatusConflict
	case errors.Is(err, ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDeactivated),
		errors.Is(err, ErrRefreshTokenNotFound),
		errors.Is(err, ErrRefreshTokenInvalid),
		errors.Is(err, ErrCurrentPasswordIncorrect),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
