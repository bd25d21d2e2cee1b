package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/promptforge/auth-service/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherror "github.com/promptforge/auth-service/internal/errors"
	"github.com/promptforge/auth-service/pkg/constant"
)

type TokenGenerator interface {
	Generate(userID, email, role string) (string, error)
	AccessExpirySeconds() int
	Verify(tokenString string) (*AccessClaims, error)
}

type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenService signs and verifies access tokens. The secret and expiry are
// injected at construction so tests can run with distinct secrets.
type TokenService struct {
	secret       string
	accessExpiry time.Duration
}

func NewTokenService(secret, accessExpiry string) *TokenService {
	return &TokenService{
		secret:       secret,
		accessExpiry: time.Duration(ParseExpirySeconds(accessExpiry)) * time.Second,
	}
}

var expiryPattern = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseExpirySeconds converts an expiry string such as "15m" or "1h" into
// seconds. Unsupported formats fall back to DefaultAccessExpirySeconds
// rather than erroring.
func ParseExpirySeconds(expiry string) int {
	m := expiryPattern.FindStringSubmatch(expiry)
	if m == nil {
		return constant.DefaultAccessExpirySeconds
	}

	value, err := strconv.Atoi(m[1])
	if err != nil {
		// Out-of-range digits are as unsupported as a bad unit.
		return constant.DefaultAccessExpirySeconds
	}

	switch m[2] {
	case "d":
		return value * 24 * 60 * 60
	case "h":
		return value * 60 * 60
	case "m":
		return value * 60
	default:
		return value
	}
}

func (ts *TokenService) Generate(userID, email, role string) (string, error) {
	now := time.Now()

	claims := AccessClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.secret))
}

func (ts *TokenService) AccessExpirySeconds() int {
	return int(ts.accessExpiry / time.Second)
}

// Verify parses and validates the given access token string. Expiry and any
// other failure surface as distinct errors so the boundary can tell "refresh
// and retry" apart from "force re-login".
func (ts *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, autherror.ErrTokenInvalid
	}

	return claims, nil
}
