package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin access is not configured")
)

// AuthService authenticates the single configured operator.
type AuthService struct {
	email        string
	passwordHash []byte
	jwtSecret    []byte
	jwtExpiry    time.Duration
	now          func() time.Time
}

func NewAuthService(email, passwordHash, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		email:        email,
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(secret),
		jwtExpiry:    expiry,
		now:          time.Now,
	}
}

// Enabled reports whether login is possible at all.
func (s *AuthService) Enabled() bool {
	return s.email != "" && len(s.passwordHash) > 0 && len(s.jwtSecret) > 0
}

// Authenticates the operator and returns a JWT token
func (s *AuthService) Login(_ context.Context, email, password string) (string, error) {
	if !s.Enabled() {
		return "", ErrAdminDisabled
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	// always run bcrypt so a wrong email costs the same as a wrong password
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   s.email,
		"email": s.email,
		"role":  "admin",
		"exp":   now.Add(s.jwtExpiry).Unix(),
		"iat":   now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// Validates a JWT token and return the claims
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	if !s.Enabled() {
		return nil, ErrAdminDisabled
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verifying signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
