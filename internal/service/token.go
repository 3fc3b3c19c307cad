package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lumina/internal/model"
)

// DefaultSessionTokenMaxAge is used when no max age is configured (seconds).
const DefaultSessionTokenMaxAge = 86400

// TokenService signs and verifies session tokens (HS256).
type TokenService struct {
	secret []byte
	maxAge int
}

func NewTokenService(secret string, maxAgeSeconds int) *TokenService {
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = DefaultSessionTokenMaxAge
	}
	return &TokenService{secret: []byte(secret), maxAge: maxAgeSeconds}
}

// MaxAge returns the token lifetime in seconds.
func (s *TokenService) MaxAge() int {
	return s.maxAge
}

// Issue signs a token binding the session to its device.
func (s *TokenService) Issue(sessionID, deviceID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"device_id":  deviceID,
		"exp":        now.Add(time.Duration(s.maxAge) * time.Second).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims. Errors are
// model.ErrSessionTokenExpired or model.ErrSessionTokenInvalid.
func (s *TokenService) Parse(tokenString string) (*model.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, s.key)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrSessionTokenExpired
		}
		return nil, model.ErrSessionTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, model.ErrSessionTokenInvalid
	}

	sessionID, _ := claims["session_id"].(string)
	deviceID, _ := claims["device_id"].(string)
	if sessionID == "" || deviceID == "" {
		return nil, model.ErrSessionTokenInvalid
	}

	out := &model.SessionClaims{SessionID: sessionID, DeviceID: deviceID}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// DeviceID returns the device a previously issued token belongs to. The
// signature must verify but expiry is ignored: a lapsed token still proves
// which device the server handed it to.
func (s *TokenService) DeviceID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, s.key, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return "", model.ErrSessionTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrSessionTokenInvalid
	}
	deviceID, _ := claims["device_id"].(string)
	if deviceID == "" {
		return "", model.ErrSessionTokenInvalid
	}
	return deviceID, nil
}

func (s *TokenService) key(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	return s.secret, nil
}
