package auth

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	// Load env file into environments.
	_ "github.com/joho/godotenv/autoload"
)

// JwtIssuer is issuer of every token this server sign
const JwtIssuer = "TalentPool"

// AccessTokenDuration is lifetime of access token
const AccessTokenDuration = time.Hour

var (
	secretMu  sync.RWMutex
	secretKey = []byte(os.Getenv("SECRET_KEY"))
)

// SetSecretKey replace HMAC key used to sign and validate token
func SetSecretKey(key string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secretKey = []byte(key)
}

func currentKey() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return secretKey
}

// GenerateStandardToken sign 1 hour access token for user id
func GenerateStandardToken(id uuid.UUID) (string, error) {
	return GenerateTokenWithDuration(id, AccessTokenDuration, JwtIssuer)
}

// GenerateTokenWithDuration sign token with custom lifetime and issuer, negative duration give expired token
func GenerateTokenWithDuration(id uuid.UUID, duration time.Duration, issuer string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   id.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signed, err := token.SignedString(currentKey())
	if err != nil {
		return "", fmt.Errorf("Failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidatedToken parse and verify HS256 token into *jwt.RegisteredClaims
func ValidatedToken(encodeToken string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(encodeToken, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, isvalid := token.Method.(*jwt.SigningMethodHMAC); !isvalid {
			return nil, errors.New("Invalid token signing method")
		}
		return currentKey(), nil
	})
}
