package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Ошибки проверки токена
var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrShortSecret  = errors.New("auth: secret key must be at least 32 bytes")
)

const (
	issuer     = "mmo-seating"
	defaultTTL = 24 * time.Hour
)

// Claims утверждения токена: от имени какого аватара действует клиент
type Claims struct {
	AgentID string `json:"agent_id"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256 токены аватаров
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager создаёт менеджер с секретом в base64.
// Пустой секрет заменяется случайным (токены живут до перезапуска).
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	var key []byte
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("auth: generate secret: %w", err)
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("auth: decode secret: %w", err)
		}
		if len(decoded) < 32 {
			return nil, ErrShortSecret
		}
		key = decoded
	}

	return &TokenManager{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue создаёт токен для аватара
func (m *TokenManager) Issue(agentID uuid.UUID) (string, error) {
	now := m.now()
	claims := &Claims{
		AgentID: agentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   agentID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate проверяет подпись и срок токена и возвращает UUID аватара
func (m *TokenManager) Validate(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	agentID, err := uuid.Parse(claims.AgentID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: agent_id: %v", ErrInvalidToken, err)
	}
	return agentID, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
