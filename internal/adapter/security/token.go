package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "appstore"

// Claims — утверждения токена доступа: стандартные плюс роль пользователя
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// JWTService выпускает и проверяет токены доступа HS256
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService создает сервис токенов
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *JWTService) Issue(userID string, role domain.Role) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: role,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия. Любая проблема с токеном — domain.ErrUnauthorized.
func (s *JWTService) Verify(tokenString string) (*ports.TokenClaims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	return &ports.TokenClaims{UserID: claims.Subject, Role: claims.Role}, nil
}
