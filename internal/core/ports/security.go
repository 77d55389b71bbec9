package ports

import (
	"github.com/GoArmGo/AppStore/internal/domain"
)

// PasswordHasher — сервис хеширования и проверки паролей
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenClaims — данные, извлеченные из проверенного токена
type TokenClaims struct {
	UserID string
	Role   domain.Role
}

// TokenService выпускает и проверяет bearer-токены
type TokenService interface {
	Issue(userID string, role domain.Role) (string, error)
	Verify(token string) (*TokenClaims, error)
}
