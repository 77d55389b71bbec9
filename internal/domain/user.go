// internal/domain/user.go
package domain

import (
	"time"
)

// Role определяет роль пользователя в магазине приложений
type Role string

const (
	RoleUser      Role = "user"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// Valid сообщает, входит ли роль в известный набор
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

// User представляет запись пользователя в коллекции users.
// Пользователь либо credentialed (email + passwordHash), либо анонимный (handle, без пароля).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Handle       string    `json:"handle,omitempty"`
	Role         Role      `json:"role"`
	IsAnonymous  bool      `json:"isAnonymous"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentialed сообщает, может ли пользователь входить по email и паролю
func (u *User) Credentialed() bool {
	return !u.IsAnonymous && u.Email != "" && u.PasswordHash != ""
}

// Public возвращает представление пользователя без учетных данных
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Handle:      u.Handle,
		Role:        u.Role,
		IsAnonymous: u.IsAnonymous,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// PublicUser — пользователь в том виде, в котором он уходит клиенту.
// Поля с хешем пароля здесь нет намеренно.
type PublicUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Handle      string    `json:"handle,omitempty"`
	Role        Role      `json:"role"`
	IsAnonymous bool      `json:"isAnonymous"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
