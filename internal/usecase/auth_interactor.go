package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/google/uuid"
)

// authUseCase implements AuthUseCase
type authUseCase struct {
	store     ports.RecordStore
	hasher    ports.PasswordHasher
	tokens    ports.TokenService
	logger    *slog.Logger
	now       func() time.Time

	// dummyHash сверяется при входе с неизвестным email
	dummyHash func() string
}

// NewAuthUseCase создает новый экземпляр AuthUseCase
func NewAuthUseCase(store ports.RecordStore, hasher ports.PasswordHasher, tokens ports.TokenService, logger *slog.Logger) AuthUseCase {
	return &authUseCase{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
		dummyHash: sync.OnceValue(func() string {
			hash, err := hasher.Hash(uuid.NewString())
			if err != nil {
				logger.Error("failed to prepare dummy password hash", "error", err)
			}
			return hash
		}),
	}
}

// maxPasswordBytes — bcrypt не принимает пароли длиннее 72 байт
const maxPasswordBytes = 72

func validatePassword(password string) error {
	if password == "" {
		return domain.NewValidationError("password", "is required")
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError("password", "must be at most 72 bytes")
	}
	return nil
}

// Register проверяет входные данные, хеширует пароль вне транзакции,
// а проверку уникальности email и добавление выполняет одной транзакцией.
func (uc *authUseCase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleDeveloper {
		return nil, domain.NewValidationError("role", "must be user or developer")
	}

	user := domain.User{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		Role:        role,
		IsAnonymous: in.IsAnonymous,
	}

	if in.IsAnonymous {
		user.Handle = newHandle()
	} else {
		if email == "" {
			return nil, domain.NewValidationError("email", "is required")
		}
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := uc.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("usecase: ошибка при хешировании пароля: %w", err)
		}
		user.PasswordHash = hash
	}

	err := uc.store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		if email != "" && db.FindUserByEmail(email) != nil {
			return false, domain.ErrDuplicateEmail
		}
		now := uc.now().UTC()
		user.CreatedAt = now
		user.UpdatedAt = now
		db.Users = append(db.Users, user)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	token, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при выпуске токена: %w", err)
	}

	uc.logger.Info("user registered",
		"user_id", user.ID,
		"role", user.Role,
		"anonymous", user.IsAnonymous,
	)
	return &AuthResult{User: user.Public(), Token: token}, nil
}

// Login сверяет пароль вне транзакции, затем отдельной транзакцией обновляет updatedAt
func (uc *authUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.NewValidationError("email", "email and password are required")
	}

	var (
		candidate domain.User
		found     bool
	)
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		if u := db.FindUserByEmail(email); u != nil && u.Credentialed() {
			candidate = *u
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found {
		uc.hasher.Verify(password, uc.dummyHash())
		return nil, domain.ErrInvalidCredentials
	}
	if !uc.hasher.Verify(password, candidate.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	var user domain.User
	err = uc.store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		u := db.FindUserByID(candidate.ID)
		if u == nil || u.Email != email || u.PasswordHash != candidate.PasswordHash {
			return false, domain.ErrInvalidCredentials
		}
		u.UpdatedAt = uc.now().UTC()
		user = *u
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	token, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при выпуске токена: %w", err)
	}

	uc.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResult{User: user.Public(), Token: token}, nil
}

// GetUser получает пользователя по ID
func (uc *authUseCase) GetUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	var user domain.PublicUser
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		u := db.FindUserByID(id)
		if u == nil {
			return domain.ErrNotFound
		}
		user = u.Public()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin получает или создает администратора с заданным email
func (uc *authUseCase) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.PublicUser, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "admin email is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}

	existing, err := uc.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role != domain.RoleAdmin {
			uc.logger.Warn("admin email belongs to a non-admin user", "user_id", existing.ID, "role", existing.Role)
		}
		return existing, nil
	}

	uc.logger.Warn("admin user not found, creating new one", "email", email)

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при хешировании пароля: %w", err)
	}

	var result domain.PublicUser
	err = uc.store.Update(ctx, func(_ context.Context, db *domain.Database) (bool, error) {
		if u := db.FindUserByEmail(email); u != nil {
			result = u.Public()
			return false, nil
		}
		now := uc.now().UTC()
		admin := domain.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		db.Users = append(db.Users, admin)
		result = admin.Public()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("admin user ensured", "user_id", result.ID)
	return &result, nil
}

func (uc *authUseCase) findByEmail(ctx context.Context, email string) (*domain.PublicUser, error) {
	var found *domain.PublicUser
	err := uc.store.View(ctx, func(_ context.Context, db *domain.Database) error {
		if u := db.FindUserByEmail(email); u != nil {
			p := u.Public()
			found = &p
		}
		return nil
	})
	return found, err
}

// newHandle генерирует публичный идентификатор анонимного пользователя
func newHandle() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "anon-" + id[:8]
}
