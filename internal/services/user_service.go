package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Registration is the input of Register.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserService manages identities and credentials.
type UserService struct {
	users    repositories.UserRepository
	validate *validator.Validate
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Register creates a user with a normalised email and a hashed password.
func (s *UserService) Register(ctx context.Context, reg Registration) (models.User, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.Name = strings.TrimSpace(reg.Name)
	if err := s.validate.Struct(reg); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if _, err := s.users.GetByEmail(ctx, reg.Email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, models.User{Name: reg.Name, Email: reg.Email, PasswordHash: hash})
	if errors.Is(err, repositories.ErrDuplicate) {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user for a matching email and password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateName(ctx context.Context, id uuid.UUID, name string) (models.User, error) {
	name = strings.TrimSpace(name)
	if err := s.validate.Var(name, "required,max=100"); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.users.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("update name: %w", err)
	}
	return s.GetByID(ctx, id)
}

// UpdatePassword replaces the password after checking the current one.
func (s *UserService) UpdatePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if err := s.validate.Var(next, "required,min=8,max=72"); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	ok, err := auth.ComparePassword(current, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
