package service

import (
	"context"
	"errors"
	"strings"

	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=40"`
}

type UserService struct {
	repo           domain.Repository
	validate       *validator.Validate
	bootstrapAdmin string
	logger         *zerolog.Logger
}

// NewUserService builds the account service. The first registered user and
// any user named bootstrapAdmin are created as admins.
func NewUserService(repo domain.Repository, bootstrapAdmin string, logger *zerolog.Logger) *UserService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UserService{
		repo:           repo,
		validate:       newValidator(),
		bootstrapAdmin: bootstrapAdmin,
		logger:         logger,
	}
}

func (s *UserService) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}

	// The store promotes the very first account to admin.
	role := models.RoleUser
	if s.bootstrapAdmin != "" && req.Username == s.bootstrapAdmin {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.RegisterUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, Conflict("username or email is already taken")
		}
		return nil, Internal("failed to create user", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("role", user.Role).Msg("user registered")
	return user, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, Unauthorized("invalid username or password")
		}
		return nil, Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, Unauthorized("invalid username or password")
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user not found", "failed to load user")
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return NotFound("user not found")
		case errors.Is(err, database.ErrUserHasBookings):
			return Conflict("user has bookings")
		}
		return Internal("failed to delete user", err)
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}
