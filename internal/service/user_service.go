package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type adminUserRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

type faceEnroller interface {
	Enroll(ctx context.Context, studentNumber, imageURL string) error
}

// UserService handles admin account management and biometric enrollment.
// Deactivating or deleting an account revokes its refresh tokens so the
// holder cannot mint new access tokens.
type UserService struct {
	repo      adminUserRepository
	enroller  faceEnroller
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo adminUserRepository, enroller faceEnroller, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, enroller: enroller, validator: validate, logger: logger}
}

// CreateUserRequest is the admin payload for a new account.
type CreateUserRequest struct {
	Email         string          `json:"email" validate:"required,email"`
	Password      string          `json:"password" validate:"required,min=8"`
	FullName      string          `json:"full_name" validate:"required"`
	Role          models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT"`
	StudentNumber string          `json:"student_number"`
}

// UpdateUserRequest patches an account. Email and role are immutable; omitted
// fields keep their current values.
type UpdateUserRequest struct {
	FullName      *string `json:"full_name,omitempty"`
	Password      *string `json:"password,omitempty" validate:"omitempty,min=8"`
	StudentNumber *string `json:"student_number,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

// EnrollFaceRequest carries the reference photo for a student.
type EnrollFaceRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// List returns accounts matching the filter with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if req.Role == models.RoleStudent && req.StudentNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student accounts require a student number")
	}
	if req.Role != models.RoleStudent && req.StudentNumber != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only student accounts carry a student number")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.StudentNumber != "" {
		user.StudentNumber = &req.StudentNumber
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to create user")
	}
	return user, nil
}

// Update patches an account. Deactivation revokes the account's refresh
// tokens.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load user")
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}
	if req.StudentNumber != nil {
		if user.Role != models.RoleStudent {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only student accounts carry a student number")
		}
		user.StudentNumber = req.StudentNumber
	}
	deactivated := false
	if req.Active != nil {
		deactivated = user.Active && !*req.Active
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to update user")
	}

	if deactivated {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// Delete removes an account after revoking its refresh tokens.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", id), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to delete user")
	}
	return nil
}

// EnrollFace registers a student's reference photo with the recognition
// collaborator.
func (s *UserService) EnrollFace(ctx context.Context, id string, req EnrollFaceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load user")
	}
	if user.Role != models.RoleStudent || user.StudentNumber == nil {
		return appErrors.Clone(appErrors.ErrValidation, "face enrollment applies to student accounts only")
	}

	if err := s.enroller.Enroll(ctx, *user.StudentNumber, req.ImageURL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "face enrollment failed")
	}
	return nil
}
