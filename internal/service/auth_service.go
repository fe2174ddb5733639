// Package service contains the business logic of the application.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles accounts: registration, login, password flows and the
// admin user-management operations.
type AuthService struct {
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Avatar   string
}

type LoginInput struct {
	Identifier string
	Password   string
}

type ChangePasswordInput struct {
	UserID          uint
	CurrentPassword string
	NewPassword     string
}

type ForgetPasswordInput struct {
	Username string
	Email    string
}

func NewAuthService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, models.NewValidationError("Full name is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatarURL
	}

	user := &models.User{
		Username: in.Username,
		Email:    email,
		Password: string(hashed),
		FullName: strings.TrimSpace(in.FullName),
		Avatar:   avatar,
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login resolves the identifier against usernames first, then emails.
// Unknown accounts and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	if in.Identifier == "" || in.Password == "" {
		return nil, models.NewValidationError("Identifier and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(in.Identifier))
		if err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return models.NewUnauthenticatedError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(in.NewPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hashed)
	return s.userRepo.Update(ctx, user)
}

// ForgetPassword resets the account to a random temporary password and returns
// the plaintext exactly once. Both username and email must match the account.
func (s *AuthService) ForgetPassword(ctx context.Context, in ForgetPasswordInput) (string, error) {
	if in.Username == "" || in.Email == "" {
		return "", models.NewValidationError("Username and email are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return "", err
	}
	if user == nil || user.Email != strings.ToLower(strings.TrimSpace(in.Email)) {
		return "", models.NewNotFoundError("User")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", err
	}
	return tempPassword, nil
}

const tempPasswordLength = 20

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateTempPassword draws tempPasswordLength base-36 characters from
// crypto/rand.
func generateTempPassword() (string, error) {
	var b strings.Builder
	b.Grow(tempPasswordLength)
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < tempPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("temp password generation failed: %w", err)
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String(), nil
}

// UserPage is a page of users plus its pagination metadata.
type UserPage struct {
	Users      []models.User `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

func (s *AuthService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.userRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{Users: users, Pagination: paginate(page, limit, total)}, nil
}

func (s *AuthService) UpdateRole(ctx context.Context, targetID uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("Role must be one of guest, user, admin")
	}
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account. Authored posts and comments are soft-deleted
// first with the acting admin recorded as deleter, so the content stays
// recoverable after the account is gone.
func (s *AuthService) DeleteUser(ctx context.Context, actingAdminID, targetID uint) error {
	if actingAdminID == targetID {
		return models.NewValidationError("Admins cannot delete their own account")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	if err := s.postRepo.SoftDeleteByAuthor(ctx, targetID, actingAdminID); err != nil {
		return err
	}
	if err := s.commentRepo.SoftDeleteByAuthor(ctx, targetID, actingAdminID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, targetID)
}

// normalizePage clamps pagination input: pages are 1-indexed, limit defaults
// to 10 and is capped at 100.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
