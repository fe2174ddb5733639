package server

import (
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register account
// @Description Register a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,full_name=string,avatar=string} true "Registration request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Avatar   string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	s.setAuthCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate by username or email and set the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{identifier=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
		// Username is accepted as an alias for identifier.
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.Identifier == "" {
		req.Identifier = req.Username
	}

	user, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	s.setAuthCookie(c, token)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.clearAuthCookie(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out",
	})
}

// Profile handles GET /api/auth/profile
// @Summary Current user profile
// @Description Return the account behind the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/profile [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	user, err := s.authService.Profile(c.UserContext(), identity(c).ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Change password
// @Description Replace the current password after verifying the old one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{current_password=string,new_password=string} true "Password change request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	err := s.authService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		UserID:          identity(c).ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// ForgetPassword handles POST /api/auth/forget-password
// @Summary Reset forgotten password
// @Description Issue a temporary password when username and email match
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string} true "Account recovery request"
// @Success 200 {object} object{temp_password=string,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/forget-password [post]
func (s *Server) ForgetPassword(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	tempPassword, err := s.authService.ForgetPassword(c.UserContext(), service.ForgetPasswordInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	// The plaintext is shown exactly once; only its hash is stored.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"temp_password": tempPassword,
		"message":       "Use the temporary password to log in, then change it",
	})
}

// ListUsers handles GET /api/auth/users
// @Summary List users
// @Description Paginated account listing for admins
// @Tags auth
// @Produce json
// @Param page query int false "Page number (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} service.UserPage
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page, limit := parsePagination(c)
	pageResult, err := s.authService.ListUsers(c.UserContext(), page, limit)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(pageResult)
}

// UpdateUserRole handles PUT /api/auth/users/:id/role
// @Summary Change user role
// @Description Assign one of guest, user, admin to an account
// @Tags auth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/users/{id}/role [put]
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.UpdateRole(c.UserContext(), targetID, models.Role(req.Role))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// DeleteUser handles DELETE /api/auth/users/:id
// @Summary Delete user
// @Description Remove an account; its posts and comments are soft-deleted first
// @Tags auth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	if err := s.authService.DeleteUser(c.UserContext(), identity(c).ID, targetID); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User deleted",
	})
}
