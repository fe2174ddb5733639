package server

import (
	"errors"
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// identity returns the authenticated identity placed in locals by
// AuthRequired. Handlers behind that middleware may rely on it being present.
func identity(c *fiber.Ctx) policy.Identity {
	id, _ := c.Locals("identity").(policy.Identity)
	return id
}

// errResponseWritten signals that the helper already wrote the error response
// and the handler should simply return nil.
var errResponseWritten = errors.New("response written")

// respondError is the single boundary between AppError codes and HTTP
// statuses. Everything that is not an AppError collapses into a generic 500
// so internal detail never leaks to clients.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case models.CodeValidation:
		status = fiber.StatusBadRequest
	case models.CodeUnauthenticated:
		status = fiber.StatusUnauthorized
	case models.CodeForbidden:
		status = fiber.StatusForbidden
	case models.CodeNotFound:
		status = fiber.StatusNotFound
	case models.CodeConflict:
		status = fiber.StatusConflict
	}

	message := appErr.Message
	if status == fiber.StatusInternalServerError {
		message = "Internal server error"
	}
	return c.Status(status).JSON(models.ErrorResponse{Message: message})
}

// parseID parses a positive integer route parameter. On failure it writes the
// 400 response itself and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Message: "Invalid " + humanizeParam(param),
		})
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a camelCase route parameter into readable words, so
// "postId" becomes "post id" in error messages.
func humanizeParam(param string) string {
	var b strings.Builder
	for i, r := range param {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parsePagination reads the 1-indexed page and limit query parameters.
// Out-of-range values are clamped downstream by the services.
func parsePagination(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	limit = c.QueryInt("limit", 10)
	return page, limit
}
