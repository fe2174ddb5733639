// Package policy holds the pure authorization decisions for the application.
// Every function is total: it inspects an Identity and a resource and returns
// a bool, never an error. Callers translate false into a Forbidden response.
package policy

import (
	"inkwell/internal/models"
)

// Identity is the authenticated caller derived from a validated token.
type Identity struct {
	ID   uint
	Role models.Role
}

// GuestCannotPostMessage is returned with the 403 when a guest account tries
// to publish. It is deliberately more specific than a generic Forbidden.
const GuestCannotPostMessage = "Guest accounts cannot publish posts. Contact an admin to upgrade your account."

// CanCreatePost allows publishing for full users and admins, never guests.
func CanCreatePost(id Identity) bool {
	return id.Role == models.RoleUser || id.Role == models.RoleAdmin
}

// CanModifyPost allows the post owner or an admin to edit or soft-delete.
func CanModifyPost(id Identity, post *models.Post) bool {
	return post.AuthorID == id.ID || id.Role == models.RoleAdmin
}

// CanDeleteComment allows the comment owner, an admin, or the owner of the
// post the comment lives on. Post owners moderate their own threads even for
// comments they did not write.
func CanDeleteComment(id Identity, comment *models.Comment, post *models.Post) bool {
	return comment.UserID == id.ID || id.Role == models.RoleAdmin || post.AuthorID == id.ID
}

// CanEditComment allows only the comment owner. Stricter than delete: there
// is no moderator override for rewriting someone else's words.
func CanEditComment(id Identity, comment *models.Comment) bool {
	return comment.UserID == id.ID
}

// CanLikePost allows any authenticated identity, guests included.
func CanLikePost(id Identity) bool {
	return id.Role.Valid()
}

// IsAdmin reports whether the identity carries the admin role.
func IsAdmin(id Identity) bool {
	return id.Role == models.RoleAdmin
}
