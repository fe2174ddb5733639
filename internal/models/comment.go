package models

import (
	"time"
)

// Comment represents a comment on a post in the Inkwell application.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	UserID   uint   `gorm:"not null" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`
	Content  string `gorm:"type:text;not null" json:"content"`
	IsEdited bool   `gorm:"not null;default:false" json:"is_edited"`
	// EditHistory holds the superseded revisions, one row per content change.
	EditHistory []CommentEdit `gorm:"foreignKey:CommentID" json:"edit_history,omitempty"`
	IsDeleted   bool          `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
	DeletedByID *uint         `json:"deleted_by,omitempty"`
	DeletedBy   *User         `gorm:"foreignKey:DeletedByID" json:"deleted_by_user,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CommentEdit is a single entry in a comment's edit history. Content is the
// text the comment held *before* the edit that created this entry.
type CommentEdit struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	CommentID  uint      `gorm:"not null;index" json:"-"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	EditedAt   time.Time `gorm:"not null" json:"edited_at"`
	EditedByID uint      `gorm:"not null" json:"edited_by"`
}
