package models

import (
	"time"
)

// Post represents a blog post in the Inkwell application.
//
// Soft deletion is modeled explicitly (IsDeleted/DeletedAt/DeletedByID) rather
// than through gorm.DeletedAt so that trash listings, restore and the
// deleted-by audit trail stay first-class queries.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content,omitempty"`
	// Image is the public URL on the media host; ImageRef is the host's opaque
	// handle kept so the blob can be released on replace or force delete.
	Image    string   `json:"image"`
	ImageRef string   `json:"-"`
	AuthorID uint     `gorm:"not null;index" json:"author_id"`
	Author   User     `gorm:"foreignKey:AuthorID" json:"author"`
	Tags     []string `gorm:"serializer:json;type:jsonb" json:"tags"`
	Views    uint64   `gorm:"not null;default:0" json:"views"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked       bool       `gorm:"->" json:"liked"`
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedByID *uint      `json:"deleted_by,omitempty"`
	DeletedBy   *User      `gorm:"foreignKey:DeletedByID" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Like is one user's reaction to one post. The composite primary key gives
// set semantics: a user can never appear twice in a post's like set.
type Like struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
