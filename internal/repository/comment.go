// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error)
	UpdateWithHistory(ctx context.Context, comment *models.Comment, previous *models.CommentEdit) error
	SoftDelete(ctx context.Context, id, byUserID uint) error
	SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error
	History(ctx context.Context, commentID uint) ([]models.CommentEdit, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostCommentsKey(comment.PostID))
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("DeletedBy").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment")
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns a post's comments newest first. With includeDeleted set
// the soft-deleted rows appear too, with their deleter resolved.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error) {
	var comments []*models.Comment
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	} else {
		q = q.Preload("DeletedBy")
	}
	err := q.Order("created_at DESC").Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// UpdateWithHistory saves the edited comment and records the superseded
// revision in the same transaction so the history never drifts from the body.
func (r *commentRepository) UpdateWithHistory(ctx context.Context, comment *models.Comment, previous *models.CommentEdit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if previous != nil {
			if err := tx.Create(previous).Error; err != nil {
				return err
			}
		}
		return tx.Save(comment).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostCommentsKey(comment.PostID))
	return nil
}

func (r *commentRepository) SoftDelete(ctx context.Context, id, byUserID uint) error {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment")
		}
		return models.NewInternalError(err)
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"is_deleted":    true,
			"deleted_at":    &now,
			"deleted_by_id": byUserID,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment")
	}
	cache.Invalidate(ctx, cache.PostCommentsKey(comment.PostID))
	return nil
}

func (r *commentRepository) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("user_id = ? AND is_deleted = ?", authorID, false).
		Updates(map[string]any{
			"is_deleted":    true,
			"deleted_at":    &now,
			"deleted_by_id": byUserID,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) History(ctx context.Context, commentID uint) ([]models.CommentEdit, error) {
	var edits []models.CommentEdit
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("edited_at DESC").
		Find(&edits).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return edits, nil
}
