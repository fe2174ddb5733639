// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// PostScope selects which slice of the posts table a listing sees.
type PostScope string

const (
	// ScopeActive is the public view: live posts only.
	ScopeActive PostScope = "active"
	// ScopeMine is the author dashboard: the author's live posts.
	ScopeMine PostScope = "mine"
	// ScopeTrash lists soft-deleted posts awaiting restore or purge.
	ScopeTrash PostScope = "trash"
	// ScopeAll is the admin view across live and trashed posts.
	ScopeAll PostScope = "all"
)

// PostFilter narrows a post listing.
type PostFilter struct {
	Scope         PostScope
	AuthorID      uint // required for ScopeMine
	Search        string
	Tag           string
	Limit         int
	Offset        int
	CurrentUserID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint, includeDeleted bool) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	SoftDelete(ctx context.Context, id, byUserID uint) error
	Restore(ctx context.Context, id uint) error
	ForceDelete(ctx context.Context, id uint) error
	SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error
	IncrementViews(ctx context.Context, id uint) (uint64, error)
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) (bool, error)
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
	CountLikes(ctx context.Context, postID uint) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.NewDatabaseMetrics(r.db).TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint, includeDeleted bool) (*models.Post, error) {
	var post models.Post
	q := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("Author").
		Preload("DeletedBy")
	if !includeDeleted {
		q = q.Where("posts.is_deleted = ?", false)
	}
	if err := q.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{})

	switch filter.Scope {
	case ScopeMine:
		base = base.Where("posts.author_id = ? AND posts.is_deleted = ?", filter.AuthorID, false)
	case ScopeTrash:
		base = base.Where("posts.is_deleted = ?", true)
	case ScopeAll:
		// no deletion filter
	default:
		base = base.Where("posts.is_deleted = ?", false)
	}

	if filter.Search != "" {
		base = base.Where("posts.title ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Tag != "" {
		// jsonb containment against the serialized tags array
		needle, err := json.Marshal([]string{filter.Tag})
		if err != nil {
			return nil, 0, models.NewInternalError(err)
		}
		base = base.Where("posts.tags @> ?", string(needle))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.applyPostDetails(base, filter.CurrentUserID).
		Preload("Author").
		Preload("DeletedBy").
		Order("posts.created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// applyPostDetails adds subqueries to fetch the like count and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked", currentUserID)
	}
	return db.Select(selectQuery + ", false as liked")
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id, byUserID uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).
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
		return models.NewNotFoundError("Post")
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND is_deleted = ?", id, true).
		Updates(map[string]any{
			"is_deleted":    false,
			"deleted_at":    nil,
			"deleted_by_id": nil,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// ForceDelete removes the post row and everything hanging off it.
func (r *postRepository) ForceDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM comment_edits WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)", id,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("author_id = ? AND is_deleted = ?", authorID, false).
		Updates(map[string]any{
			"is_deleted":    true,
			"deleted_at":    &now,
			"deleted_by_id": byUserID,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

// IncrementViews bumps the view counter atomically and returns the new value.
// A single UPDATE keeps concurrent reads from losing increments.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) (uint64, error) {
	var views uint64
	err := r.db.WithContext(ctx).Raw(
		"UPDATE posts SET views = views + 1 WHERE id = ? RETURNING views", id,
	).Scan(&views).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	observability.PostViews.Inc()
	cache.Invalidate(ctx, cache.PostKey(id))
	return views, nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Like inserts the reaction and reports whether a row was actually added.
// ON CONFLICT DO NOTHING makes concurrent duplicate likes collapse to one.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (user_id, post_id, created_at)
		 VALUES (?, ?, NOW())
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected > 0 {
		cache.Invalidate(ctx, cache.PostKey(postID))
	}
	return result.RowsAffected > 0, nil
}

// Unlike removes the reaction and reports whether a row was actually removed.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected > 0 {
		cache.Invalidate(ctx, cache.PostKey(postID))
	}
	return result.RowsAffected > 0, nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
