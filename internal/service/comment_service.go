package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/policy"
	"inkwell/internal/repository"
)

const maxCommentLen = 2000

// CommentService manages comments, their soft deletion and edit history.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type AddCommentInput struct {
	Actor   policy.Identity
	PostID  uint
	Content string
}

type UpdateCommentInput struct {
	Actor     policy.Identity
	CommentID uint
	Content   string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// AddComment attaches a comment to a live post. Every authenticated role may
// comment, guests included.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0, false); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  in.PostID,
		UserID:  in.Actor.ID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns the live comments of a live post, newest first. The
// list is served cache-aside; comment writes invalidate the key.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0, false); err != nil {
		return nil, err
	}

	var comments []*models.Comment
	err := cache.Aside(ctx, cache.PostCommentsKey(postID), &comments, cache.CommentsTTL, func() error {
		var err error
		comments, err = s.commentRepo.ListByPost(ctx, postID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ListForAdmin is the moderation view of one post's thread: every comment on
// that post, soft-deleted included, with the deleter resolved. The post itself
// may be trashed; moderation still works on it.
func (s *CommentService) ListForAdmin(ctx context.Context, actor policy.Identity, postID uint) ([]*models.Comment, error) {
	if !policy.IsAdmin(actor) {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if _, err := s.postRepo.GetByID(ctx, postID, 0, true); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID, true)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// UpdateComment rewrites the body. Submitting identical content is a no-op:
// no history entry, no edited flag. Otherwise the superseded content is
// recorded before the overwrite.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, models.NewNotFoundError("Comment")
	}
	if !policy.CanEditComment(in.Actor, comment) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}
	if content == comment.Content {
		return comment, nil
	}

	previous := &models.CommentEdit{
		CommentID:  comment.ID,
		Content:    comment.Content,
		EditedAt:   time.Now(),
		EditedByID: in.Actor.ID,
	}
	comment.Content = content
	comment.IsEdited = true

	if err := s.commentRepo.UpdateWithHistory(ctx, comment, previous); err != nil {
		return nil, err
	}
	return comment, nil
}

// RemoveComment soft-deletes. Allowed for the comment owner, an admin, or the
// owner of the post the comment lives on.
func (s *CommentService) RemoveComment(ctx context.Context, actor policy.Identity, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.IsDeleted {
		return models.NewNotFoundError("Comment")
	}

	post, err := s.postRepo.GetByID(ctx, comment.PostID, 0, true)
	if err != nil {
		return err
	}
	if !policy.CanDeleteComment(actor, comment, post) {
		return models.NewForbiddenError("You are not allowed to delete this comment")
	}
	return s.commentRepo.SoftDelete(ctx, commentID, actor.ID)
}

// History returns the superseded revisions of a live comment, newest edit
// first. Deleted comments hide their history.
func (s *CommentService) History(ctx context.Context, commentID uint) ([]models.CommentEdit, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, models.NewNotFoundError("Comment")
	}
	edits, err := s.commentRepo.History(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if edits == nil {
		edits = []models.CommentEdit{}
	}
	return edits, nil
}
