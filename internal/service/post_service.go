package service

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/policy"
	"inkwell/internal/repository"
)

const (
	maxTitleLen   = 200
	maxContentLen = 50000
)

// PostService drives the post lifecycle: Active, SoftDeleted, Purged.
type PostService struct {
	postRepo repository.PostRepository
	media    media.Store
}

type CreatePostInput struct {
	Actor    policy.Identity
	Title    string
	Content  string
	Tags     []string
	Image    string
	ImageRef string
}

type ListPostsInput struct {
	Search        string
	Tag           string
	Page          int
	Limit         int
	CurrentUserID uint
}

type UpdatePostInput struct {
	Actor    policy.Identity
	PostID   uint
	Title    *string
	Content  *string
	Tags     *[]string
	Image    string
	ImageRef string
}

// Pagination is the listing envelope metadata. Pages are 1-indexed.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalRows  int64 `json:"totalRows"`
	TotalPages int   `json:"totalPages"`
}

// PostPage is a page of posts plus its pagination metadata.
type PostPage struct {
	Posts      []*models.Post `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Likes   int64 `json:"likes"`
	IsLiked bool  `json:"isLiked"`
}

func NewPostService(postRepo repository.PostRepository, mediaStore media.Store) *PostService {
	return &PostService{postRepo: postRepo, media: mediaStore}
}

// NormalizeTags flattens tag input into clean values: each element may itself
// be a comma-delimited list; entries are trimmed and empties dropped. A single
// comma-joined string and a pre-split list normalize identically.
func NormalizeTags(raw []string) []string {
	var tags []string
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if !policy.CanCreatePost(in.Actor) {
		if in.Actor.Role == models.RoleGuest {
			return nil, models.NewForbiddenError(policy.GuestCannotPostMessage)
		}
		return nil, models.NewForbiddenError("You are not allowed to publish posts")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}

	post := &models.Post{
		Title:    title,
		Content:  in.Content,
		Image:    in.Image,
		ImageRef: in.ImageRef,
		AuthorID: in.Actor.ID,
		Tags:     NormalizeTags(in.Tags),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.Actor.ID, false)
}

// ListPosts returns live posts newest-first. List items carry no content body.
// The unfiltered anonymous first page is served cache-aside.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*PostPage, error) {
	page, limit := normalizePage(in.Page, in.Limit)

	filter := repository.PostFilter{
		Scope:         repository.ScopeActive,
		Search:        in.Search,
		Tag:           in.Tag,
		Limit:         limit,
		Offset:        (page - 1) * limit,
		CurrentUserID: in.CurrentUserID,
	}

	var (
		posts []*models.Post
		total int64
		err   error
	)

	cacheable := in.Search == "" && in.Tag == "" && in.CurrentUserID == 0 && page == 1 && limit == 10
	if cacheable {
		var cached struct {
			Posts []*models.Post `json:"posts"`
			Total int64          `json:"total"`
		}
		err = cache.Aside(ctx, cache.PostsListKey(), &cached, cache.PostsListTTL, func() error {
			cached.Posts, cached.Total, err = s.postRepo.List(ctx, filter)
			return err
		})
		posts, total = cached.Posts, cached.Total
	} else {
		posts, total, err = s.postRepo.List(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		p.Content = ""
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return &PostPage{
		Posts:      posts,
		Pagination: paginate(page, limit, total),
	}, nil
}

func paginate(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalRows:  total,
		TotalPages: totalPages,
	}
}

// GetPost returns the post detail and counts the view. The increment is a
// single UPDATE so concurrent readers never lose a view; the returned Views
// is the post-increment value.
func (s *PostService) GetPost(ctx context.Context, postID, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, currentUserID, false)
	if err != nil {
		return nil, err
	}
	views, err := s.postRepo.IncrementViews(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Views = views
	return post, nil
}

// UpdatePost applies a patch: nil fields stay untouched. A replaced image has
// its old media ref released best-effort.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.Actor.ID, false)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyPost(in.Actor, post) {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title cannot be empty")
		}
		if len(title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, models.NewValidationError("Content cannot be empty")
		}
		if len(*in.Content) > maxContentLen {
			return nil, models.NewValidationError("Content too long (max 50000 characters)")
		}
		post.Content = *in.Content
	}
	if in.Tags != nil {
		post.Tags = NormalizeTags(*in.Tags)
	}

	oldRef := ""
	if in.Image != "" {
		if post.ImageRef != "" && post.ImageRef != in.ImageRef {
			oldRef = post.ImageRef
		}
		post.Image = in.Image
		post.ImageRef = in.ImageRef
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	if oldRef != "" {
		s.releaseMedia(ctx, in.PostID, oldRef)
	}
	return post, nil
}

// releaseMedia drops an orphaned media asset. Failures are logged and
// swallowed; the post mutation that orphaned the asset has already committed.
func (s *PostService) releaseMedia(ctx context.Context, postID uint, ref string) {
	if s.media == nil || ref == "" {
		return
	}
	if err := s.media.Release(ctx, ref); err != nil {
		middleware.Logger.WarnContext(ctx, "media release failed",
			slog.Any("post_id", postID),
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PostService) SoftDeletePost(ctx context.Context, actor policy.Identity, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0, false)
	if err != nil {
		return err
	}
	if !policy.CanModifyPost(actor, post) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.SoftDelete(ctx, postID, actor.ID)
}

func (s *PostService) RestorePost(ctx context.Context, actor policy.Identity, postID uint) (*models.Post, error) {
	if !policy.IsAdmin(actor) {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if err := s.postRepo.Restore(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, actor.ID, false)
}

// ForceDeletePost purges the row and its attachments. It accepts posts in any
// state, trashed or live.
func (s *PostService) ForceDeletePost(ctx context.Context, actor policy.Identity, postID uint) error {
	if !policy.IsAdmin(actor) {
		return models.NewForbiddenError("Admin access required")
	}
	post, err := s.postRepo.GetByID(ctx, postID, 0, true)
	if err != nil {
		return err
	}
	if post.ImageRef != "" {
		s.releaseMedia(ctx, postID, post.ImageRef)
	}
	return s.postRepo.ForceDelete(ctx, postID)
}

// ToggleLike flips the actor's membership in the post's like set and returns
// the resulting count and state.
func (s *PostService) ToggleLike(ctx context.Context, actor policy.Identity, postID uint) (*LikeResult, error) {
	if !policy.CanLikePost(actor) {
		return nil, models.NewForbiddenError("You are not allowed to like posts")
	}
	if _, err := s.postRepo.GetByID(ctx, postID, 0, false); err != nil {
		return nil, err
	}

	liked, err := s.postRepo.IsLiked(ctx, actor.ID, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		if _, err := s.postRepo.Unlike(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.postRepo.Like(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
	}

	likes, err := s.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Likes: likes, IsLiked: !liked}, nil
}

// AdminListPosts lists with an explicit scope: all, mine or trash.
func (s *PostService) AdminListPosts(ctx context.Context, actor policy.Identity, scope string, page, limit int) (*PostPage, error) {
	if !policy.IsAdmin(actor) {
		return nil, models.NewForbiddenError("Admin access required")
	}

	var repoScope repository.PostScope
	switch scope {
	case "", "all":
		repoScope = repository.ScopeAll
	case "mine":
		repoScope = repository.ScopeMine
	case "trash":
		repoScope = repository.ScopeTrash
	default:
		return nil, models.NewValidationError("Scope must be one of all, mine, trash")
	}

	page, limit = normalizePage(page, limit)
	posts, total, err := s.postRepo.List(ctx, repository.PostFilter{
		Scope:         repoScope,
		AuthorID:      actor.ID,
		Limit:         limit,
		Offset:        (page - 1) * limit,
		CurrentUserID: actor.ID,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &PostPage{Posts: posts, Pagination: paginate(page, limit, total)}, nil
}
