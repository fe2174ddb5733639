package server

import (
	"errors"
	"mime/multipart"
	"strings"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postForm is the write payload for posts. It arrives either as JSON or as a
// multipart form with an attached image file.
type postForm struct {
	Title   string   `json:"title" form:"title"`
	Content string   `json:"content" form:"content"`
	Tags    []string `json:"tags" form:"tags"`
}

// parsePostForm decodes the payload and, for multipart requests, uploads the
// attached image to the media store before the post is written.
func (s *Server) parsePostForm(c *fiber.Ctx) (postForm, media.Attachment, error) {
	var req postForm
	if err := c.BodyParser(&req); err != nil {
		return req, media.Attachment{}, models.NewValidationError("Invalid request body")
	}

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return req, media.Attachment{}, nil
	}

	file, err := c.FormFile("image")
	if err != nil {
		// No image attached is fine.
		return req, media.Attachment{}, nil
	}
	attachment, err := s.uploadImage(c, file)
	return req, attachment, err
}

func (s *Server) uploadImage(c *fiber.Ctx, file *multipart.FileHeader) (media.Attachment, error) {
	if s.mediaStore == nil {
		return media.Attachment{}, models.NewValidationError("Image upload is not configured")
	}
	src, err := file.Open()
	if err != nil {
		return media.Attachment{}, models.NewValidationError("Unable to read the uploaded image")
	}
	defer src.Close()

	attachment, err := s.mediaStore.Upload(c.UserContext(), src, file.Filename)
	if err != nil {
		return media.Attachment{}, models.NewInternalError(err)
	}
	return attachment, nil
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Live posts newest-first with optional title search and tag filter
// @Tags posts
// @Produce json
// @Param search query string false "Title substring, case-insensitive"
// @Param tag query string false "Exact tag match"
// @Param page query int false "Page number (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} object{success=bool,data=[]models.Post,pagination=service.Pagination}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, limit := parsePagination(c)

	var currentUserID uint
	if id, ok := s.optionalIdentity(c); ok {
		currentUserID = id.ID
	}

	pageResult, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Search:        c.Query("search"),
		Tag:           c.Query("tag"),
		Page:          page,
		Limit:         limit,
		CurrentUserID: currentUserID,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"data":       pageResult.Posts,
		"pagination": pageResult.Pagination,
	})
}

// GetPost handles GET /api/posts/:id
// @Summary Get post detail
// @Description Full post with content; every read counts a view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	var currentUserID uint
	if id, ok := s.optionalIdentity(c); ok {
		currentUserID = id.ID
	}

	post, err := s.postService.GetPost(c.UserContext(), postID, currentUserID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Publish a post; guests are rejected. Accepts JSON or multipart with an image file
// @Tags posts
// @Accept json
// @Accept mpfd
// @Produce json
// @Param request body postForm true "Post payload"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, attachment, err := s.parsePostForm(c)
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Actor:    identity(c),
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Image:    attachment.URL,
		ImageRef: attachment.Ref,
	})
	if err != nil {
		// The upload already happened; release the asset so a rejected post
		// does not leak it.
		if attachment.Ref != "" && s.mediaStore != nil {
			_ = s.mediaStore.Release(c.UserContext(), attachment.Ref)
		}
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Description Patch title, content, tags or image; absent fields stay untouched
// @Tags posts
// @Accept json
// @Accept mpfd
// @Produce json
// @Param id path int true "Post ID"
// @Param request body postForm true "Post patch"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	var req struct {
		Title   *string   `json:"title" form:"title"`
		Content *string   `json:"content" form:"content"`
		Tags    *[]string `json:"tags" form:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	var attachment media.Attachment
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if file, ferr := c.FormFile("image"); ferr == nil {
			attachment, err = s.uploadImage(c, file)
			if err != nil {
				return s.respondError(c, err)
			}
		}
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		Actor:    identity(c),
		PostID:   postID,
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Image:    attachment.URL,
		ImageRef: attachment.Ref,
	})
	if err != nil {
		if attachment.Ref != "" && s.mediaStore != nil {
			_ = s.mediaStore.Release(c.UserContext(), attachment.Ref)
		}
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Soft-delete post
// @Description Move a post to trash; admins can restore it later
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	if err := s.postService.SoftDeletePost(c.UserContext(), identity(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post moved to trash",
	})
}

// LikePost handles PUT /api/posts/:id/like
// @Summary Toggle like
// @Description Flip the caller's like on a post and return the new count
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [put]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	result, err := s.postService.ToggleLike(c.UserContext(), identity(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// AdminPosts handles GET /api/posts/admin
// @Summary List posts for admins
// @Description Scoped listing: all, mine or trash, deleted rows included
// @Tags posts
// @Produce json
// @Param scope query string false "One of all, mine, trash" default(all)
// @Param page query int false "Page number (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} object{success=bool,data=[]models.Post,pagination=service.Pagination}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/admin [get]
func (s *Server) AdminPosts(c *fiber.Ctx) error {
	page, limit := parsePagination(c)
	pageResult, err := s.postService.AdminListPosts(c.UserContext(), identity(c), c.Query("scope"), page, limit)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"data":       pageResult.Posts,
		"pagination": pageResult.Pagination,
	})
}

// RestorePost handles PUT /api/posts/:id/restore
// @Summary Restore post
// @Description Bring a trashed post back to the live set
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/restore [put]
func (s *Server) RestorePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	post, err := s.postService.RestorePost(c.UserContext(), identity(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// ForceDeletePost handles DELETE /api/posts/:id/force
// @Summary Purge post
// @Description Permanently delete a post with its likes, comments and media
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/force [delete]
func (s *Server) ForceDeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	if err := s.postService.ForceDeletePost(c.UserContext(), identity(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post permanently deleted",
	})
}
