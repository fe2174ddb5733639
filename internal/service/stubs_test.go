package service

import (
	"context"
	"io"
	"testing"

	"inkwell/internal/media"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, int, int) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, _ uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, int64, error) { return nil, 0, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn             func(context.Context, *models.Post) error
	getByIDFn            func(context.Context, uint, uint, bool) (*models.Post, error)
	listFn               func(context.Context, repository.PostFilter) ([]*models.Post, int64, error)
	updateFn             func(context.Context, *models.Post) error
	softDeleteFn         func(context.Context, uint, uint) error
	restoreFn            func(context.Context, uint) error
	forceDeleteFn        func(context.Context, uint) error
	softDeleteByAuthorFn func(context.Context, uint, uint) error
	incrementViewsFn     func(context.Context, uint) (uint64, error)
	isLikedFn            func(context.Context, uint, uint) (bool, error)
	likeFn               func(context.Context, uint, uint) (bool, error)
	unlikeFn             func(context.Context, uint, uint) (bool, error)
	countLikesFn         func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint, includeDeleted bool) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID, includeDeleted)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, int64, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) SoftDelete(ctx context.Context, id, byUserID uint) error {
	return s.softDeleteFn(ctx, id, byUserID)
}
func (s *postRepoStub) Restore(ctx context.Context, id uint) error {
	return s.restoreFn(ctx, id)
}
func (s *postRepoStub) ForceDelete(ctx context.Context, id uint) error {
	return s.forceDeleteFn(ctx, id)
}
func (s *postRepoStub) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	return s.softDeleteByAuthorFn(ctx, authorID, byUserID)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) (uint64, error) {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) CountLikes(ctx context.Context, postID uint) (int64, error) {
	return s.countLikesFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint, _ bool) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		listFn: func(_ context.Context, _ repository.PostFilter) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		updateFn:             func(_ context.Context, _ *models.Post) error { return nil },
		softDeleteFn:         func(_ context.Context, _, _ uint) error { return nil },
		restoreFn:            func(_ context.Context, _ uint) error { return nil },
		forceDeleteFn:        func(_ context.Context, _ uint) error { return nil },
		softDeleteByAuthorFn: func(_ context.Context, _, _ uint) error { return nil },
		incrementViewsFn:     func(_ context.Context, _ uint) (uint64, error) { return 1, nil },
		isLikedFn:            func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likeFn:               func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unlikeFn:             func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		countLikesFn:         func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn             func(context.Context, *models.Comment) error
	getByIDFn            func(context.Context, uint) (*models.Comment, error)
	listByPostFn         func(context.Context, uint, bool) ([]*models.Comment, error)
	updateWithHistoryFn  func(context.Context, *models.Comment, *models.CommentEdit) error
	softDeleteFn         func(context.Context, uint, uint) error
	softDeleteByAuthorFn func(context.Context, uint, uint) error
	historyFn            func(context.Context, uint) ([]models.CommentEdit, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, includeDeleted)
}
func (s *commentRepoStub) UpdateWithHistory(ctx context.Context, comment *models.Comment, previous *models.CommentEdit) error {
	return s.updateWithHistoryFn(ctx, comment, previous)
}
func (s *commentRepoStub) SoftDelete(ctx context.Context, id, byUserID uint) error {
	return s.softDeleteFn(ctx, id, byUserID)
}
func (s *commentRepoStub) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	return s.softDeleteByAuthorFn(ctx, authorID, byUserID)
}
func (s *commentRepoStub) History(ctx context.Context, commentID uint) ([]models.CommentEdit, error) {
	return s.historyFn(ctx, commentID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn: func(_ context.Context, _ uint, _ bool) ([]*models.Comment, error) { return nil, nil },
		updateWithHistoryFn:  func(_ context.Context, _ *models.Comment, _ *models.CommentEdit) error { return nil },
		softDeleteFn:         func(_ context.Context, _, _ uint) error { return nil },
		softDeleteByAuthorFn: func(_ context.Context, _, _ uint) error { return nil },
		historyFn:            func(_ context.Context, _ uint) ([]models.CommentEdit, error) { return nil, nil },
	}
}

// mediaStoreStub is a stub for media.Store.
type mediaStoreStub struct {
	released   []string
	releaseErr error
}

func (s *mediaStoreStub) Upload(_ context.Context, _ io.Reader, _ string) (media.Attachment, error) {
	return media.Attachment{}, nil
}

func (s *mediaStoreStub) Release(_ context.Context, ref string) error {
	s.released = append(s.released, ref)
	return s.releaseErr
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
