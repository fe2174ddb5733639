package server

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id, currentUserID uint, includeDeleted bool) (*models.Post, error) {
	args := m.Called(ctx, id, currentUserID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Post), args.Get(1).(int64), args.Error(2)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) SoftDelete(ctx context.Context, id, byUserID uint) error {
	args := m.Called(ctx, id, byUserID)
	return args.Error(0)
}

func (m *MockPostRepository) Restore(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) ForceDelete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	args := m.Called(ctx, authorID, byUserID)
	return args.Error(0)
}

func (m *MockPostRepository) IncrementViews(ctx context.Context, id uint) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockPostRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCommentRepository is a mock of the CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error) {
	args := m.Called(ctx, postID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) UpdateWithHistory(ctx context.Context, comment *models.Comment, previous *models.CommentEdit) error {
	args := m.Called(ctx, comment, previous)
	return args.Error(0)
}

func (m *MockCommentRepository) SoftDelete(ctx context.Context, id, byUserID uint) error {
	args := m.Called(ctx, id, byUserID)
	return args.Error(0)
}

func (m *MockCommentRepository) SoftDeleteByAuthor(ctx context.Context, authorID, byUserID uint) error {
	args := m.Called(ctx, authorID, byUserID)
	return args.Error(0)
}

func (m *MockCommentRepository) History(ctx context.Context, commentID uint) ([]models.CommentEdit, error) {
	args := m.Called(ctx, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CommentEdit), args.Error(1)
}

// testDeps bundles the repository mocks behind a wired Server and app.
type testDeps struct {
	app      *fiber.App
	server   *Server
	users    *MockUserRepository
	posts    *MockPostRepository
	comments *MockCommentRepository
}

// newTestServer wires a Server over repository mocks with the full route set
// mounted. Rate limiting is a no-op because APP_ENV defaults to development.
func newTestServer(t *testing.T) *testDeps {
	t.Helper()

	users := new(MockUserRepository)
	posts := new(MockPostRepository)
	comments := new(MockCommentRepository)

	s := &Server{
		config: &config.Config{
			JWTSecret:       testSecret,
			JWTExpiresHours: 24,
			Env:             "test",
		},
		issuer: token.NewIssuer(testSecret, time.Hour),
	}
	s.authService = service.NewAuthService(users, posts, comments)
	s.postService = service.NewPostService(posts, nil)
	s.commentService = service.NewCommentService(comments, posts)

	app := fiber.New()
	s.SetupRoutes(app)

	return &testDeps{
		app:      app,
		server:   s,
		users:    users,
		posts:    posts,
		comments: comments,
	}
}

// authToken mints a token for the given identity.
func (d *testDeps) authToken(t *testing.T, userID uint, role models.Role) string {
	t.Helper()
	tok, err := d.server.issuer.Issue(userID, role)
	require.NoError(t, err)
	return tok
}
