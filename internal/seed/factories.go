// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password shared by every seeded account.
const DemoPassword = "password123"

var demoTags = []string{
	"go", "backend", "frontend", "devops", "databases", "testing",
	"career", "opinion", "tutorial", "review", "travel", "books",
	"music", "productivity", "homelab", "linux",
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
	// hash of DemoPassword, computed once
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	hashed, _ := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	return &Factory{
		db:           db,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		passwordHash: string(hashed),
	}
}

// CreateUser constructs and persists a sample account. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		FullName: gofakeit.Name(),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:     models.RoleUser,
		Password: f.passwordHash,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	return user, nil
}

// BuildPost constructs a post without persisting it, spread over a realistic
// created_at window so listings look lived-in.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:    gofakeit.Sentence(5),
		Content:  gofakeit.Paragraph(2, 4, 8, "\n\n"),
		AuthorID: author.ID,
		Tags:     f.pickTags(),
		Views:    uint64(f.rng.Intn(500)),
	}

	daysBack := f.rng.Intn(90)
	hoursBack := f.rng.Intn(24)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	if f.rng.Intn(3) == 0 {
		post.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

func (f *Factory) pickTags() []string {
	n := 1 + f.rng.Intn(3)
	tags := make([]string, 0, n)
	seen := map[string]bool{}
	for len(tags) < n {
		tag := demoTags[f.rng.Intn(len(demoTags))]
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := f.db.Create(&posts).Error; err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	return nil
}

// CreateComment persists a comment from the given user on the given post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: gofakeit.Sentence(8 + f.rng.Intn(10)),
	}
	comment.CreatedAt = post.CreatedAt.Add(time.Duration(1+f.rng.Intn(72)) * time.Hour)

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("seed comment: %w", err)
	}
	return comment, nil
}

// EditComment rewrites a comment and records the superseded content, the same
// shape the API produces.
func (f *Factory) EditComment(comment *models.Comment) error {
	previous := &models.CommentEdit{
		CommentID:  comment.ID,
		Content:    comment.Content,
		EditedAt:   comment.CreatedAt.Add(time.Duration(1+f.rng.Intn(24)) * time.Hour),
		EditedByID: comment.UserID,
	}
	comment.Content = gofakeit.Sentence(8 + f.rng.Intn(10))
	comment.IsEdited = true

	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(previous).Error; err != nil {
			return err
		}
		return tx.Save(comment).Error
	})
}

// LikePost records a like; duplicates are ignored.
func (f *Factory) LikePost(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	return f.db.Where(like).FirstOrCreate(like).Error
}
