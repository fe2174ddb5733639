package seed

import (
	"fmt"
	"log"
	"time"

	"inkwell/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll truncates the domain tables in dependency order.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []string{"comment_edits", "comments", "likes", "posts", "users"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// SeedAccounts creates the fixed demo accounts (admin, user, guest) plus
// numUsers random members.
func (s *Seeder) SeedAccounts(numUsers int) ([]*models.User, error) {
	log.Printf("Seeding %d accounts...", numUsers+3)

	users := make([]*models.User, 0, numUsers+3)

	fixed := []struct {
		username string
		email    string
		role     models.Role
	}{
		{"admin", "admin@inkwell.dev", models.RoleAdmin},
		{"demo", "demo@inkwell.dev", models.RoleUser},
		{"visitor", "visitor@inkwell.dev", models.RoleGuest},
	}
	for _, acc := range fixed {
		acc := acc
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = acc.username
			u.Email = acc.email
			u.Role = acc.role
			u.FullName = acc.username
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for i := 0; i < numUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedContent creates posts with comments, likes, edit history and a few
// trashed posts so every listing scope has data.
func (s *Seeder) SeedContent(users []*models.User, numPosts int) error {
	if len(users) == 0 {
		return fmt.Errorf("no users to author posts")
	}
	log.Printf("Seeding %d posts with engagement...", numPosts)

	authors := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.Role != models.RoleGuest {
			authors = append(authors, u)
		}
	}

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		author := authors[s.factory.rng.Intn(len(authors))]
		posts = append(posts, s.factory.BuildPost(author))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return err
	}

	for _, post := range posts {
		// comments, a few per post, sometimes edited
		for i := 0; i < s.factory.rng.Intn(5); i++ {
			commenter := users[s.factory.rng.Intn(len(users))]
			comment, err := s.factory.CreateComment(commenter, post)
			if err != nil {
				return err
			}
			if s.factory.rng.Intn(4) == 0 {
				if err := s.factory.EditComment(comment); err != nil {
					return err
				}
			}
		}

		for i := 0; i < s.factory.rng.Intn(8); i++ {
			liker := users[s.factory.rng.Intn(len(users))]
			if err := s.factory.LikePost(liker, post); err != nil {
				return err
			}
		}
	}

	// a slice of trash so the admin scopes are not empty
	admin := users[0]
	for i := 0; i < len(posts)/10; i++ {
		post := posts[s.factory.rng.Intn(len(posts))]
		now := time.Now()
		err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"is_deleted":    true,
			"deleted_at":    now,
			"deleted_by_id": admin.ID,
		}).Error
		if err != nil {
			return fmt.Errorf("trash post %d: %w", post.ID, err)
		}
	}
	return nil
}

// VerifyDemoLogin sanity-checks that the demo password round-trips through
// the stored hash.
func (s *Seeder) VerifyDemoLogin() error {
	var user models.User
	if err := s.db.Where("username = ?", "demo").First(&user).Error; err != nil {
		return fmt.Errorf("demo account missing: %w", err)
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword))
}
