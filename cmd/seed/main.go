// Command main runs the database seeder for Inkwell.
package main

import (
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of random users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.SeedAccounts(*numUsers)
	if err != nil {
		log.Fatalf("Account seeding failed: %v", err)
	}
	if err := s.SeedContent(users, *numPosts); err != nil {
		log.Fatalf("Content seeding failed: %v", err)
	}
	if err := s.VerifyDemoLogin(); err != nil {
		log.Fatalf("Demo login verification failed: %v", err)
	}

	log.Println("All done! The database is populated with demo data.")
	log.Printf("All seeded accounts use the password: %s", seed.DemoPassword)
}
