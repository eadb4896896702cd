package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"spacehub/internal/auth"
	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/models"
	"spacehub/internal/repository"

	"github.com/joho/godotenv"
)

const seedPassword = "password123"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	tokens := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	// Seed initial users
	slog.Info("Creating initial users...")

	seedUsers := []struct {
		username    string
		displayName string
		role        string
	}{
		{"admin", "Admin", models.RoleAdmin},
		{"alice", "Alice", models.RoleUser},
		{"bob", "Bob", models.RoleUser},
		{"charlie", "Charlie", models.RoleUser},
	}

	users := make([]*models.User, 0, len(seedUsers))
	for _, seed := range seedUsers {
		hashed, err := auth.HashPassword(seedPassword)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}

		user := &models.User{
			Username:    seed.username,
			DisplayName: seed.displayName,
			Email:       seed.username + "@spacehub.local",
			Password:    hashed,
			Role:        seed.role,
			IsActive:    true,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if !errors.Is(err, models.ErrAlreadyExists) {
				log.Fatal("Failed to create user:", err)
			}
			slog.Warn("User already exists", "username", seed.username)
			if user, err = userRepo.FindByUsername(ctx, seed.username); err != nil {
				log.Fatal("Failed to load user:", err)
			}
		} else {
			slog.Info("Created user", "username", seed.username, "id", user.ID)
		}
		users = append(users, user)
	}

	// Create a demo space owned by the admin, with one instance
	space := &models.Space{Name: "Lobby", OwnerID: users[0].ID}
	if err := spaceRepo.Create(ctx, space); err != nil {
		log.Fatal("Failed to create space:", err)
	}
	instance := &models.SpaceInstance{SpaceID: space.ID, Name: "Lobby #1", IsActive: true}
	if err := spaceRepo.CreateInstance(ctx, instance); err != nil {
		log.Fatal("Failed to create space instance:", err)
	}
	slog.Info("Created space", "spaceID", space.ID, "instanceID", instance.ID)

	fmt.Printf("\nSpace:    %s\nInstance: %s\nPassword: %s\n\n", space.ID, instance.ID, seedPassword)
	for _, user := range users {
		token, err := tokens.Issue(user.Identity())
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Printf("%-8s %s\n", user.Username, token)
	}

	slog.Info("Database seeding completed successfully")
}
