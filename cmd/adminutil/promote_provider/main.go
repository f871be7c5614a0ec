package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/fixhub-io/fixhub/internal/storage/postgres"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to provider")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/promote_provider/main.go -email user@example.com")
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, dsn)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}
	defer store.Close()

	if err := store.SetRole(ctx, *email, "provider"); err != nil {
		log.Fatalf("failed to promote user to provider: %v", err)
	}

	fmt.Printf("User %s promoted to provider.\n", *email)
}
