package main

import (
	"flag"
	"log"
	"strings"

	"shrimp-trace/internal/repository"
	"shrimp-trace/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "admin@example.com", "operator email")
	newPassword := flag.String("password", "admin123", "new password")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	if len(*newPassword) < 6 {
		log.Fatal("Password must be at least 6 characters")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	operators := repository.NewOperatorRepo(db)

	// 3. Find Operator
	op, err := operators.FindByEmail(strings.ToLower(*email))
	if err != nil {
		log.Fatalf("Operator %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// 5. Update, and drop any live session
	op.Password = string(hashedPassword)
	op.TokenVersion = uuid.New().String()
	if err := operators.Update(op); err != nil {
		log.Fatalf("Failed to update password in DB: %v", err)
	}

	log.Printf("Password for %s has been reset", *email)
}
