package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/guestdesk/registration-backend/internal/utils"
)

func main() {
	password := flag.String("password", "", "admin password to hash for ADMIN_PASSWORD_HASH")
	cost := flag.Int("cost", 12, "bcrypt cost for the admin password hash")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the guest registration backend")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)

	if *password != "" {
		hash, err := utils.HashPassword(*password, *cost)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		fmt.Printf("ADMIN_PASSWORD_HASH='%s'\n", hash)
	}

	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
