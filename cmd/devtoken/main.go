// Command devtoken prints a bearer token for local calls against the chat API.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"reqnexa-backend/internal/auth"
	"reqnexa-backend/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file holding JWT_SECRET")
	userFlag := pflag.String("user", "", "user id to embed (random when empty)")
	email := pflag.String("email", "", "optional email claim")
	pflag.Parse()

	config.LoadEnvFile(*envFile)
	secret, ok := os.LookupEnv("JWT_SECRET")
	if !ok || secret == "" {
		secret = "default-super-secret-key"
		log.Println("WARN: JWT_SECRET not set; signing with the development default.")
	}
	ttl := 24
	if raw := os.Getenv("JWT_EXPIRATION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			log.Fatalf("FATAL: Invalid JWT_EXPIRATION_HOURS %q: %v", raw, err)
		}
		ttl = hours
	}

	userID := uuid.New()
	if *userFlag != "" {
		parsed, err := uuid.Parse(*userFlag)
		if err != nil {
			log.Fatalf("FATAL: Invalid --user: %v", err)
		}
		userID = parsed
	}

	token, err := auth.NewAccessToken(userID, *email, secret, time.Duration(ttl)*time.Hour)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Printf("Token for UserID %s", userID)
	fmt.Println(token)
}
