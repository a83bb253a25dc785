// Command create-admin generates an admin account with random credentials, or with the
// username given by -username.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// generateRandomString creates a random hex string of n bytes
func generateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateUniqueUsername tries until a unique username is found
func generateUniqueUsername(db *gorm.DB) (string, error) {
	for {
		suffix, err := generateRandomString(4)
		if err != nil {
			return "", err
		}
		username := "admin_" + suffix
		var count int64
		if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return username, nil
		}
	}
}

func main() {
	username := flag.String("username", "", "admin username, generated when empty")
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "", "admin display name")
	flag.Parse()

	log := logging.New(os.Getenv("LOG_LEVEL"), "text")

	db, err := database.GetMainDB()
	if err != nil {
		log.WithError(err).Fatal("database failed to initialize")
	}
	defer func() { _ = db.Close() }()

	if *username == "" {
		*username, err = generateUniqueUsername(db.DB)
		if err != nil {
			log.WithError(err).Fatal("failed to generate username")
		}
	}
	password, err := generateRandomString(8)
	if err != nil {
		log.WithError(err).Fatal("failed to generate password")
	}

	admin, err := utilities.CreateAdmin(db.DB, *username, password, *email, *name)
	if err != nil {
		log.WithError(err).Fatal("failed to create admin")
	}

	// Print credentials (only show plain password here!)
	fmt.Println("Admin credentials generated successfully!")
	fmt.Println("======================================")
	fmt.Printf("Username: %s\n", admin.Username)
	fmt.Printf("Password: %s\n", password)
	fmt.Println("======================================")
}
