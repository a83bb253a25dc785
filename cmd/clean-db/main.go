// Command-line tool to clean the database by dropping all tables in the public schema.
// Stored resumes in GCS_BUCKET are removed as well.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"talentpool-backend/internal/controller/file"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/logging"
)

func main() {
	log := logging.New(os.Getenv("LOG_LEVEL"), "text")

	fmt.Println("WARNING: This command will DROP ALL TABLES in the 'public' schema of your database.")
	fmt.Println("This action is irreversible. Do you want to continue? (yes/no): ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		log.WithError(err).Fatal("failed to read input")
	}
	if strings.TrimSpace(strings.ToLower(input)) != "yes" {
		fmt.Println("Operation cancelled.")
		return
	}

	db, err := database.GetMainDB()
	if err != nil {
		log.WithError(err).Fatal("database failed to initialize")
	}
	defer func() { _ = db.Close() }()

	if err := db.DropAllTables(); err != nil {
		log.WithError(err).Fatal("failed to execute drop command")
	}
	fmt.Println("All tables dropped successfully.")

	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	gcs, err := file.NewCloudStorageClient(ctx, bucket)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to storage")
	}
	defer func() { _ = gcs.Close() }()

	names, err := gcs.ListObjects(ctx, file.ResumeObjectPrefix+"/")
	if err != nil {
		log.WithError(err).Fatal("failed to list stored resumes")
	}
	for _, name := range names {
		if err := gcs.DeleteFile(ctx, name); err != nil {
			log.WithError(err).WithField("object", name).Warn("failed to delete object")
		}
	}
	fmt.Printf("%d stored resumes deleted.\n", len(names))
}
