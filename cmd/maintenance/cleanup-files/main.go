package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/guestdesk/registration-backend/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Runs one retention sweep over the uploads directory, the same sweep the
// server schedules, for use from cron or by hand.
func main() {
	var (
		dirFlag string
		days    int
		dryRun  bool
	)
	flag.StringVar(&dirFlag, "dir", "", "images directory (overrides IMAGES_DIR)")
	flag.IntVar(&days, "days", 0, "retention in days (overrides CLEANUP_RETENTION_DAYS)")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be removed without deleting")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dir := dirFlag
	if dir == "" {
		dir = os.Getenv("IMAGES_DIR")
	}
	if dir == "" {
		dir = "images"
	}

	if days <= 0 {
		days = 7
		if v, err := strconv.Atoi(os.Getenv("CLEANUP_RETENTION_DAYS")); err == nil && v > 0 {
			days = v
		}
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	retention := time.Duration(days) * 24 * time.Hour
	result := services.NewCleanupService(dir, retention, logger).WithDryRun(dryRun).Sweep(time.Now())

	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}
	fmt.Printf("%s %d files and %d empty directories under %s (older than %d days)\n",
		verb, result.FilesDeleted, result.DirsRemoved, dir, days)

	if result.Errors > 0 {
		log.Fatalf("%d entries could not be removed", result.Errors)
	}
}
