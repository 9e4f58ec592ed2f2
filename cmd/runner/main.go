// The runner claims pending schedule jobs and executes them. Run it from
// cron for batch rosters, or with -poll to keep it processing continuously.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/jobs"
)

func main() {
	poll := flag.Duration("poll", 0, "keep polling for new jobs at this interval (0 runs once)")
	flag.Parse()

	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	db := database.InitDB()

	for {
		if err := jobs.RunPending(db, time.Now()); err != nil {
			slog.Error("job poll failed", "err", err)
			if *poll == 0 {
				os.Exit(1)
			}
		}
		if *poll == 0 {
			return
		}
		time.Sleep(*poll)
	}
}
