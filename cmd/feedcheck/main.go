// feedcheck fetches the disaster feed once and prints the normalized records,
// for verifying credentials and upstream availability from the command line.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/discentra/discentra/internal/config"
	"github.com/discentra/discentra/internal/feed"
	"github.com/discentra/discentra/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, "text")

	source := feed.NewReliefWeb(cfg.Feed.URL, cfg.Feed.AppName, cfg.Feed.Limit, cfg.Feed.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := source.Fetch(ctx)
	if err != nil {
		logging.Fatalf("feed fetch failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logging.Fatalf("encoding records: %v", err)
	}
}
