package main

import (
	"context"
	"flag"
	"os"
	"time"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/repository/dynamo"

	"github.com/fatih/color"
)

// Creates the notes table and its indexes. Safe to run repeatedly.
func main() {
	wait := flag.Duration("wait", 2*time.Minute, "how long to wait for a new table to become active (0 = do not wait)")
	flag.Parse()

	cfg := config.Load()
	if missing := cfg.Store.MissingDynamoSettings(); len(missing) > 0 {
		color.Red("Missing settings: %v", missing)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := dynamo.NewClient(ctx, cfg.Store)
	if err != nil {
		color.Red("Failed to build DynamoDB client: %v", err)
		os.Exit(1)
	}

	target := cfg.Store.DynamoEndpoint
	if target == "" {
		target = "AWS " + cfg.Store.AWSRegion
	}
	color.Cyan("Ensuring table %q on %s", cfg.Store.DynamoTable, target)

	created, err := dynamo.EnsureTable(ctx, client, cfg.Store.DynamoTable, *wait)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if created {
		color.Green("Created table %q with indexes GSI1, GSI2, GSI3", cfg.Store.DynamoTable)
		return
	}
	color.Yellow("Table %q already exists, nothing to do", cfg.Store.DynamoTable)
}
