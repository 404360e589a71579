// Command seed fills a database-backed community directory with the
// built-in fixtures and synthetic members.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"silverlink/internal/config"
	"silverlink/internal/directory"
)

func main() {
	members := flag.Int("members", 20, "Number of synthetic members to create")
	dryRun := flag.Bool("dry-run", false, "Log what would be written without touching the database")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated members")
	flag.Parse()

	log.Println("Directory Seeder")
	log.Printf("Target: fixtures + %d members, dry-run=%v\n", *members, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fixtures, err := directory.LoadFixtures()
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	opts := directory.SeedOptions{Members: *members, DryRun: *dryRun, Seed: *seed}

	var db *directory.Database
	if !*dryRun {
		if cfg.DBDriver == config.DirectoryStatic {
			log.Fatalf("DB_DRIVER is %q; set sqlite or postgres to seed a database", cfg.DBDriver)
		}
		gdb, err := directory.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		db = directory.NewDatabase(gdb)
	}

	created, err := directory.NewFactory(db, fixtures, opts).Seed(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Done: %d members written\n", len(created))
}
