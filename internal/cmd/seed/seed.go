// Package seed parses seed command flags and runs the demo-data seeder.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	entrypoint "github.com/campushealth/immunize/internal/platform/cmd"
	"github.com/campushealth/immunize/internal/vaccination/seed"
	"github.com/campushealth/immunize/internal/vaccination/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath string `env:"IMMUNIZE_SEED_DB_PATH" envDefault:"data/immunize.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The immunization SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the database and applies the demo fixture.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(context.Context) error {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create seed storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close sqlite store: %v", closeErr)
			}
		}()

		summary, err := seed.Apply(ctx, store, nil)
		if err != nil {
			return err
		}
		log.Printf("seeded campaign %s schedule %s: %d students, %d sessions, %d records",
			summary.CampaignID, summary.ScheduleID, summary.Students, summary.Sessions, summary.Records)
		return nil
	})
}
