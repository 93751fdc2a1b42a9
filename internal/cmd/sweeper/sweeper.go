// Package sweeper parses sweeper command flags and launches the sweeper runtime.
package sweeper

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/campushealth/immunize/internal/platform/cmd"
	"github.com/campushealth/immunize/internal/vaccination/app"
)

// Config holds sweeper command configuration.
type Config struct {
	Port          int           `env:"IMMUNIZE_SWEEPER_PORT" envDefault:"8095"`
	DBPath        string        `env:"IMMUNIZE_SWEEPER_DB_PATH" envDefault:"data/immunize.db"`
	SweepInterval time.Duration `env:"IMMUNIZE_SWEEPER_INTERVAL" envDefault:"1m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The sweeper health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The immunization SQLite database path")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Consent expiry sweep interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sweeper runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSweeper, func(context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Port:          cfg.Port,
			DBPath:        cfg.DBPath,
			SweepInterval: cfg.SweepInterval,
		})
	})
}
