// Command ingest is the gacha timer bulk import CLI.
//
// Usage:
//
//	gachatimer-ingest events --file events.json
//	gachatimer-ingest events --file uma.json --profile UMA
//	gachatimer-ingest purge
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kanamidev/gachatimer/internal/config"
	"github.com/kanamidev/gachatimer/internal/db"
	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
	"github.com/kanamidev/gachatimer/internal/notify"
	"github.com/kanamidev/gachatimer/internal/seed"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "gachatimer-ingest",
		Short: "Gacha timer bulk import CLI",
	}
	root.AddCommand(eventsCmd())
	root.AddCommand(purgeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run connects to the database, wires the lifecycle service, and invokes fn.
func run(fn func(ctx context.Context, svc *event.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Bootstrap(ctx); err != nil {
		return err
	}

	games := game.Default()
	eventStore := event.NewStore(pool)
	notifStore := notify.NewStore(pool)
	scheduler := notify.NewScheduler(games, notifStore, nil, logger, nil)
	svc := event.NewService(eventStore, games, scheduler, notify.NewCascade(notifStore), nil, logger)

	return fn(ctx, svc)
}

func eventsCmd() *cobra.Command {
	var file, profile string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Import events from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, svc *event.Service) error {
				imp := seed.NewImporter(svc, logger)
				res, err := imp.ImportFile(ctx, file, profile)
				if err != nil {
					return err
				}
				fmt.Println(res.Summary())
				for _, e := range res.Errors {
					fmt.Fprintln(os.Stderr, " ", e)
				}
				if len(res.Errors) > 0 {
					return fmt.Errorf("%d records failed", len(res.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to a JSON array of event records")
	cmd.Flags().StringVar(&profile, "profile", "", "Default profile for records that omit one")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove fully elapsed events and their notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, svc *event.Service) error {
				n, err := svc.PurgeEnded(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("purged %d events\n", n)
				return nil
			})
		},
	}
}
