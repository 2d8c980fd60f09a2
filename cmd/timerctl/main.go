// Command timerctl is the gacha timer admin CLI.
//
// Usage:
//
//	timerctl events add --profile AK --category Banner --title "Test Banner" --start 1760000000 --end 1761209600
//	timerctl events list --profile UMA
//	timerctl events remove --id 42
//	timerctl notifications list --limit 50
//	timerctl notifications clear
//	timerctl reconcile --ghosts
//	timerctl schedule --profile HSR --all
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
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "timerctl",
		Short: "Gacha timer admin CLI",
	}

	root.AddCommand(eventsCmd())
	root.AddCommand(notificationsCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(scheduleCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps bundles the wired scheduling components for one CLI invocation.
type deps struct {
	pool       *db.Pool
	games      *game.Registry
	events     *event.Store
	notifs     *notify.PgStore
	scheduler  *notify.Scheduler
	reconciler *notify.Reconciler
	service    *event.Service
}

// run connects to the database, wires the components, and invokes fn.
func run(fn func(ctx context.Context, d *deps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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
	reconciler := notify.NewReconciler(games, eventStore, notifStore, scheduler, nil, logger)
	service := event.NewService(eventStore, games, scheduler, notify.NewCascade(notifStore), nil, logger)

	return fn(ctx, &deps{
		pool:       pool,
		games:      games,
		events:     eventStore,
		notifs:     notifStore,
		scheduler:  scheduler,
		reconciler: reconciler,
		service:    service,
	})
}

// --------------------------------------------------------------------------
// events command
// --------------------------------------------------------------------------

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage tracked events",
	}
	cmd.AddCommand(eventsAddCmd())
	cmd.AddCommand(eventsEditCmd())
	cmd.AddCommand(eventsRemoveCmd())
	cmd.AddCommand(eventsListCmd())
	return cmd
}

func eventFlags(cmd *cobra.Command, e *event.Event) {
	cmd.Flags().StringVar(&e.Profile, "profile", "", "Profile code (AK, STRI, HSR, ZZZ, WUWA, UMA)")
	cmd.Flags().StringVar(&e.Category, "category", "", "Event category")
	cmd.Flags().StringVar(&e.Title, "title", "", "Event title")
	cmd.Flags().StringVar(&e.Description, "description", "", "Event description")
	cmd.Flags().StringVar(&e.Image, "image", "", "Image URL")
	cmd.Flags().Int64Var(&e.StartUnix, "start", 0, "Start UNIX timestamp")
	cmd.Flags().Int64Var(&e.EndUnix, "end", 0, "End UNIX timestamp")
	cmd.Flags().Int64Var(&e.AsiaStart, "asia-start", 0, "Asia start (regional games)")
	cmd.Flags().Int64Var(&e.AsiaEnd, "asia-end", 0, "Asia end")
	cmd.Flags().Int64Var(&e.AmericaStart, "america-start", 0, "America start")
	cmd.Flags().Int64Var(&e.AmericaEnd, "america-end", 0, "America end")
	cmd.Flags().Int64Var(&e.EuropeStart, "europe-start", 0, "Europe start")
	cmd.Flags().Int64Var(&e.EuropeEnd, "europe-end", 0, "Europe end")
}

func eventsAddCmd() *cobra.Command {
	var e event.Event
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an event and schedule its notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.Profile == "" || e.Title == "" {
				return fmt.Errorf("--profile and --title are required")
			}
			return run(func(ctx context.Context, d *deps) error {
				if err := d.service.AddOrUpdate(ctx, &e); err != nil {
					return err
				}
				// Manual adds can race the daemon's scheduler; sweep
				// any duplicates the race produced.
				if n, err := d.notifs.RemoveDuplicates(ctx); err == nil && n > 0 {
					logger.Info("Removed duplicate notifications", "count", n)
				}
				logger.Info("Event saved", "profile", e.Profile, "title", e.Title, "key", e.Key)
				return nil
			})
		},
	}
	eventFlags(cmd, &e)
	return cmd
}

func eventsEditCmd() *cobra.Command {
	var e event.Event
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit an event by id and rebuild its notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.ID == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, d *deps) error {
				if err := d.service.Edit(ctx, &e); err != nil {
					return err
				}
				logger.Info("Event updated", "id", e.ID, "title", e.Title)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&e.ID, "id", 0, "Event row id")
	eventFlags(cmd, &e)
	return cmd
}

func eventsRemoveCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an event and its notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, d *deps) error {
				return d.service.Remove(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Event row id")
	return cmd
}

func eventsListCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, all profiles unless --profile narrows it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				var events []*event.Event
				var err error
				if profile == "" {
					events, err = d.events.Everything(ctx)
				} else {
					events, err = d.events.GetAll(ctx, game.NormalizeProfile(profile))
				}
				if err != nil {
					return err
				}
				for _, e := range events {
					fmt.Printf("%6d  %-8s %-20s %-40s start=%d end=%d\n",
						e.ID, e.Profile, e.Category, e.Title, e.StartUnix, e.EndUnix)
				}
				logger.Info("Events listed", "profile", profile, "count", len(events))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Profile code")
	return cmd
}

// --------------------------------------------------------------------------
// notifications command
// --------------------------------------------------------------------------

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect and manage pending notifications",
	}
	cmd.AddCommand(notificationsListCmd())
	cmd.AddCommand(notificationsClearCmd())
	cmd.AddCommand(notificationsRemoveCmd())
	cmd.AddCommand(notificationsSetMessageCmd())
	return cmd
}

func notificationsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				rows, err := d.notifs.ListPending(ctx, limit)
				if err != nil {
					return err
				}
				for _, p := range rows {
					region := p.Region
					if region == "" {
						region = "-"
					}
					fmt.Printf("%6d  %-5s %-16s %-36s %-15s %-8s fire=%d\n",
						p.ID, p.Profile, p.Category, p.Title, p.TimingType, region, p.NotifyUnix)
				}
				logger.Info("Pending notifications", "count", len(rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows to list")
	return cmd
}

func notificationsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all notification rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				n, err := d.notifs.DeleteAll(ctx)
				if err != nil {
					return err
				}
				logger.Info("Notifications cleared", "removed", n)
				return nil
			})
		},
	}
}

func notificationsRemoveCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete one notification row by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, d *deps) error {
				return d.notifs.Delete(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Notification row id")
	return cmd
}

func notificationsSetMessageCmd() *cobra.Command {
	var id int64
	var message string
	cmd := &cobra.Command{
		Use:   "set-message",
		Short: "Set a custom message delivered verbatim instead of the template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return run(func(ctx context.Context, d *deps) error {
				if err := d.notifs.SetCustomMessage(ctx, id, message); err != nil {
					return err
				}
				logger.Info("Custom message set", "notification_id", id)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Notification row id")
	cmd.Flags().StringVar(&message, "message", "", "Message text (empty restores the template)")
	return cmd
}

// --------------------------------------------------------------------------
// reconcile command
// --------------------------------------------------------------------------

func reconcileCmd() *cobra.Command {
	var ghosts, validate, dedup bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run reconciliation passes (all by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				// No flag means run everything.
				if !ghosts && !validate && !dedup {
					res, err := d.reconciler.Run(ctx)
					if err != nil {
						return err
					}
					logger.Info("Reconciliation complete",
						"ghosts", res.Ghosts, "fixed", res.Fixed,
						"duplicates", res.Duplicates, "expired", res.Expired)
					return nil
				}
				if ghosts {
					n, err := d.reconciler.CleanupGhosts(ctx)
					if err != nil {
						return err
					}
					logger.Info("Ghost cleanup complete", "removed", n)
				}
				if validate {
					n, err := d.reconciler.Validate(ctx)
					if err != nil {
						return err
					}
					logger.Info("Validation complete", "fixed", n)
				}
				if dedup {
					n, err := d.notifs.RemoveDuplicates(ctx)
					if err != nil {
						return err
					}
					logger.Info("Dedup complete", "removed", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ghosts, "ghosts", false, "Only remove ghost notifications")
	cmd.Flags().BoolVar(&validate, "validate", false, "Only validate and reschedule missing timing types")
	cmd.Flags().BoolVar(&dedup, "dedup", false, "Only remove duplicate rows")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	var profile string
	var id int64
	var all bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run the scheduler for one event or a whole profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profile == "" {
				return fmt.Errorf("--profile is required")
			}
			if !all && id == 0 {
				return fmt.Errorf("one of --id or --all is required")
			}
			return run(func(ctx context.Context, d *deps) error {
				if id != 0 {
					e, err := d.events.GetByID(ctx, id)
					if err != nil {
						return err
					}
					n, err := d.scheduler.ScheduleEvent(ctx, e)
					if err != nil {
						return err
					}
					logger.Info("Event scheduled", "title", e.Title, "inserted", n)
					return nil
				}

				events, err := d.events.GetAll(ctx, game.NormalizeProfile(profile))
				if err != nil {
					return err
				}
				total := 0
				for _, e := range events {
					n, err := d.scheduler.ScheduleEvent(ctx, e)
					if err != nil {
						logger.Error("schedule failed", "title", e.Title, "error", err)
						continue
					}
					total += n
				}
				logger.Info("Profile scheduled", "profile", profile,
					"events", len(events), "inserted", total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Profile code")
	cmd.Flags().Int64Var(&id, "id", 0, "Event row id")
	cmd.Flags().BoolVar(&all, "all", false, "Schedule every event of the profile")
	return cmd
}
