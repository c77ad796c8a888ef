package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/timmy/moments/internal/logger"
	"github.com/timmy/moments/internal/repository"
	"github.com/timmy/moments/internal/service"
	"github.com/timmy/moments/internal/storage"
)

func runInitDB(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ExitOnError)
	drop := fs.Bool("drop", false, "Create after drop.")
	yes := fs.Bool("yes", false, "Do not ask for confirmation when dropping.")
	fs.Parse(args)

	if *drop && !*yes {
		if !confirm(os.Stdin, os.Stdout, "This operation will delete the database, do you want to continue?") {
			fmt.Println("Aborted!")
			return nil
		}
	}
	return service.NewSchemaService(a.db, os.Stdout).InitDB(ctx, *drop)
}

func runInitApp(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("init-app", flag.ExitOnError)
	fs.Parse(args)
	return service.NewSchemaService(a.db, os.Stdout).InitApp(ctx)
}

func runLorem(ctx context.Context, a *app, args []string) error {
	defaults := service.DefaultLoremCounts()
	fs := flag.NewFlagSet("lorem", flag.ExitOnError)
	users := fs.Int("user", defaults.Users, "Quantity of users.")
	follows := fs.Int("follow", defaults.Follows, "Quantity of follows.")
	photos := fs.Int("photo", defaults.Photos, "Quantity of photos.")
	tags := fs.Int("tag", defaults.Tags, "Quantity of tags.")
	collects := fs.Int("collect", defaults.Collects, "Quantity of collects.")
	comments := fs.Int("comment", defaults.Comments, "Quantity of comments.")
	seed := fs.Int64("seed", 0, "Random seed; 0 picks one.")
	fs.Parse(args)

	objectStorage, err := storage.NewStorage(ctx, &a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	seeder := service.NewLoremService(a.db, objectStorage, a.cfg.Admin, *seed, os.Stdout)
	return seeder.Run(ctx, service.LoremCounts{
		Users:    *users,
		Follows:  *follows,
		Tags:     *tags,
		Photos:   *photos,
		Collects: *collects,
		Comments: *comments,
	})
}

func runBackfill(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ml-backfill", flag.ExitOnError)
	force := fs.Bool("force", false, "Regenerate even if fields already exist.")
	limit := fs.Int("limit", 0, "Process only the first N photos.")
	fs.Parse(args)

	if *limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", *limit)
	}

	vlm, err := service.NewVLMService(&a.cfg.VLM)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	objectStorage, err := storage.NewStorage(ctx, &a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	backfill := service.NewBackfillService(
		repository.NewPhotoRepository(a.db),
		objectStorage,
		vlm,
		repository.NewBackfillRunRepository(a.db),
		a.log,
		&service.BackfillConfig{
			PageSize:    a.cfg.Backfill.PageSize,
			CommitEvery: a.cfg.Backfill.CommitEvery,
		},
	)

	a.log.WithFields(logger.Fields{
		"model":   vlm.GetModel(),
		"storage": a.cfg.Storage.Type,
		"force":   *force,
		"limit":   *limit,
	}).Info("Starting ml-backfill")

	stats, err := backfill.Run(ctx, service.BackfillOptions{Force: *force, Limit: *limit})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.log.WithFields(logger.Fields{
				"processed": stats.Processed,
				"updated":   stats.Updated,
			}).Warn("Backfill interrupted; staged changes were committed")
		}
		return err
	}
	return nil
}

// confirm asks a yes/no question; anything but y/yes means no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
