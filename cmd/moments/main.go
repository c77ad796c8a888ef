package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/moments/internal/config"
	"github.com/timmy/moments/internal/logger"
	"github.com/timmy/moments/internal/repository"
	"gorm.io/gorm"
)

const usage = `Usage: moments <command> [flags]

Commands:
  init-db      Initialize the database (--drop to recreate)
  init-app     Create tables and the built-in roles and permissions
  lorem        Generate fake data
  ml-backfill  Generate auto_alt_text and auto_tags_json for existing photos

Run "moments <command> -h" for command flags.
`

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"init-db":     runInitDB,
	"init-app":    runInitApp,
	"lorem":       runLorem,
	"ml-backfill": runBackfill,
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB
}

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "moments",
	})
	logger.SetDefaultLogger(appLogger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		if name == "-h" || name == "--help" || name == "help" {
			fmt.Fprint(os.Stdout, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.GetDefault().Info("Received shutdown signal, canceling...")
		cancel()
	}()

	configPath, args := extractConfigFlag(os.Args[2:])
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger = logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "moments",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx = appLogger.WithContext(ctx)
	ctx = logger.WithField(ctx, logger.FieldCommand, name)

	if err := cmd(ctx, &app{cfg: cfg, log: appLogger, db: db}, args); err != nil {
		appLogger.WithError(err).WithField(logger.FieldCommand, name).Error("Command failed")
		logger.Sync()
		os.Exit(1)
	}
}

// extractConfigFlag pulls --config/-config out of args so it is honoured by
// every command before the command's own flags are parsed.
func extractConfigFlag(args []string) (string, []string) {
	path := ""
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config" || a == "-config":
			if i+1 < len(args) {
				path = args[i+1]
				i++
			}
		case len(a) > 9 && a[:9] == "--config=":
			path = a[9:]
		case len(a) > 8 && a[:8] == "-config=":
			path = a[8:]
		default:
			rest = append(rest, a)
		}
	}
	return path, rest
}
