package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/config"
	"github.com/lovenda/lovenda/internal/lifecycle"
	"github.com/lovenda/lovenda/internal/storage"
)

var (
	// Set by PersistentPreRunE for commands that need the database
	store  storage.Storage
	cfg    config.Config
	dbPath string

	configPath string
	actor      string
	verbose    bool
)

// commands that never touch the database
var noDatabase = map[string]bool{
	"context":    true,
	"help":       true,
	"completion": true,
	"lovenda":    true,
}

var rootCmd = &cobra.Command{
	Use:   "lovenda",
	Short: "Wedding planning checklist engine",
	Long: `lovenda turns a couple's wedding profile into a prioritized checklist,
keeps it in a local database and answers "what should we do next?".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if noDatabase[cmd.Name()] {
			return nil
		}

		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		if dbPath == "" {
			dbPath, err = storage.DiscoverDatabase()
			if err != nil {
				return fmt.Errorf("failed to find database: %w", err)
			}
		}
		slog.Debug("opening database", "path", dbPath, "config", cfg.String())

		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: dbPath, Logger: slog.Default()})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		if cfg.Events.CleanupEnabled && cmd.Name() != "events" {
			if _, _, err := pruneEvents(cmd.Context(), cfg.Events); err != nil {
				slog.Warn("event cleanup failed", "error", err)
			}
		}
		return store.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: discovered .lovenda/*.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", lifecycle.DefaultActor, "Name recorded on audit events")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// newController returns a lifecycle controller writing as the configured actor
func newController() (*lifecycle.Controller, error) {
	return lifecycle.NewController(store, lifecycle.WithActor(actor), lifecycle.WithLogger(slog.Default()))
}

// today is the clock every command derives "now" from
func today() time.Time {
	return time.Now()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		if store != nil {
			_ = store.Close()
		}
		os.Exit(1)
	}
}
