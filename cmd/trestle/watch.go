package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/metadata"
)

var watchDebounceMS int

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMS, "debounce", 0, "Debounce window in milliseconds (overrides config)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch schema files and reload metadata on change",
	Long: `Watch the schema directory and rebuild the metadata snapshot whenever
an entity or relationship definition changes. Edits arriving in a burst
are coalesced into a single reload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if watchDebounceMS > 0 {
			cfg.Schema.DebounceMS = watchDebounceMS
		}

		engine, logger, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := context.Background()
		if _, err := engine.LoadAll(ctx); err != nil {
			return fmt.Errorf("initial load failed: %w", err)
		}

		watcher, err := metadata.NewWatcher(engine, cfg.Schema.Dir,
			metadata.WithDebounce(cfg.Schema.Debounce()),
			metadata.WithWatchLogger(logger),
			metadata.WithOnReload(func(snap *metadata.Snapshot) {
				fmt.Printf("Reloaded: %d entities, %d relationships (generation %s)\n",
					len(snap.Entities), len(snap.Relationships), snap.Generation)
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}

		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}

		// Wait for interrupt signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		fmt.Printf("Watching %s for schema changes\n", cfg.Schema.Dir)
		fmt.Println("Press Ctrl+C to stop")

		// Block until signal
		<-sigChan

		fmt.Println("\nShutting down...")
		return watcher.Stop()
	},
}
