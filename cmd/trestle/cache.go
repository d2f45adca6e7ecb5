package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/metadata"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the metadata snapshot cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached metadata snapshot",
	Long: `Remove the cached snapshot from the configured backend so the next
load rebuilds metadata from the schema files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store := newCacheStore(cfg)
		if store == nil {
			color.New(color.FgYellow).Println("No cache backend configured, nothing to clear")
			return nil
		}

		if err := store.Clear(context.Background()); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		color.New(color.FgGreen, color.Bold).Println("✓ Cache cleared")
		return nil
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache backend and contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		infoColor := color.New(color.FgCyan)
		infoColor.Printf("Backend:    %s\n", cfg.Cache.Backend)
		switch cfg.Cache.Backend {
		case "file":
			infoColor.Printf("File:       %s\n", cfg.Cache.File)
		case "redis":
			infoColor.Printf("Redis:      %s\n", cfg.Cache.Redis.Addr)
			infoColor.Printf("Key:        %s\n", cfg.Cache.Redis.Key)
		}

		store := newCacheStore(cfg)
		if store == nil {
			return nil
		}

		snap, ok, err := store.Load(context.Background())
		if err != nil {
			return fmt.Errorf("failed to read cache: %w", err)
		}
		if !ok {
			infoColor.Println("Snapshot:   none")
			return nil
		}
		printSnapshotInfo(infoColor, snap)
		return nil
	},
}

func printSnapshotInfo(infoColor *color.Color, snap *metadata.Snapshot) {
	infoColor.Printf("Snapshot:   %s\n", snap.Generation)
	infoColor.Printf("Built:      %s\n", snap.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	infoColor.Printf("Entities:   %d\n", len(snap.Entities))
	infoColor.Printf("Relations:  %d\n", len(snap.Relationships))
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
}
