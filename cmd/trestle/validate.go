package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trestlehq/trestle/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate all schema definitions",
	Long: `Load every entity and relationship definition, merge core fields,
and resolve relationship tables and keys. Definitions that fail to
decode are reported by the engine log; the command fails only when
the schema directory itself cannot be loaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		engine, logger, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		snap, err := engine.LoadAll(context.Background())
		if err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}

		successColor := color.New(color.FgGreen, color.Bold)
		infoColor := color.New(color.FgCyan)

		successColor.Println("✓ Schema loaded")
		infoColor.Printf("  Entities:       %d\n", len(snap.Entities))
		infoColor.Printf("  Relationships:  %d\n", len(snap.Relationships))
		infoColor.Printf("  Field types:    %d\n", len(snap.FieldTypes))
		infoColor.Printf("  Rules:          %d\n", len(snap.RuleTypes))
		infoColor.Printf("  Generation:     %s\n", snap.Generation)
		return nil
	},
}
