package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trestlehq/trestle/internal/cliui"
	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/metadata"
	"github.com/trestlehq/trestle/internal/schema"
)

var (
	inspectFormat  string
	inspectNoColor bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect loaded entity metadata",
	Long: `Inspect the metadata the engine resolves from your schema directory.

Subcommands list entities, show a single entity's fields and
relationships, and expose the field type and rule catalogs.`,
	Example: `  # List all entities
  trestle inspect entities

  # Show one entity, namespaced identifiers are accepted
  trestle inspect entity Movies
  trestle inspect entity App\Models\Movies

  # List relationships and catalogs
  trestle inspect relationships
  trestle inspect types --format json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if inspectNoColor {
			color.NoColor = true
		}
	},
}

func init() {
	inspectCmd.PersistentFlags().StringVar(&inspectFormat, "format", "table", "Output format: json or table")
	inspectCmd.PersistentFlags().BoolVar(&inspectNoColor, "no-color", false, "Disable colored output")

	inspectCmd.AddCommand(inspectEntitiesCmd)
	inspectCmd.AddCommand(inspectEntityCmd)
	inspectCmd.AddCommand(inspectRelationshipsCmd)
	inspectCmd.AddCommand(inspectTypesCmd)
	inspectCmd.AddCommand(inspectRulesCmd)
}

func loadSnapshot() (*metadata.Snapshot, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	engine, logger, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	return engine.LoadAll(context.Background())
}

var inspectEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List all entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(snap.Entities))
		for name := range snap.Entities {
			names = append(names, name)
		}
		sort.Strings(names)

		if inspectFormat == "json" {
			type row struct {
				Name   string `json:"name"`
				Table  string `json:"table"`
				Class  string `json:"class"`
				Fields int    `json:"fields"`
			}
			out := make([]row, 0, len(names))
			for _, name := range names {
				entity := snap.Entities[name]
				out = append(out, row{name, entity.Table, entity.Class, entity.Fields.Len()})
			}
			return printJSON(out)
		}

		table := cliui.NewTable(os.Stdout, "NAME", "TABLE", "CLASS", "FIELDS")
		for _, name := range names {
			entity := snap.Entities[name]
			table.AddRow(name, entity.Table, entity.Class, strconv.Itoa(entity.Fields.Len()))
		}
		table.Render()
		return nil
	},
}

var inspectEntityCmd = &cobra.Command{
	Use:   "entity <name>",
	Short: "Show one entity's fields and relationships",
	Args:  cobra.ExactArgs(1),
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

		ctx := context.Background()
		name := metadata.ResolveEntityIdentifier(args[0])
		entity, err := engine.Entity(ctx, name)
		if err != nil {
			return err
		}
		related, err := engine.RelationshipsFor(ctx, entity.Name)
		if err != nil {
			return err
		}

		if inspectFormat == "json" {
			return printJSON(map[string]any{
				"name":          entity.Name,
				"table":         entity.Table,
				"class":         entity.Class,
				"fields":        fieldRows(entity.Fields),
				"relationships": relationshipRows(related),
			})
		}

		title := color.New(color.Bold, color.FgCyan)
		title.Printf("%s", entity.Name)
		fmt.Printf("  (table %s, class %s)\n\n", entity.Table, entity.Class)

		table := cliui.NewTable(os.Stdout, "FIELD", "TYPE", "REQUIRED", "LABEL")
		for _, field := range entity.Fields.Fields() {
			table.AddRow(field.Name, field.Kind.String(), yesNo(field.Required), field.Label)
		}
		table.Render()

		if len(related) > 0 {
			fmt.Println()
			relTable := cliui.NewTable(os.Stdout, "RELATIONSHIP", "TYPE", "TABLE", "ON DELETE")
			for _, rel := range related {
				relTable.AddRow(rel.Name, rel.Type.String(), rel.Table, rel.OnDelete.String())
			}
			relTable.Render()
		}
		return nil
	},
}

var inspectRelationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "List all relationships",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(snap.Relationships))
		for name := range snap.Relationships {
			names = append(names, name)
		}
		sort.Strings(names)

		rels := make([]*schema.Relationship, 0, len(names))
		for _, name := range names {
			rels = append(rels, snap.Relationships[name])
		}

		if inspectFormat == "json" {
			return printJSON(relationshipRows(rels))
		}

		table := cliui.NewTable(os.Stdout, "NAME", "TYPE", "PARTICIPANTS", "TABLE", "ON DELETE")
		for _, rel := range rels {
			table.AddRow(rel.Name, rel.Type.String(),
				strings.Join(rel.Participants(), ", "), rel.Table, rel.OnDelete.String())
		}
		table.Render()
		return nil
	},
}

var inspectTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the field type catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(snap.FieldTypes))
		for name := range snap.FieldTypes {
			names = append(names, name)
		}
		sort.Strings(names)

		if inspectFormat == "json" {
			out := make([]any, 0, len(names))
			for _, name := range names {
				out = append(out, snap.FieldTypes[name])
			}
			return printJSON(out)
		}

		table := cliui.NewTable(os.Stdout, "TYPE", "COMPONENT", "OPERATORS", "DESCRIPTION")
		for _, name := range names {
			def := snap.FieldTypes[name]
			table.AddRow(def.Type, def.Component, strings.Join(def.Operators, " "), def.Description)
		}
		table.Render()
		return nil
	},
}

var inspectRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the validation rule catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(snap.RuleTypes))
		for name := range snap.RuleTypes {
			names = append(names, name)
		}
		sort.Strings(names)

		if inspectFormat == "json" {
			out := make([]any, 0, len(names))
			for _, name := range names {
				out = append(out, snap.RuleTypes[name])
			}
			return printJSON(out)
		}

		table := cliui.NewTable(os.Stdout, "RULE", "DESCRIPTION", "EXPRESSION")
		for _, name := range names {
			def := snap.RuleTypes[name]
			table.AddRow(def.Name, def.Description, def.Expression)
		}
		table.Render()
		return nil
	},
}

func fieldRows(fields *schema.FieldSet) []map[string]any {
	out := make([]map[string]any, 0, fields.Len())
	for _, field := range fields.Fields() {
		out = append(out, map[string]any{
			"name":     field.Name,
			"type":     field.Kind.String(),
			"label":    field.Label,
			"required": field.Required,
			"readOnly": field.ReadOnly,
		})
	}
	return out
}

func relationshipRows(rels []*schema.Relationship) []map[string]any {
	out := make([]map[string]any, 0, len(rels))
	for _, rel := range rels {
		out = append(out, map[string]any{
			"name":         rel.Name,
			"type":         rel.Type.String(),
			"participants": rel.Participants(),
			"table":        rel.Table,
			"onDelete":     rel.OnDelete.String(),
		})
	}
	return out
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
