package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/export"
)

var (
	exportOutput  string
	exportFormat  string
	exportTitle   string
	exportVersion string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export metadata to downstream formats",
}

var exportOpenAPICmd = &cobra.Command{
	Use:   "openapi",
	Short: "Export an OpenAPI document for the entity API",
	Long: `Build an OpenAPI 3 document from the resolved metadata: one schema
per entity and relationship, and CRUD paths per entity.`,
	Example: `  # Print the document as JSON
  trestle export openapi

  # Write YAML to a file
  trestle export openapi --format yaml -o openapi.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		snap, err := loadSnapshot()
		if err != nil {
			return err
		}

		title := exportTitle
		if title == "" && cfg.ProjectName != "" {
			title = cfg.ProjectName + " API"
		}
		doc, err := export.OpenAPI(snap, export.Info{
			Title:   title,
			Version: exportVersion,
		})
		if err != nil {
			return err
		}

		data, err := doc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		if exportFormat == "yaml" {
			var tree map[string]any
			if err := json.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("failed to decode document: %w", err)
			}
			data, err = yaml.Marshal(tree)
			if err != nil {
				return fmt.Errorf("failed to marshal document: %w", err)
			}
		} else {
			var buf []byte
			buf, err = indentJSON(data)
			if err != nil {
				return err
			}
			data = buf
		}

		if exportOutput == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(exportOutput, data, 0644)
	},
}

func init() {
	exportOpenAPICmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportOpenAPICmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json or yaml")
	exportOpenAPICmd.Flags().StringVar(&exportTitle, "title", "", "Document title")
	exportOpenAPICmd.Flags().StringVar(&exportVersion, "doc-version", "", "Document version")

	exportCmd.AddCommand(exportOpenAPICmd)
}

func indentJSON(data []byte) ([]byte, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
