package main

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/metadata"
	"github.com/trestlehq/trestle/internal/schema"
)

//go:embed templates/*
var templatesFS embed.FS

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// validateDefinitionName validates an entity or relationship name
func validateDefinitionName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("name must be 1-100 characters")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Scaffold schema definitions",
}

type scaffoldField struct {
	Name     string
	Type     string
	Required bool
}

var newEntityCmd = &cobra.Command{
	Use:   "entity [name]",
	Short: "Scaffold an entity definition",
	Long: `Create an entity definition directory and metadata file under the
schema directory. If no name is given you will be prompted for one,
and prompted to add fields interactively.`,
	Example: `  trestle new entity Movies
  trestle new entity`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var name string
		if len(args) > 0 {
			name = args[0]
		} else {
			prompt := &survey.Input{Message: "Entity name:"}
			if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		if err := validateDefinitionName(name); err != nil {
			return err
		}

		class := schema.DefaultClass
		classPrompt := &survey.Input{Message: "Class:", Default: schema.DefaultClass}
		if err := survey.AskOne(classPrompt, &class); err != nil {
			return err
		}

		fields, err := promptFields()
		if err != nil {
			return err
		}

		data := map[string]any{
			"Name":   name,
			"Class":  class,
			"Table":  schema.DeriveTableName(name),
			"Fields": fields,
		}
		path := filepath.Join(cfg.Schema.Dir, metadata.EntitiesDir, name, name+"_metadata.yaml")
		if err := renderScaffold("templates/entity.yaml.tmpl", path, data); err != nil {
			return err
		}

		color.New(color.FgGreen, color.Bold).Printf("✓ Created %s\n", path)
		return nil
	},
}

func promptFields() ([]scaffoldField, error) {
	var fields []scaffoldField
	kindNames := make([]string, 0)
	for _, kind := range schema.Kinds() {
		kindNames = append(kindNames, kind.String())
	}

	for {
		addMore := false
		confirm := &survey.Confirm{Message: "Add a field?", Default: len(fields) == 0}
		if err := survey.AskOne(confirm, &addMore); err != nil {
			return nil, err
		}
		if !addMore {
			return fields, nil
		}

		var field scaffoldField
		questions := []*survey.Question{
			{
				Name:     "name",
				Prompt:   &survey.Input{Message: "Field name:"},
				Validate: survey.Required,
			},
			{
				Name: "type",
				Prompt: &survey.Select{
					Message: "Field type:",
					Options: kindNames,
					Default: schema.KindText.String(),
				},
			},
			{
				Name:   "required",
				Prompt: &survey.Confirm{Message: "Required?"},
			},
		}
		if err := survey.Ask(questions, &field); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
}

var newRelationshipCmd = &cobra.Command{
	Use:   "relationship [name]",
	Short: "Scaffold a relationship definition",
	Example: `  trestle new relationship MovieQuotes
  trestle new relationship`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var name string
		if len(args) > 0 {
			name = args[0]
		} else {
			prompt := &survey.Input{Message: "Relationship name:"}
			if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}
		if err := validateDefinitionName(name); err != nil {
			return err
		}

		answers := struct {
			Type     string
			First    string
			Second   string
			OnDelete string `survey:"onDelete"`
		}{}
		questions := []*survey.Question{
			{
				Name: "type",
				Prompt: &survey.Select{
					Message: "Relationship type:",
					Options: []string{
						schema.OneToOne.String(),
						schema.OneToMany.String(),
						schema.ManyToMany.String(),
					},
					Default: schema.OneToMany.String(),
				},
			},
			{
				Name:     "first",
				Prompt:   &survey.Input{Message: "First participant (modelA / modelOne):"},
				Validate: survey.Required,
			},
			{
				Name:     "second",
				Prompt:   &survey.Input{Message: "Second participant (modelB / modelMany):"},
				Validate: survey.Required,
			},
			{
				Name: "onDelete",
				Prompt: &survey.Select{
					Message: "On delete:",
					Options: []string{
						schema.CascadeRestrict.String(),
						schema.CascadeDelete.String(),
						schema.CascadeSoftDelete.String(),
					},
					Default: schema.CascadeRestrict.String(),
				},
			},
		}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		data := map[string]any{
			"Name":     name,
			"Type":     answers.Type,
			"First":    answers.First,
			"Second":   answers.Second,
			"OnDelete": answers.OnDelete,
		}
		path := filepath.Join(cfg.Schema.Dir, metadata.RelationshipsDir, name, name+"_metadata.yaml")
		if err := renderScaffold("templates/relationship.yaml.tmpl", path, data); err != nil {
			return err
		}

		color.New(color.FgGreen, color.Bold).Printf("✓ Created %s\n", path)
		return nil
	},
}

func renderScaffold(tmplPath, outPath string, data any) error {
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("%s already exists", outPath)
	}

	tmpl, err := template.ParseFS(templatesFS, tmplPath)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(outPath, buf.Bytes(), 0644)
}

func init() {
	newCmd.AddCommand(newEntityCmd)
	newCmd.AddCommand(newRelationshipCmd)
}
