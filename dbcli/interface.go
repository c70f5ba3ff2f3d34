// Package dbcli is the command line interface: it serves the HTTP API,
// scaffolds resource definitions, and runs maintenance commands against the
// data directory.
package dbcli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rdb/database"
	"rdb/orm"
	"rdb/server"
)

var configPath string

// Root command for the CLI
var RootCmd = &cobra.Command{
	Use:   "rdb",
	Short: "CLI for managing the database",
	Long:  "A Command Line Interface (CLI) for serving, scaffolding and maintaining resources in the database.",
}

// Execute runs the root command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %v\n", err)
		os.Exit(1)
	}
}

// resourceSpec is the on-disk shape of a scaffolded resource definition.
type resourceSpec struct {
	Name   string      `yaml:"name"`
	Fields []orm.Field `yaml:"fields"`
}

func resourcesDir(cfg Config) string {
	return filepath.Join(cfg.DataDir, "resources")
}

func loadResourceSpecs(cfg Config) ([]resourceSpec, error) {
	dir := resourcesDir(cfg)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resources dir %s: %w", dir, err)
	}

	var specs []resourceSpec
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading resource %s: %w", e.Name(), err)
		}
		var spec resourceSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parsing resource %s: %w", e.Name(), err)
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// openRegistry builds the database and defines every scaffolded resource.
func openRegistry(cfg Config) (*orm.Registry, *database.Database, error) {
	name := cfg.DBName
	if name == "" {
		dbUUID, err := uuid.NewRandom()
		if err != nil {
			return nil, nil, fmt.Errorf("generating database id: %w", err)
		}
		name = fmt.Sprintf("db_%s", strings.Split(dbUUID.String(), "-")[0])
		slog.Info("no dbName configured, generated one", "name", name)
	}

	db, err := database.New(name, filepath.Join(cfg.DataDir, name), cfg.CacheRows)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	reg := orm.NewRegistry(db)
	specs, err := loadResourceSpecs(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	for _, spec := range specs {
		if _, err := reg.Define(spec.Name, spec.Fields); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("defining resource %s: %w", spec.Name, err)
		}
	}
	return reg, db, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Opens the database, defines every scaffolded resource and serves the REST API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		reg, db, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		slog.Info("database ready", "name", db.Name(), "resources", len(reg.Models()))
		app := server.New(reg)
		return server.Listen(app, cfg.Listen)
	},
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the scaffolded resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		specs, err := loadResourceSpecs(cfg)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			fmt.Println("No resources defined. Use scaffold to create one.")
			return nil
		}
		for _, spec := range specs {
			names := make([]string, len(spec.Fields))
			for i, f := range spec.Fields {
				names[i] = f.Name
			}
			fmt.Printf("%s (%s)\n", spec.Name, strings.Join(names, ", "))
		}
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact [resource]",
	Short: "Rewrite a resource's data file, dropping deleted rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		reg, db, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		model, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		if err := model.Compact(); err != nil {
			return fmt.Errorf("compacting %s: %w", args[0], err)
		}
		fmt.Printf("Compacted %s successfully!\n", args[0])
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "rdb.yaml", "path to the config file")
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(scaffoldCmd)
	RootCmd.AddCommand(resourcesCmd)
	RootCmd.AddCommand(compactCmd)
}
