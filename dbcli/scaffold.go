package dbcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rdb/orm"
)

// modelTemplate renders a Go source file wiring the scaffolded resource into
// a registry, so generated definitions can also be compiled into a binary.
var modelTemplate = template.Must(template.New("model").Parse(`package gen

import "rdb/orm"

// Define{{.GoName}} registers the {{.Name}} resource.
func Define{{.GoName}}(reg *orm.Registry) (*orm.Model, error) {
	return reg.Define("{{.Name}}", []orm.Field{
{{- range .Fields}}
		{Name: "{{.Name}}", Type: "{{.Type}}"{{if .Primary}}, Primary: true{{end}}{{if .ForeignKey}}, ForeignKey: true, RefTable: "{{.RefTable}}", RefColumn: "{{.RefColumn}}"{{end}}},
{{- end}}
	})
}
`))

// parseField turns a "name:type" argument into a Field. A trailing
// "ref=table.column" segment marks a foreign key.
func parseField(arg string, primary bool) (orm.Field, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return orm.Field{}, fmt.Errorf("field %q must be name:type", arg)
	}
	f := orm.Field{Name: parts[0], Type: parts[1], Primary: primary}
	switch f.Type {
	case "int", "string":
	default:
		return orm.Field{}, fmt.Errorf("field %q has unsupported type %q", f.Name, f.Type)
	}
	if primary && f.Type != "int" {
		return orm.Field{}, fmt.Errorf("primary key %q must be an int", f.Name)
	}
	for _, opt := range parts[2:] {
		ref, ok := strings.CutPrefix(opt, "ref=")
		if !ok {
			return orm.Field{}, fmt.Errorf("field %q has unknown option %q", f.Name, opt)
		}
		table, column, ok := strings.Cut(ref, ".")
		if !ok || table == "" || column == "" {
			return orm.Field{}, fmt.Errorf("field %q reference must be table.column", f.Name)
		}
		f.ForeignKey = true
		f.RefTable = table
		f.RefColumn = column
	}
	return f, nil
}

func goName(resource string) string {
	var b strings.Builder
	for _, part := range strings.Split(resource, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [resource] [field:type]...",
	Short: "Define a new resource and generate its model code",
	Long: `Writes a resource definition that serve picks up, plus a Go source
file under gen/ registering the model. The first field is the integer
primary key. Fields look like "id:int", "title:string" or
"author_id:int:ref=authors.id".`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		resource := strings.ToLower(args[0])

		fields := make([]orm.Field, 0, len(args)-1)
		for i, arg := range args[1:] {
			f, err := parseField(arg, i == 0)
			if err != nil {
				return err
			}
			fields = append(fields, f)
		}

		dir := resourcesDir(cfg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating resources dir: %w", err)
		}
		specPath := filepath.Join(dir, resource+".yaml")
		if _, err := os.Stat(specPath); err == nil {
			return fmt.Errorf("resource %s already exists", resource)
		}

		spec := resourceSpec{Name: resource, Fields: fields}
		data, err := yaml.Marshal(spec)
		if err != nil {
			return fmt.Errorf("encoding resource spec: %w", err)
		}
		if err := os.WriteFile(specPath, data, 0o644); err != nil {
			return fmt.Errorf("writing resource spec: %w", err)
		}

		if err := os.MkdirAll("gen", 0o755); err != nil {
			return fmt.Errorf("creating gen dir: %w", err)
		}
		genPath := filepath.Join("gen", resource+".go")
		out, err := os.Create(genPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", genPath, err)
		}
		defer out.Close()
		if err := modelTemplate.Execute(out, struct {
			Name   string
			GoName string
			Fields []orm.Field
		}{resource, goName(resource), fields}); err != nil {
			return fmt.Errorf("rendering %s: %w", genPath, err)
		}

		fmt.Printf("Scaffolded %s: %s and %s\n", resource, specPath, genPath)
		return nil
	},
}
