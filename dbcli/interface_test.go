package dbcli

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"rdb/orm"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":3000" || cfg.DataDir != "files" || cfg.CacheRows != 1024 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdb.yaml")
	content := "listen: \":8080\"\ndbName: library\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
	if cfg.DBName != "library" {
		t.Fatalf("DBName = %q", cfg.DBName)
	}
	if cfg.DataDir != "files" {
		t.Fatalf("DataDir = %q, want default", cfg.DataDir)
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdb.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseField(t *testing.T) {
	f, err := parseField("id:int", true)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if f.Name != "id" || f.Type != "int" || !f.Primary {
		t.Fatalf("field = %+v", f)
	}

	f, err = parseField("author_id:int:ref=authors.id", false)
	if err != nil {
		t.Fatalf("parseField: %v", err)
	}
	if !f.ForeignKey || f.RefTable != "authors" || f.RefColumn != "id" {
		t.Fatalf("field = %+v", f)
	}

	for _, bad := range []string{"id", "id:", ":int", "id:float", "x:int:nope", "x:int:ref=broken"} {
		if _, err := parseField(bad, false); err == nil {
			t.Fatalf("parseField(%q) should fail", bad)
		}
	}
	if _, err := parseField("id:string", true); err == nil {
		t.Fatal("string primary key should fail")
	}
}

func TestGoName(t *testing.T) {
	for in, want := range map[string]string{
		"books":        "Books",
		"book_authors": "BookAuthors",
		"x":            "X",
	} {
		if got := goName(in); got != want {
			t.Fatalf("goName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadResourceSpecs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()

	specs, err := loadResourceSpecs(cfg)
	if err != nil {
		t.Fatalf("loadResourceSpecs on empty dir: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("specs = %v, want none", specs)
	}

	dir := resourcesDir(cfg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"books", "authors"} {
		spec := resourceSpec{Name: name, Fields: []orm.Field{
			{Name: "id", Type: "int", Primary: true},
			{Name: "title", Type: "string"},
		}}
		data, err := yaml.Marshal(spec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644); err != nil {
			t.Fatalf("write spec: %v", err)
		}
	}

	specs, err = loadResourceSpecs(cfg)
	if err != nil {
		t.Fatalf("loadResourceSpecs: %v", err)
	}
	if len(specs) != 2 || specs[0].Name != "authors" || specs[1].Name != "books" {
		t.Fatalf("specs = %+v", specs)
	}
	if !specs[1].Fields[0].Primary {
		t.Fatalf("primary flag lost: %+v", specs[1].Fields)
	}
}
