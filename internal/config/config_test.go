package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitual/internal/constants"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HABITUAL_BACKEND", "")
	t.Setenv("HABITUAL_PROJECT_ID", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Backend != constants.BackendLocal {
		t.Errorf("Backend = %q, want %q", cfg.Backend, constants.BackendLocal)
	}
	if cfg.DatabaseID != constants.DefaultDatabaseID {
		t.Errorf("DatabaseID = %q, want %q", cfg.DatabaseID, constants.DefaultDatabaseID)
	}
	if strings.HasPrefix(cfg.LocalPath, "~") {
		t.Errorf("LocalPath %q was not expanded", cfg.LocalPath)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "HABITUAL_BACKEND=appwrite\nHABITUAL_PROJECT_ID=from-file\nHABITUAL_ENDPOINT=https://example.com/v1/\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	// Values already in the environment take precedence over the file
	t.Setenv("HABITUAL_PROJECT_ID", "from-env")
	t.Setenv("HABITUAL_BACKEND", "")
	t.Setenv("HABITUAL_ENDPOINT", "")
	// godotenv never overrides a variable that is set, even to ""
	os.Unsetenv("HABITUAL_BACKEND")
	os.Unsetenv("HABITUAL_ENDPOINT")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Backend != constants.BackendAppwrite {
		t.Errorf("Backend = %q, want appwrite", cfg.Backend)
	}
	if cfg.ProjectID != "from-env" {
		t.Errorf("ProjectID = %q, want from-env", cfg.ProjectID)
	}
	if cfg.Endpoint != "https://example.com/v1" {
		t.Errorf("Endpoint = %q, want trailing slash trimmed", cfg.Endpoint)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Load() with missing env file = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseID:              "db",
		HabitsCollectionID:      "habits",
		CompletionsCollectionID: "completions",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "local ok", mutate: func(c *Config) { c.Backend = constants.BackendLocal; c.LocalPath = "/tmp/h.db" }},
		{name: "local missing path", mutate: func(c *Config) { c.Backend = constants.BackendLocal }, wantErr: true},
		{name: "appwrite ok", mutate: func(c *Config) {
			c.Backend = constants.BackendAppwrite
			c.Endpoint = "https://cloud.appwrite.io/v1"
			c.ProjectID = "p"
		}},
		{name: "appwrite missing project", mutate: func(c *Config) {
			c.Backend = constants.BackendAppwrite
			c.Endpoint = "https://cloud.appwrite.io/v1"
		}, wantErr: true},
		{name: "appwrite bad scheme", mutate: func(c *Config) {
			c.Backend = constants.BackendAppwrite
			c.Endpoint = "cloud.appwrite.io"
			c.ProjectID = "p"
		}, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "firebase" }, wantErr: true},
		{name: "empty collection", mutate: func(c *Config) {
			c.Backend = constants.BackendLocal
			c.LocalPath = "/tmp/h.db"
			c.HabitsCollectionID = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionAccount(t *testing.T) {
	remote := Config{Backend: constants.BackendAppwrite, ProjectID: "proj"}
	if got := remote.SessionAccount(); got != "appwrite-proj" {
		t.Errorf("SessionAccount() = %q, want appwrite-proj", got)
	}

	local := Config{Backend: constants.BackendLocal, LocalPath: "/home/u/.config/habitual/habitual.db"}
	if got := local.SessionAccount(); got != "local-habitual.db" {
		t.Errorf("SessionAccount() = %q, want local-habitual.db", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/x/y.db")
	if err != nil {
		t.Fatalf("ExpandPath() failed: %v", err)
	}
	if got != filepath.Join(home, "x/y.db") {
		t.Errorf("ExpandPath() = %q", got)
	}
	if got, _ := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(abs) = %q", got)
	}
}
