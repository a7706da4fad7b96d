package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/julianstephens/habitual/internal/constants"
)

type Config struct {
	Backend                 constants.BackendKind
	Endpoint                string
	ProjectID               string
	DatabaseID              string
	HabitsCollectionID      string
	CompletionsCollectionID string
	LocalPath               string
	ConfigDir               string
	Debug                   bool
}

// Load reads configuration from the environment, after merging in envFile
// when it exists. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	configDir, err := ExpandPath(getEnv("HABITUAL_CONFIG_DIR", constants.DefaultConfigDir))
	if err != nil {
		return nil, err
	}
	localPath, err := ExpandPath(getEnv("HABITUAL_LOCAL_PATH", constants.DefaultLocalPath))
	if err != nil {
		return nil, err
	}

	return &Config{
		Backend:                 constants.BackendKind(strings.ToLower(strings.TrimSpace(getEnv("HABITUAL_BACKEND", string(constants.BackendLocal))))),
		Endpoint:                strings.TrimRight(getEnv("HABITUAL_ENDPOINT", constants.DefaultEndpoint), "/"),
		ProjectID:               getEnv("HABITUAL_PROJECT_ID", ""),
		DatabaseID:              getEnv("HABITUAL_DATABASE_ID", constants.DefaultDatabaseID),
		HabitsCollectionID:      getEnv("HABITUAL_HABITS_COLLECTION_ID", constants.DefaultHabitsCollectionID),
		CompletionsCollectionID: getEnv("HABITUAL_COMPLETIONS_COLLECTION_ID", constants.DefaultCompletionsCollection),
		LocalPath:               localPath,
		ConfigDir:               configDir,
		Debug:                   getEnv("HABITUAL_DEBUG", "") == "1",
	}, nil
}

// Validate checks that the selected backend has everything it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case constants.BackendAppwrite:
		if c.Endpoint == "" {
			return errors.New("endpoint is required for the appwrite backend")
		}
		if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
			return fmt.Errorf("endpoint %q must start with http:// or https://", c.Endpoint)
		}
		if c.ProjectID == "" {
			return errors.New("project id is required for the appwrite backend (set HABITUAL_PROJECT_ID)")
		}
	case constants.BackendLocal:
		if c.LocalPath == "" {
			return errors.New("local path is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected %q or %q)", c.Backend, constants.BackendAppwrite, constants.BackendLocal)
	}

	if c.DatabaseID == "" || c.HabitsCollectionID == "" || c.CompletionsCollectionID == "" {
		return errors.New("database and collection ids must not be empty")
	}
	return nil
}

// SessionAccount names the keyring entry holding this configuration's session.
func (c *Config) SessionAccount() string {
	if c.Backend == constants.BackendAppwrite {
		return string(c.Backend) + "-" + c.ProjectID
	}
	return string(c.Backend) + "-" + filepath.Base(c.LocalPath)
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
