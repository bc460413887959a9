package sources

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Autilos/r107-garage-hub/app/database"
)

// SeedSource is one feed origin declared in the seed file
type SeedSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Country string `yaml:"country"`
	Enabled *bool  `yaml:"enabled"` // defaults to true when omitted
}

type seedFile struct {
	Sources []SeedSource `yaml:"sources"`
}

// Loader registers feed sources from an optional YAML file at startup, so a
// fresh deployment has its feeds without manual inserts
type Loader struct {
	path string
	repo database.SourceRepository
}

func NewLoader(path string, repo database.SourceRepository) *Loader {
	return &Loader{path: path, repo: repo}
}

// Register upserts every source from the seed file, keyed by name. The file
// is optional and advisory: a missing, unreadable or malformed file logs a
// warning and registers nothing, it never blocks startup.
func (l *Loader) Register() int {
	seeds, err := l.load()
	if err != nil {
		slog.Warn("Skipping seed sources", "path", l.path, "error", err)
		return 0
	}

	registered := 0
	for i, seed := range seeds {
		if err := validate(seed); err != nil {
			slog.Warn("Skipping invalid seed source", "path", l.path, "index", i, "error", err)
			continue
		}

		enabled := true
		if seed.Enabled != nil {
			enabled = *seed.Enabled
		}

		id, err := l.repo.UpsertSource(seed.Name, seed.URL, seed.Country, enabled)
		if err != nil {
			slog.Warn("Failed to register source", "source", seed.Name, "error", err)
			continue
		}

		slog.Info("Registered source", "source", seed.Name, "id", id, "url", seed.URL)
		registered++
	}

	return registered
}

func (l *Loader) load() ([]SeedSource, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	return file.Sources, nil
}

func validate(seed SeedSource) error {
	if seed.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if seed.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	return nil
}
