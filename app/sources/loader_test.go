package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Autilos/r107-garage-hub/app/database"
)

type fakeSourceRepo struct {
	database.SourceRepository
	upserts []string
	enabled map[string]bool
}

func (f *fakeSourceRepo) UpsertSource(name, feedURL, countryDefault string, enabled bool) (string, error) {
	f.upserts = append(f.upserts, name)
	if f.enabled == nil {
		f.enabled = make(map[string]bool)
	}
	f.enabled[name] = enabled
	return "id-" + name, nil
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return path
}

func TestRegisterSources(t *testing.T) {
	path := writeSeedFile(t, `sources:
  - name: classic-trader
    url: https://example.com/feed.xml
    country: PL
  - name: sl-market
    url: https://example.org/rss
    country: US
    enabled: false
`)

	repo := &fakeSourceRepo{}
	count := NewLoader(path, repo).Register()

	if count != 2 {
		t.Errorf("Expected 2 registered sources, got: %d", count)
	}
	if len(repo.upserts) != 2 {
		t.Fatalf("Expected 2 upserts, got: %d", len(repo.upserts))
	}
	if !repo.enabled["classic-trader"] {
		t.Error("Expected enabled to default to true")
	}
	if repo.enabled["sl-market"] {
		t.Error("Expected explicit enabled=false to be honored")
	}
}

func TestRegisterMissingFile(t *testing.T) {
	repo := &fakeSourceRepo{}
	count := NewLoader(filepath.Join(t.TempDir(), "absent.yml"), repo).Register()

	if count != 0 {
		t.Errorf("Expected 0 registered sources, got: %d", count)
	}
}

func TestRegisterMalformedFileNotFatal(t *testing.T) {
	path := writeSeedFile(t, "sources: [not valid")

	repo := &fakeSourceRepo{}
	count := NewLoader(path, repo).Register()

	if count != 0 {
		t.Errorf("Expected 0 registered sources from malformed file, got: %d", count)
	}
	if len(repo.upserts) != 0 {
		t.Errorf("Expected no upserts from malformed file, got: %d", len(repo.upserts))
	}
}

func TestRegisterSkipsInvalidEntries(t *testing.T) {
	path := writeSeedFile(t, `sources:
  - name: broken
  - name: classic-trader
    url: https://example.com/feed.xml
`)

	repo := &fakeSourceRepo{}
	count := NewLoader(path, repo).Register()

	if count != 1 {
		t.Errorf("Expected 1 registered source, got: %d", count)
	}
	if len(repo.upserts) != 1 || repo.upserts[0] != "classic-trader" {
		t.Errorf("Expected only the valid source to be upserted, got: %v", repo.upserts)
	}
}
