package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"

	"cinespin/internal/config"
	"cinespin/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	catalog    *testsupport.FakeCatalog
	configPath string
}

// setupCLITestEnv writes a config pointing at a fake TMDB server into a
// temporary HOME. LLM settings come from opts; by default none is set.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("CINESPIN_API_TOKEN", "")

	catalog := testsupport.NewFakeCatalog()
	catalog.SetTrending(
		testsupport.TrendingMovie(901, "Trending One"),
		testsupport.TrendingMovie(902, "Trending Two"),
	)
	server := testsupport.NewTMDBServer(t, catalog)

	opts = append([]testsupport.ConfigOption{testsupport.WithTMDBBaseURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Resolver.FallbackTopN = 1

	configPath := filepath.Join(testsupport.BaseDir(cfg), "cinespin.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, catalog: catalog, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// completionServer answers every chat completion with content.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
