package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

func writeWorkspace(t *testing.T, productURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	selectors := write("selectors.json", `{"shop": {"price": ".price", "availability": "#buy", "unavailability": ".oos"}}`)
	products := write("products.json", fmt.Sprintf(`[{"name": "Deck", "url": %q, "store": "shop", "target_price": 2500}]`, productURL))
	statePath := filepath.Join(dir, "notified.json")
	cfg := write("config.yaml", fmt.Sprintf(`
catalog:
  products: %s
  selectors: %s
fetch:
  max_attempts: 2
  retry_delay: 0s
  rendered:
    enabled: false
state:
  path: %s
history:
  path: %s
notify:
  alert:
    enabled: false
metrics:
  addr: ""
`, products, selectors, statePath, filepath.Join(dir, "price_history.csv")))
	return cfg, statePath
}

func TestCheckCommandPersistsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><span class="price">1 999 zł</span><button id="buy">Kup</button></body></html>`))
	}))
	defer srv.Close()

	cfgPath, statePath := writeWorkspace(t, srv.URL)
	root := newRootCmd()
	root.SetArgs([]string{"check", "--config", cfgPath, "--env-file", ""})
	require.NoError(t, root.ExecuteContext(context.Background()))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	var entries map[string]map[string]monitor.State
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.True(t, entries["shop"]["Deck"].Available)
	assert.Equal(t, "1 999 zł", entries["shop"]["Deck"].Price)

	out := &bytes.Buffer{}
	root = newRootCmd()
	root.SetOut(out)
	root.SetArgs([]string{"products", "--config", cfgPath, "--env-file", ""})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Deck")
	assert.Contains(t, out.String(), "2500.00")
	assert.Contains(t, out.String(), "available")
}

func TestRootFailsOnBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scheduler:\n  workers: 0\n"), 0o600))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--config", cfgPath, "--env-file", ""})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.workers")
}

func TestWriteProductsUnknownState(t *testing.T) {
	out := &bytes.Buffer{}
	err := writeProducts(out, []monitor.Product{{Name: "PS5", Store: "morele"}}, monitor.NewSnapshot())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "unknown")
}

func TestResolveAppWithoutInit(t *testing.T) {
	_, err := resolveApp(context.Background())
	assert.Error(t, err)
}
