package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig writes a config using the demo catalog, an sqlite store in a
// temp dir and an instant, always-approving checkout. mutate may replace
// any section before it is written.
func writeConfig(t *testing.T, mutate ...func(doc map[string]map[string]any)) string {
	t.Helper()
	dir := t.TempDir()
	doc := map[string]map[string]any{
		"catalog":  {"source": "demo"},
		"store":    {"driver": "sqlite", "path": filepath.Join(dir, "cart.db")},
		"checkout": {"delay": "0s", "success_rate": 1},
	}
	for _, m := range mutate {
		m(doc)
	}

	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "pokemart.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type response[T any] struct {
	Status string         `json:"status"`
	Data   T              `json:"data"`
	Error  *EnvelopeError `json:"error"`
}

// executeJSON runs args with --format json and decodes the envelope.
func executeJSON[T any](t *testing.T, args ...string) (response[T], error) {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json"}, args...)...)
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

type cartData struct {
	Items []struct {
		ID       int `json:"id"`
		Quantity int `json:"quantity"`
	} `json:"items"`
	Count  int    `json:"count"`
	Total  string `json:"total"`
	Action string `json:"action"`
}
