package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolrelay/internal/config"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReadCall(t *testing.T) {
	got, err := readCall([]string{`{"name":"x"}`}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, got)

	got, err = readCall([]string{"-"}, strings.NewReader(`{"name":"y"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"y"}`, got)

	_, err = readCall(nil, strings.NewReader("  \n"))
	assert.EqualError(t, err, "no tool call given")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewLogger_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	l, closeLog, err := newLogger(config.GeneralConfig{LogLevel: "info", LogFormat: "json", LogFile: path}, nil)
	require.NoError(t, err)
	l.Info("hello", "k", "v")
	l.Debug("hidden")
	require.NoError(t, closeLog())
}

func TestConfigInitThenDispatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = run(t, "", "--config", path, "config", "init")
	require.Error(t, err)

	out, err = run(t, "", "--config", path, "--log-level", "error", "dispatch",
		`{"name":"price_analyze","arguments":{"pages":[{"url":"u","content":"antes 10,00 ahora 20,50"}]}}`)
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, "SUCCESS", reply["status"])
}

func TestDispatchFromStdin_ErrorReply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, config.Save(path, config.Defaults()))

	out, err := run(t, `{"name":"send_email","arguments":{"to":"not-an-email","subject":"s","body":"b"}}`,
		"--config", path, "--log-level", "error", "dispatch", "-")
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, "ERROR", reply["status"])
}

func TestToolsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Save(path, config.Defaults()))

	out, err := run(t, "", "--config", path, "--log-level", "error", "tools")
	require.NoError(t, err)

	var defs []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"price_analyze", "send_email", "translate_products", "web_scrape", "wikipedia"}, names)
}

func TestConfigGetMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.Defaults()
	cfg.Gateway.APIKey = "gw-0123456789abcdef"
	require.NoError(t, config.Save(path, cfg))

	out, err := run(t, "", "--config", path, "config", "get", "gateway.apiKey")
	require.NoError(t, err)
	assert.Equal(t, `"gw-0****cdef"`, strings.TrimSpace(out))

	out, err = run(t, "", "--config", path, "config", "get", "wiki.maxRedirects")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))
}

func TestMissingExplicitConfigFails(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "tools")
	require.Error(t, err)
}
