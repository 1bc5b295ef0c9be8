package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig writes a config that keeps brains under a temp dir.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nanobrain.yaml")
	body := "store:\n  dir: " + filepath.Join(dir, "brains") + "\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestChatCommandRemembers(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, "chat", "--config", cfg, "--user", "ava", "My", "name", "is", "Ava")
	require.NoError(t, err)

	out, err := run(t, "chat", "--config", cfg, "--user", "ava", "what", "is", "my", "name")
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ava.\n", out)
}

func TestTeachToneAndMemory(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, "teach", "--config", cfg, "--user", "bob", "likes=green tea")
	require.NoError(t, err)
	assert.Equal(t, "context likes set to green tea\n", out)

	out, err = run(t, "tone", "--config", cfg, "--user", "bob", "Formal")
	require.NoError(t, err)
	assert.Equal(t, "tone set to formal\n", out)

	_, err = run(t, "tone", "--config", cfg, "--user", "bob", "sarcastic")
	assert.Error(t, err)

	out, err = run(t, "memory", "--config", cfg, "--user", "bob", "--full=false", "--format", "json")
	require.NoError(t, err)
	var mem map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &mem))
	assert.Equal(t, map[string]any{"likes": "green tea"}, mem["context"])
	assert.Equal(t, map[string]any{"tone": "formal"}, mem["meta"])
	assert.NotContains(t, mem, "words")

	out, err = run(t, "memory", "--config", cfg, "--user", "bob", "--full", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "words:")
	assert.Contains(t, out, "tone: formal")
}

func TestUsersCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, "users", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "No users yet.\n", out)

	for _, u := range []string{"zed", "amy"} {
		_, err := run(t, "chat", "--config", cfg, "--user", u, "hi")
		require.NoError(t, err)
	}

	out, err = run(t, "users", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "amy\nzed\n", out)
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "nanobrain.yaml")
	body := "store:\n  backend: sqlite\n  db_path: " + filepath.Join(dir, "brains.db") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0644))

	_, err := run(t, "chat", "--config", cfg, "--user", "ava", "My", "name", "is", "Ava")
	require.NoError(t, err)

	out, err := run(t, "chat", "--config", cfg, "--user", "ava", "who", "am", "i")
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ava.\n", out)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "nanobrain.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decay: 0.997")

	_, err = run(t, "config", "init", path)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "nanobrain dev"))
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
	assert.True(t, strings.HasPrefix(VersionString(), "dev ("))
}
