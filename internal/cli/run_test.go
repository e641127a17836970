package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

var (
	scenarioDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir   = filepath.Join("..", "harness", "testdata", "golden")
)

// decodeData unmarshals the data field of a JSON envelope into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunScenarioFile(t *testing.T) {
	out, err := execute(t, "run", filepath.Join(scenarioDir, "car_lifecycle.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ car_lifecycle")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRunDirectoryWithFilterJSON(t *testing.T) {
	out, err := execute(t, "run", scenarioDir, "--filter", "xact_*", "--format", "json")
	require.NoError(t, err)

	var result RunResult
	decodeData(t, out, &result)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "xact_overlay", result.Scenarios[0].Name)
	assert.Positive(t, result.Scenarios[0].Steps)
}

func TestRunEmptyDirectory(t *testing.T) {
	out, err := execute(t, "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRunMissingPath(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunMatchesGolden(t *testing.T) {
	out, err := execute(t, "run", filepath.Join(scenarioDir, "car_lifecycle.yaml"),
		filepath.Join(scenarioDir, "xact_overlay.yaml"), "--golden", goldenDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 passed")
}

func TestRunUpdateGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")
	file := filepath.Join(scenarioDir, "car_lifecycle.yaml")

	_, err := execute(t, "run", file, "--golden", dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "car_lifecycle.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(goldenDir, "car_lifecycle.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	_, err = execute(t, "run", file, "--golden", dir)
	require.NoError(t, err)
}

func TestRunGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "car_lifecycle.golden", "{\"scenario\":\"car_lifecycle\"}\n")

	out, err := execute(t, "run", filepath.Join(scenarioDir, "car_lifecycle.yaml"), "--golden", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "golden mismatch at line 2")
}

func TestRunUpdateRequiresGolden(t *testing.T) {
	_, err := execute(t, "run", scenarioDir, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunFailingScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wrong.yaml", `
name: wrong
registrations:
  - name: cars
    keyspec: "/car[brand=*]"
    category: config
    type: Car
    flags: [publisher]
steps:
  - op: get
    reg: cars
    at: "/car[brand='Toyota']"
`)
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "0 passed, 2 failed, 2 total")
	assert.FileExists(t, path)
}

func TestRunMirrorsIntoConfiguredStore(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "member.db")
	cfg := writeFile(t, dir, "dtsmember.yaml", `
kv:
  backend: sqlite
  path: `+db+`
shard:
  path: `+db+`
`)

	_, err := execute(t, "--config", cfg, "run", filepath.Join(scenarioDir, "shard_sqlite.yaml"))
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "kv", "dump", "--shards", "--format", "json")
	require.NoError(t, err)

	var dump KVDumpResult
	decodeData(t, out, &dump)
	assert.Equal(t, db, dump.DB)

	toyota := string(keyspec.MustParse(`/car[brand='Toyota']`, keyspec.CategoryConfig).MustKey())
	var keys []string
	for _, ns := range dump.Namespaces {
		if ns.Name != "shard_sqlite" {
			continue
		}
		for _, e := range ns.Entries {
			keys = append(keys, e.Key)
			assert.NotEmpty(t, e.Digest)
		}
	}
	assert.Contains(t, keys, toyota)

	require.Len(t, dump.Shards, 1)
	assert.Equal(t, "parts", dump.Shards[0].Name)
	require.Len(t, dump.Shards[0].Records, 1)
	assert.Equal(t, "/part[id=1]", dump.Shards[0].Records[0].Keyspec)
}
