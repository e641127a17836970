package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "xact_overlay.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "xact_overlay", s.Name)
	require.Len(t, s.Registrations, 1)
	assert.Equal(t, []string{"publisher", "cache"}, s.Registrations[0].Flags)
	require.Len(t, s.Steps, 11)
	assert.Equal(t, OpBegin, s.Steps[0].Op)
	assert.Equal(t, []string{"/car[brand='Toyota']", "/car[brand='Honda']"}, s.Steps[4].Expect.Keys)
	assert.Len(t, s.Assertions, 5)
}

func TestLoadScenarioResolvesSchemaDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	body := `
name: rel
schema: schema
registrations:
  - {name: cars, keyspec: "/car[brand=*]", category: config, type: Car}
steps:
  - {op: list, reg: cars}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema"), s.Schema)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenarioErrors(t *testing.T) {
	const reg = `
registrations:
  - {name: cars, keyspec: "/car[brand=*]", category: config, type: Car}
`
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "name: x\nflow: []" + reg + "steps: [{op: drain}]", "field flow not found"},
		{"no name", reg + "steps: [{op: drain}]", "name is required"},
		{"no registrations", "name: x\nsteps: [{op: drain}]", "registrations list is required"},
		{"no steps", "name: x" + reg, "steps list is required"},
		{"bad kv", "name: x\nkv: redis" + reg + "steps: [{op: drain}]", "kv must be"},
		{"bad audit", "name: x\naudit: {capacity: 0, policy: reject}" + reg + "steps: [{op: drain}]", "audit.capacity"},
		{"bad category", "name: x\nregistrations:\n  - {name: c, keyspec: /c, category: bogus}\nsteps: [{op: drain}]", "registrations[0]"},
		{"bad keyspec", "name: x\nregistrations:\n  - {name: c, keyspec: c, category: config}\nsteps: [{op: drain}]", "registrations[0]"},
		{"bad flag", "name: x\nregistrations:\n  - {name: c, keyspec: /c, category: config, flags: [loud]}\nsteps: [{op: drain}]", "unknown registration flag"},
		{"duplicate reg", "name: x\nregistrations:\n  - {name: c, keyspec: /c, category: config}\n  - {name: c, keyspec: /d, category: config}\nsteps: [{op: drain}]", "duplicate name"},
		{"unknown op", "name: x" + reg + "steps: [{op: upsert, reg: cars}]", "unknown op"},
		{"unknown reg", "name: x" + reg + "steps: [{op: get, reg: trucks}]", "unknown registration"},
		{"begin without xact", "name: x" + reg + "steps: [{op: begin}]", "begin needs xact"},
		{"create without message", "name: x" + reg + "steps: [{op: create, reg: cars}]", "create needs a message"},
		{"at and minikey", "name: x" + reg + "steps: [{op: get, reg: cars, at: /car, minikey: [a]}]", "exclusive"},
		{"publish without at", "name: x" + reg + "steps: [{op: publish, reg: cars, message: {}}]", "publish needs at"},
		{"async get", "name: x" + reg + "steps: [{op: get, reg: cars, async: true}]", "cannot be async"},
		{"bad assertion", "name: x" + reg + "steps: [{op: drain}]\nassertions: [{type: exists}]", "unknown assertion type"},
		{"assertion without at", "name: x" + reg + "steps: [{op: drain}]\nassertions: [{type: object, reg: cars}]", "object needs at"},
		{"assertion reg", "name: x" + reg + "steps: [{op: drain}]\nassertions: [{type: count, reg: trucks}]", "unknown registration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
