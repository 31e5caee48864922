package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.YAML"), []byte("x"), 0644))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.YAML"),
	}, files)

	single, err := Discover(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, single)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunSuite_Fixtures(t *testing.T) {
	res, err := RunSuite(context.Background(), filepath.Join("testdata", "scenarios"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Passed, "failures: %+v", res.Failures)
	assert.Empty(t, res.Failures)
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(minimalScenario+`
  - type: journal_count
    count: 7
`), 0644))

	res, err := RunSuite(context.Background(), dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0, res.Passed)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "broken.yaml", res.Failures[0].Scenario)
	assert.Contains(t, res.Failures[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "minimal", res.Failures[1].Scenario)
	assert.Contains(t, res.Failures[1].Errors[0], "7 journaled operations")
}
