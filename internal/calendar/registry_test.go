package calendar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "workdays.yaml"), []byte(`
name: workdays
days: ["monday", "tuesday", "wednesday", "thursday", "friday"]
`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "weekend.yml"), []byte(`
name: weekend
days: ["saturday", "sunday"]
`), 0o644))

	// Write a non-YAML file that should be ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	reg := NewRegistry()
	require.NoError(t, reg.LoadDir(dir))

	work := reg.Get("workdays")
	require.NotNil(t, work)
	assert.Equal(t, "workdays", work.Name)
	assert.Len(t, work.Days, 5)

	weekend := reg.Get("weekend")
	require.NotNil(t, weekend)
	assert.Equal(t, []string{"saturday", "sunday"}, weekend.Days)

	assert.Equal(t, []string{"weekend", "workdays"}, reg.Names())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Get("nonexistent"))
}

func TestRegistry_LoadFile_NoName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`days: ["saturday"]`), 0o644))

	reg := NewRegistry()
	err := reg.LoadFile(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestRegistry_LoadFile_BadWeekday(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: odd\ndays: [\"funday\"]\n"), 0o644))

	reg := NewRegistry()
	err := reg.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "odd")
	assert.Nil(t, reg.Get("odd"))
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&types.Calendar{Name: "mid", Days: []string{"wednesday"}}))
	assert.Error(t, reg.Register(&types.Calendar{Days: []string{"monday"}}))

	cal := reg.Get("mid")
	require.NotNil(t, cal)
	set, err := types.ParseWeekdays(cal.Days)
	require.NoError(t, err)
	assert.Equal(t, types.NewWeekdaySet(3), set)
}

func TestRegistry_LoadDir_MissingDir(t *testing.T) {
	reg := NewRegistry()
	err := reg.LoadDir("/nonexistent/path")
	assert.Error(t, err)
}
