package template

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_HasEveryMode(t *testing.T) {
	c := Builtin()
	modes, err := c.Modes()
	require.NoError(t, err)
	assert.Equal(t, domain.AllModes, modes)

	for _, m := range domain.AllModes {
		entry, err := c.Load(m)
		require.NoError(t, err, m)
		require.NotNil(t, entry.Template, m)
		assert.Equal(t, string(m), entry.Template.DeclaredMode())
		assert.NotEmpty(t, entry.Readme)
		assert.Contains(t, entry.Files, FileName)
	}
}

func TestBuiltin_StandardStagesAndOutputs(t *testing.T) {
	entry, err := Builtin().Load(domain.ModeStandard)
	require.NoError(t, err)

	assert.Equal(t, []string{"user_stories", "tasks_planning", "test_design",
		"implementation", "testing", "review"}, entry.Template.StageIDs())
	assert.Equal(t, []string{"user_stories.md"}, entry.Template.Outputs("user_stories"))
	assert.Nil(t, entry.Template.Outputs("unknown"))
	require.NotNil(t, entry.Template.Quality)
	assert.Equal(t, 70, entry.Template.Quality.CodeCoverage)
}

func TestLoad_UnknownMode(t *testing.T) {
	c := NewCatalog(fstest.MapFS{}, "empty")
	_, err := c.Load(domain.ModeMinimal)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestModes_IgnoresUnknownDirectories(t *testing.T) {
	c := NewCatalog(fstest.MapFS{
		"standard/template.yaml": {Data: []byte("mode: standard\n")},
		"custom/template.yaml":   {Data: []byte("mode: custom\n")},
		"notes.txt":              {Data: []byte("hello")},
	}, "test")

	modes, err := c.Modes()
	require.NoError(t, err)
	assert.Equal(t, []domain.Mode{domain.ModeStandard}, modes)
}

func TestCopyTo_ClonesDirectory(t *testing.T) {
	c := NewCatalog(fstest.MapFS{
		"minimal/template.yaml":      {Data: []byte("mode: minimal\n")},
		"minimal/prompts/analyze.md": {Data: []byte("# analyze\n")},
	}, "test")

	dst := filepath.Join(t.TempDir(), ".aceflow")
	require.NoError(t, c.CopyTo(domain.ModeMinimal, dst))

	data, err := os.ReadFile(filepath.Join(dst, "template.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mode: minimal\n", string(data))

	data, err = os.ReadFile(filepath.Join(dst, "prompts", "analyze.md"))
	require.NoError(t, err)
	assert.Equal(t, "# analyze\n", string(data))
}

func TestOpen_FallsBackToBuiltin(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, "builtin", c.Source())

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "smart"), 0o755))
	c = Open(dir)
	assert.Equal(t, dir, c.Source())
	assert.True(t, c.Has(domain.ModeSmart))
	assert.False(t, c.Has(domain.ModeMinimal))
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"top level", "mode: complete\nflow:\n  mode: minimal\n", "complete"},
		{"flow fallback", "project:\n  name: x\nflow:\n  mode: smart\n", "smart"},
		{"quoted", "mode: \"standard\"\n", "standard"},
		{"absent", "project:\n  name: x\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMode([]byte(tc.doc))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseMode([]byte("mode: [unterminated"))
	assert.Error(t, err)
}
