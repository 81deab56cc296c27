package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   project/      (.nbform/)
	//     lab/
	//       runs/
	//   scratch/
	base := t.TempDir()
	project := filepath.Join(base, "project")
	runs := filepath.Join(project, "lab", "runs")
	scratch := filepath.Join(base, "scratch")

	require.NoError(t, os.MkdirAll(runs, 0755))
	require.NoError(t, os.MkdirAll(scratch, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(project, ".nbform"), 0755))

	cases := map[string]struct {
		start string
		want  string
	}{
		"At Root":      {start: project, want: project},
		"One Level In": {start: filepath.Join(project, "lab"), want: project},
		"Deep":         {start: runs, want: project},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := FindRoot(tc.start)
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tc.want), filepath.Clean(got))
		})
	}

	t.Run("Not Found", func(t *testing.T) {
		_, err := FindRoot(scratch)
		assert.Error(t, err)
	})
}

func TestFindRoot_ConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("strict: true\n"), 0644))

	got, err := FindRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), filepath.Clean(got))
}

func TestFindRoot_NearestWins(t *testing.T) {
	outer := t.TempDir()
	inner := filepath.Join(outer, "inner")
	require.NoError(t, os.MkdirAll(filepath.Join(inner, "deep"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(outer, ".nbform"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inner, ConfigFile), nil, 0644))

	got, err := FindRoot(filepath.Join(inner, "deep"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(inner), filepath.Clean(got))
}

func TestFindRoot_MarkerMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".nbform"), nil, 0644))

	// A marker above the temp dir may exist on the host; only root itself is checked.
	got, err := FindRoot(root)
	if err == nil {
		assert.NotEqual(t, filepath.Clean(root), filepath.Clean(got))
	}
}
