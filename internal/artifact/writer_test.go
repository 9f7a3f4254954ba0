package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rhellums/gfs-pull/internal/types"
)

func testDate() time.Time {
	return time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC)
}

func testGrid() *mat.Dense {
	grid := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			grid.Set(i, j, float64(i*100+j))
		}
	}
	return grid
}

func TestWriter_Path(t *testing.T) {
	plain := NewWriter("/var/data", false)
	assert.Equal(t,
		"/var/data/20231027/gfs.t06z.pgrb2.1p00.f012_2_metre_temperature.npy",
		plain.Path(testDate(), "gfs.t06z.pgrb2.1p00.f012", "2_metre_temperature"))

	compressed := NewWriter("/var/data", true)
	assert.Equal(t,
		"/var/data/20231027/gfs.t06z.pgrb2.1p00.f012_2_metre_temperature.npy.zst",
		compressed.Path(testDate(), "gfs.t06z.pgrb2.1p00.f012", "2_metre_temperature"))
}

func TestWriter_Write_RoundTrip(t *testing.T) {
	w := NewWriter(t.TempDir(), false)
	grid := testGrid()

	path, err := w.Write(testDate(), "gfs.t06z.pgrb2.1p00.f012", "surface_pressure", grid)
	require.NoError(t, err)
	assert.Equal(t, w.Path(testDate(), "gfs.t06z.pgrb2.1p00.f012", "surface_pressure"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got mat.Dense
	require.NoError(t, npyio.Read(f, &got))
	assert.True(t, mat.Equal(grid, &got))
}

func TestWriter_Write_CompressedRoundTrip(t *testing.T) {
	w := NewWriter(t.TempDir(), true)
	grid := testGrid()

	path, err := w.Write(testDate(), "gfs.t06z.pgrb2.1p00.f012", "surface_pressure", grid)
	require.NoError(t, err)
	assert.Equal(t, ".zst", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var got mat.Dense
	require.NoError(t, npyio.Read(zr, &got))
	assert.True(t, mat.Equal(grid, &got))
}

func TestWriter_Write_OverwritesPriorArtifact(t *testing.T) {
	w := NewWriter(t.TempDir(), false)

	first := testGrid()
	path1, err := w.Write(testDate(), "gfs.t06z.pgrb2.1p00.f012", "surface_pressure", first)
	require.NoError(t, err)

	second := testGrid()
	second.Set(0, 0, 42)
	path2, err := w.Write(testDate(), "gfs.t06z.pgrb2.1p00.f012", "surface_pressure", second)
	require.NoError(t, err)
	require.Equal(t, path1, path2)

	f, err := os.Open(path2)
	require.NoError(t, err)
	defer f.Close()

	var got mat.Dense
	require.NoError(t, npyio.Read(f, &got))
	assert.Equal(t, 42.0, got.At(0, 0), "a re-run must replace the prior artifact")
}

func TestWriter_Write_CreatesDateDirectory(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, false)

	_, err := w.Write(testDate(), "gfs.t00z.pgrb2.1p00.f000", "geopotential_height_500", testGrid())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "20231027"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriter_Write_UnwritableRoot(t *testing.T) {
	// A file where the root directory should be makes MkdirAll fail.
	blocked := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	w := NewWriter(blocked, false)
	_, err := w.Write(testDate(), "gfs.t00z.pgrb2.1p00.f000", "surface_pressure", testGrid())
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeArtifactWrite))
}
