// Package artifact persists extracted fields as NumPy .npy arrays under a
// date-keyed directory layout. Paths are derived deterministically from the
// source grid file's base name and the variable's output name, so re-running
// a date range overwrites prior artifacts in place.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/rhellums/gfs-pull/internal/types"
)

// Writer serializes 2-D float64 grids below a fixed root directory. The
// destination root is passed explicitly; nothing here depends on process-wide
// defaults.
type Writer struct {
	root     string
	compress bool
}

// NewWriter creates a Writer rooted at root. When compress is set, artifacts
// are zstd-compressed and carry a .npy.zst suffix.
func NewWriter(root string, compress bool) *Writer {
	return &Writer{root: root, compress: compress}
}

// Root returns the writer's destination root directory.
func (w *Writer) Root() string {
	return w.root
}

// Path returns the artifact destination for one (grid file, variable) pair:
// <root>/<YYYYMMDD>/<gridFileBase>_<outputName>.npy, with a .zst suffix when
// compression is enabled. The same path is used for cropped and full-grid
// output.
func (w *Writer) Path(date time.Time, gridFileBase, outputName string) string {
	name := fmt.Sprintf("%s_%s.npy", gridFileBase, outputName)
	if w.compress {
		name += ".zst"
	}
	return filepath.Join(w.root, date.Format(types.DateLayout), name)
}

// Write serializes grid to the deterministic path for (date, gridFileBase,
// outputName), creating the date directory if absent and overwriting any
// existing artifact. It returns the written path.
func (w *Writer) Write(date time.Time, gridFileBase, outputName string, grid *mat.Dense) (string, error) {
	dest := w.Path(date, gridFileBase, outputName)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", types.NewAppError(types.ErrCodeArtifactWrite,
			fmt.Sprintf("creating directory for %s", dest), err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeArtifactWrite,
			fmt.Sprintf("creating %s", dest), err)
	}

	err = w.encode(f, grid)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return "", types.NewAppError(types.ErrCodeArtifactWrite,
			fmt.Sprintf("writing %s", dest), err)
	}

	return dest, nil
}

func (w *Writer) encode(f *os.File, grid *mat.Dense) error {
	if !w.compress {
		return npyio.Write(f, grid)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := npyio.Write(zw, grid); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
