package grib

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"

	"gonum.org/v1/gonum/mat"

	"github.com/rhellums/gfs-pull/internal/types"
)

// Wgrib2 is an Opener backed by the wgrib2 command-line tool. Each Select
// spawns an independent wgrib2 process writing to its own temporary file, so
// one source safely serves concurrent field queries.
type Wgrib2 struct {
	command string
	logger  *slog.Logger
}

// NewWgrib2 creates an Opener that invokes the given wgrib2 binary. The
// command is looked up in the system path on each invocation.
func NewWgrib2(command string, logger *slog.Logger) *Wgrib2 {
	if command == "" {
		command = "wgrib2"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wgrib2{command: command, logger: logger}
}

// Open parses the file's short inventory (wgrib2 -s) and returns a GridSource
// over it. Field data is not decoded until Select.
func (w *Wgrib2) Open(ctx context.Context, path string) (GridSource, error) {
	out, err := w.run(ctx, "-s", path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeDecodeOpen,
			fmt.Sprintf("wgrib2 inventory of %s failed", path), err)
	}
	inv, err := ParseInventory(bytes.NewReader(out))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeDecodeOpen,
			fmt.Sprintf("unreadable inventory for %s", path), err)
	}
	if len(inv) == 0 {
		return nil, types.NewAppError(types.ErrCodeDecodeOpen,
			fmt.Sprintf("empty grid file %s", path), nil)
	}
	w.logger.DebugContext(ctx, "parsed grid inventory", "path", path, "records", len(inv))
	return &wgrib2Source{wgrib2: w, path: path, inventory: inv}, nil
}

// run executes wgrib2 with the given arguments, returning stdout. Stderr is
// folded into the returned error.
func (w *Wgrib2) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, w.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", w.command, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", w.command, err)
	}
	return out, nil
}

// wgrib2Source is an open grid file with a parsed inventory.
type wgrib2Source struct {
	wgrib2    *Wgrib2
	path      string
	inventory Inventory
}

// Select decodes every inventory record matching the predicate. An empty
// result with a nil error means no record matched.
func (s *wgrib2Source) Select(ctx context.Context, pred Predicate) ([]Field, error) {
	var fields []Field
	for _, item := range s.inventory {
		if !item.Matches(pred) {
			continue
		}
		f, err := s.decodeRecord(ctx, item.Record)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeDecodeFailed,
				fmt.Sprintf("decoding record %d (%s %s) of %s", item.Record, item.Var, item.Level, s.path), err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Close releases the source. The wgrib2 backend holds no persistent handle;
// the transient file's lifecycle belongs to the retrieval unit.
func (s *wgrib2Source) Close() error {
	return nil
}

// decodeRecord dumps one record's values to a temporary binary file and
// reconstructs the coordinate grids from the wgrib2 grid description.
// Values are requested in west-to-east, north-to-south order so row 0 is the
// northernmost latitude, matching GridSpec.LatLonGrids.
func (s *wgrib2Source) decodeRecord(ctx context.Context, record int) (Field, error) {
	tmp, err := os.CreateTemp("", "gfs-pull-*.bin")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	out, err := s.wgrib2.run(ctx, s.path,
		"-d", fmt.Sprint(record),
		"-grid",
		"-order", "we:ns",
		"-no_header",
		"-bin", tmpPath,
	)
	if err != nil {
		return nil, err
	}

	spec, err := ParseGridSpec(string(out))
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, err
	}
	want := spec.Nx * spec.Ny * 4
	if len(raw) != want {
		return nil, fmt.Errorf("binary dump is %d bytes, want %d for %dx%d grid",
			len(raw), want, spec.Nx, spec.Ny)
	}

	// wgrib2 -no_header -bin writes packed native float32s.
	vals := make([]float64, spec.Nx*spec.Ny)
	for i := range vals {
		bits := binary.NativeEndian.Uint32(raw[i*4:])
		vals[i] = float64(math.Float32frombits(bits))
	}

	lats, lons := spec.LatLonGrids()
	return &denseField{
		values: mat.NewDense(spec.Ny, spec.Nx, vals),
		lats:   lats,
		lons:   lons,
	}, nil
}

// denseField is a fully materialized Field.
type denseField struct {
	values *mat.Dense
	lats   *mat.Dense
	lons   *mat.Dense
}

func (f *denseField) Values() *mat.Dense {
	return f.values
}

func (f *denseField) LatLons() (lats, lons *mat.Dense) {
	return f.lats, f.lons
}
