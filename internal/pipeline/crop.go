package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rhellums/gfs-pull/internal/types"
)

// Crop returns the minimal rectangular sub-grid of field covering bounds.
//
// Preconditions: field, lats and lons share one shape; lats varies only along
// rows and lons only along columns (the regular lat/lon grids GFS produces).
// The row range is the contiguous inclusive span of rows whose latitude falls
// within [LatMin, LatMax]; the column range likewise for longitude. Bounds
// exactly equal to a grid coordinate include that row or column.
//
// If no row or no column satisfies its bound, Crop returns a no-data-in-bounds
// error rather than an empty matrix.
func Crop(field, lats, lons *mat.Dense, bounds types.GeoBounds) (*mat.Dense, error) {
	rows, cols := field.Dims()

	rowMin, rowMax := -1, -1
	for i := 0; i < rows; i++ {
		lat := lats.At(i, 0)
		if lat >= bounds.LatMin && lat <= bounds.LatMax {
			if rowMin < 0 {
				rowMin = i
			}
			rowMax = i
		}
	}

	colMin, colMax := -1, -1
	for j := 0; j < cols; j++ {
		lon := lons.At(0, j)
		if lon >= bounds.LonMin && lon <= bounds.LonMax {
			if colMin < 0 {
				colMin = j
			}
			colMax = j
		}
	}

	if rowMin < 0 || colMin < 0 {
		return nil, types.NewAppError(types.ErrCodeNoDataInBounds,
			fmt.Sprintf("bounds [%g,%g]x[%g,%g] select no grid points",
				bounds.LatMin, bounds.LatMax, bounds.LonMin, bounds.LonMax), nil)
	}

	sub := field.Slice(rowMin, rowMax+1, colMin, colMax+1)
	return mat.DenseCopyOf(sub), nil
}
