package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rhellums/gfs-pull/internal/types"
)

// syntheticGrid builds a rows x cols regular grid. Latitudes descend from
// latTop by latStep per row; longitudes ascend from lonLeft by lonStep per
// column. Field values encode their position as row*1000+col so slices are
// easy to verify.
func syntheticGrid(rows, cols int, latTop, latStep, lonLeft, lonStep float64) (field, lats, lons *mat.Dense) {
	field = mat.NewDense(rows, cols, nil)
	lats = mat.NewDense(rows, cols, nil)
	lons = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			field.Set(i, j, float64(i*1000+j))
			lats.Set(i, j, latTop-float64(i)*latStep)
			lons.Set(i, j, lonLeft+float64(j)*lonStep)
		}
	}
	return field, lats, lons
}

func TestCrop_SelectsExpectedRectangle(t *testing.T) {
	// Latitudes 90..-90 by 10 (19 rows), longitudes 0..350 by 10 (36 cols).
	field, lats, lons := syntheticGrid(19, 36, 90, 10, 0, 10)

	got, err := Crop(field, lats, lons, types.GeoBounds{
		LatMin: 15, LatMax: 60,
		LonMin: 220, LonMax: 305,
	})
	require.NoError(t, err)

	// Rows with lat in [15,60]: lats 60,50,40,30,20 -> rows 3..7.
	// Cols with lon in [220,305]: lons 220..300 -> cols 22..30.
	rows, cols := got.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 9, cols)
	assert.Equal(t, float64(3*1000+22), got.At(0, 0))
	assert.Equal(t, float64(7*1000+30), got.At(rows-1, cols-1))
}

func TestCrop_BoundaryValuesAreInclusive(t *testing.T) {
	field, lats, lons := syntheticGrid(19, 36, 90, 10, 0, 10)

	// Bounds landing exactly on grid coordinates must include those rows/cols.
	got, err := Crop(field, lats, lons, types.GeoBounds{
		LatMin: 20, LatMax: 60,
		LonMin: 220, LonMax: 300,
	})
	require.NoError(t, err)

	rows, cols := got.Dims()
	assert.Equal(t, 5, rows, "rows for lats 60,50,40,30,20")
	assert.Equal(t, 9, cols, "cols for lons 220..300")
	assert.Equal(t, 60.0, lats.At(3, 0))
	assert.Equal(t, float64(3*1000+22), got.At(0, 0))
}

func TestCrop_SingleRowSingleColumn(t *testing.T) {
	field, lats, lons := syntheticGrid(19, 36, 90, 10, 0, 10)

	got, err := Crop(field, lats, lons, types.GeoBounds{
		LatMin: 40, LatMax: 40,
		LonMin: 100, LonMax: 100,
	})
	require.NoError(t, err)

	rows, cols := got.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, float64(5*1000+10), got.At(0, 0))
}

func TestCrop_NoDataInBounds(t *testing.T) {
	field, lats, lons := syntheticGrid(19, 36, 90, 10, 0, 10)

	tests := []struct {
		name   string
		bounds types.GeoBounds
	}{
		{"latitude band between grid rows", types.GeoBounds{LatMin: 12, LatMax: 14, LonMin: 0, LonMax: 360}},
		{"longitude band outside grid", types.GeoBounds{LatMin: -90, LatMax: 90, LonMin: 353, LonMax: 359}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(field, lats, lons, tt.bounds)
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.ErrCodeNoDataInBounds), "got %v", err)
		})
	}
}

func TestCrop_CopyDoesNotAliasSource(t *testing.T) {
	field, lats, lons := syntheticGrid(19, 36, 90, 10, 0, 10)

	got, err := Crop(field, lats, lons, types.GeoBounds{
		LatMin: 15, LatMax: 60, LonMin: 220, LonMax: 305,
	})
	require.NoError(t, err)

	field.Set(3, 22, -1)
	assert.Equal(t, float64(3*1000+22), got.At(0, 0), "cropped result must be an independent copy")
}
