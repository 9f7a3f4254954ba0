package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhellums/gfs-pull/internal/types"
)

type mockS3Client struct {
	getObjectFunc func(ctx context.Context, params *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	calls         int
	lastInput     *s3.GetObjectInput
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.calls++
	m.lastInput = params
	return m.getObjectFunc(ctx, params)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestS3ObjectStore_Download(t *testing.T) {
	payload := []byte("grib file contents")
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(payload))}, nil
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dest := filepath.Join(t.TempDir(), "20231027", "gfs.t06z.pgrb2.1p00.f012")

	err := store.Download(context.Background(), "noaa-gfs-bdp-pds", "gfs.20231027/06/atmos/gfs.t06z.pgrb2.1p00.f012", dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NotNil(t, client.lastInput)
	assert.Equal(t, "noaa-gfs-bdp-pds", *client.lastInput.Bucket)
	assert.Equal(t, "gfs.20231027/06/atmos/gfs.t06z.pgrb2.1p00.f012", *client.lastInput.Key)
}

func TestS3ObjectStore_Download_GetObjectError(t *testing.T) {
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, errors.New("NoSuchKey: the specified key does not exist")
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dest := filepath.Join(t.TempDir(), "missing.grib2")

	err := store.Download(context.Background(), "bucket", "key", dest)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeTransferFailed))
	assert.NoFileExists(t, dest)
}

func TestS3ObjectStore_Download_TruncatedBodyRemovesPartialFile(t *testing.T) {
	body := io.MultiReader(
		bytes.NewReader([]byte("partial data")),
		iotest.ErrReader(errors.New("connection reset by peer")),
	)
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(body)}, nil
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dest := filepath.Join(t.TempDir(), "truncated.grib2")

	err := store.Download(context.Background(), "bucket", "key", dest)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeTransferFailed))
	assert.NoFileExists(t, dest, "a truncated download must never be left behind")
}

func TestS3ObjectStore_Download_MissingObjectsDoNotTripCircuit(t *testing.T) {
	// Lead hours publish incrementally, so a long run of absent keys is
	// routine. Later objects that do exist must still download.
	payload := []byte("grib payload")
	calls := 0
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			calls++
			if calls <= 10 {
				return nil, &s3types.NoSuchKey{}
			}
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(payload))}, nil
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dir := t.TempDir()

	for i := 0; i < 10; i++ {
		err := store.Download(context.Background(), "bucket", "key", filepath.Join(dir, "missing.grib2"))
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTransferFailed),
			"missing object %d must fail its own unit, not the circuit", i+1)
	}

	dest := filepath.Join(dir, "present.grib2")
	err := store.Download(context.Background(), "bucket", "key", dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 11, client.calls, "every request must reach S3")
}

func TestS3ObjectStore_Download_WrappedNotFoundDoesNotTripCircuit(t *testing.T) {
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, fmt.Errorf("operation error S3: GetObject: %w", &s3types.NotFound{})
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dest := filepath.Join(t.TempDir(), "missing.grib2")

	for i := 0; i < 8; i++ {
		err := store.Download(context.Background(), "bucket", "key", dest)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTransferFailed))
		assert.False(t, types.HasCode(err, types.ErrCodeTransferCircuitOpen))
	}
	assert.Equal(t, 8, client.calls)
}

func TestS3ObjectStore_Download_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	client := &mockS3Client{
		getObjectFunc: func(_ context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		},
	}
	store := NewS3ObjectStore(client, 0, testLogger())
	dest := filepath.Join(t.TempDir(), "unreachable.grib2")

	// The breaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		err := store.Download(context.Background(), "bucket", "key", dest)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTransferFailed), "failure %d", i+1)
	}

	err := store.Download(context.Background(), "bucket", "key", dest)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeTransferCircuitOpen))
	assert.Equal(t, 6, client.calls, "an open circuit must fail fast without reaching S3")
}
