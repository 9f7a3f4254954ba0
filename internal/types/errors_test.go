package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeTransferFailed, "object missing", nil)
	assert.Equal(t, "transfer_failed: object missing", err.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewAppError(ErrCodeTransferFailed, "download failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithDetails(t *testing.T) {
	base := NewAppError(ErrCodeArtifactWrite, "write failed", nil).
		WithDetails(map[string]any{"path": "/data/a.npy"})
	enriched := base.WithDetails(map[string]any{"variable": "surface_pressure"})

	assert.Equal(t, map[string]any{"path": "/data/a.npy"}, base.Details, "original must not be mutated")
	assert.Equal(t, map[string]any{
		"path":     "/data/a.npy",
		"variable": "surface_pressure",
	}, enriched.Details)
	assert.Equal(t, base.Code, enriched.Code)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "direct app error",
			err:  NewAppError(ErrCodeDecodeFailed, "bad record", nil),
			want: ErrCodeDecodeFailed,
		},
		{
			name: "wrapped app error",
			err:  fmt.Errorf("running unit: %w", NewAppError(ErrCodeCleanupFailed, "delete failed", nil)),
			want: ErrCodeCleanupFailed,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
			want: "",
		},
		{
			name: "nil",
			err:  nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := NewAppError(ErrCodeNoDataInBounds, "empty window", nil)
	require.True(t, HasCode(err, ErrCodeNoDataInBounds))
	assert.False(t, HasCode(err, ErrCodeFieldNotFound))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeNoDataInBounds))
}
