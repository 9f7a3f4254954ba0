// Package storage implements object-storage access for the retrieval
// pipeline. The pipeline needs exactly one operation: download a named object
// to a local path. The S3 implementation wraps calls in a circuit breaker so
// a dead upstream fails fast instead of burning a full timeout on every
// remaining retrieval unit.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker/v2"

	"github.com/rhellums/gfs-pull/internal/types"
)

// ObjectStore downloads a remote object to a local file path.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, localPath string) error
}

// S3GetClient abstracts the S3 GetObject operation for testability.
type S3GetClient interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ObjectStore implements ObjectStore using aws-sdk-go-v2.
type S3ObjectStore struct {
	client  S3GetClient
	breaker *gobreaker.CircuitBreaker[*s3.GetObjectOutput]
	timeout time.Duration
	logger  *slog.Logger
}

// NewS3ObjectStore creates an S3-backed store. timeout bounds each download;
// zero disables the deadline. The breaker trips after more than five
// consecutive failures and recovers after 30 seconds, mirroring the settings
// used for the platform's other upstream clients. Missing objects do not
// count as failures: GFS publishes lead hours incrementally, so runs of
// absent keys are routine and must not shut out later retrievals whose
// objects exist.
func NewS3ObjectStore(client S3GetClient, timeout time.Duration, logger *slog.Logger) *S3ObjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[*s3.GetObjectOutput](gobreaker.Settings{
		Name:        "s3-download",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isObjectMissing(err)
		},
	})
	return &S3ObjectStore{
		client:  client,
		breaker: cb,
		timeout: timeout,
		logger:  logger,
	}
}

// isObjectMissing reports whether err means the requested object does not
// exist, as opposed to a transport or availability failure.
func isObjectMissing(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Download fetches bucket/key and streams it to localPath, creating parent
// directories as needed. A partial file left by a failed transfer is removed;
// the caller never observes a truncated grid file. All failures are reported
// as transfer errors, including a fast-fail while the breaker is open.
func (s *S3ObjectStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.breaker.Execute(func() (*s3.GetObjectOutput, error) {
		return s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.NewAppError(types.ErrCodeTransferCircuitOpen,
				fmt.Sprintf("download of s3://%s/%s rejected: upstream circuit open", bucket, key), err)
		}
		return types.NewAppError(types.ErrCodeTransferFailed,
			fmt.Sprintf("downloading s3://%s/%s", bucket, key), err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return types.NewAppError(types.ErrCodeTransferFailed,
			fmt.Sprintf("creating directory for %s", localPath), err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return types.NewAppError(types.ErrCodeTransferFailed,
			fmt.Sprintf("creating %s", localPath), err)
	}

	written, err := io.Copy(f, out.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		return types.NewAppError(types.ErrCodeTransferFailed,
			fmt.Sprintf("writing s3://%s/%s to %s", bucket, key, localPath), err)
	}

	s.logger.DebugContext(ctx, "object downloaded",
		"bucket", bucket,
		"key", key,
		"bytes", written,
	)
	return nil
}
