// Package archive stores gzipped snapshots of each fetched crash batch in an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/config"
	"github.com/couchcryptid/crash-data-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const keyPrefix = "raw"

// objectStore is the subset of *minio.Client the archiver needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver writes raw batches to object storage.
// It implements pipeline.Archiver.
type Archiver struct {
	store  objectStore
	bucket string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewArchiver connects to the configured endpoint and makes sure the bucket exists.
func NewArchiver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Archiver, error) {
	cli, err := minio.New(cfg.ArchiveEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, ""),
		Secure: cfg.ArchiveSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	a := &Archiver{store: cli, bucket: cfg.ArchiveBucket, clock: clockwork.NewRealClock(), logger: logger}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("archive bucket created", "bucket", a.bucket)
	return nil
}

// Archive uploads the batch as raw/<YYYY-MM-DD>/<runID>.json.gz.
func (a *Archiver) Archive(ctx context.Context, runID string, records []domain.RawIncident) error {
	body, err := gzipJSON(records)
	if err != nil {
		return err
	}
	key := objectKey(a.clock.Now(), runID)

	info, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:     "application/json",
		ContentEncoding: "gzip",
		UserMetadata: map[string]string{
			"run-id":  runID,
			"records": strconv.Itoa(len(records)),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	a.logger.Info("raw batch archived", "bucket", a.bucket, "key", key, "bytes", info.Size, "records", len(records))
	return nil
}

func objectKey(now time.Time, runID string) string {
	return path.Join(keyPrefix, now.UTC().Format("2006-01-02"), runID+".json.gz")
}

func gzipJSON(records []domain.RawIncident) ([]byte, error) {
	if records == nil {
		records = []domain.RawIncident{}
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(records); err != nil {
		return nil, fmt.Errorf("encode raw batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress raw batch: %w", err)
	}
	return buf.Bytes(), nil
}
