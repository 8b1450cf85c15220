// Package archive keeps a write-once copy of populate results in
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
)

// ObjectAPI is the subset of *minio.Client the sink needs.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ ObjectAPI = (*minio.Client)(nil)

// Sink writes populate payloads under populate/<city>/<type>.json.
type Sink struct {
	api    ObjectAPI
	bucket string
}

// New creates a Sink over api.
func New(api ObjectAPI, bucket string) *Sink {
	return &Sink{api: api, bucket: bucket}
}

// NewFromConfig connects a minio client from the archive config.
func NewFromConfig(cfg config.ArchiveConfig) (*Sink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "archive: create client")
	}
	return New(client, cfg.Bucket), nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *Sink) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return eris.Wrapf(err, "archive: check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return eris.Wrapf(err, "archive: create bucket %s", s.bucket)
	}
	zap.L().Info("archive: created bucket", zap.String("bucket", s.bucket))
	return nil
}

// Put stores payload for city and type. Existing objects are left alone
// and reported with written=false.
func (s *Sink) Put(ctx context.Context, city string, typ model.SearchType, payload []byte) (written bool, err error) {
	key := Key(city, typ)

	_, err = s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		zap.L().Debug("archive: object exists, skipping", zap.String("key", key))
		return false, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return false, eris.Wrapf(err, "archive: stat %s", key)
	}

	_, err = s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return false, eris.Wrapf(err, "archive: put %s", key)
	}
	return true, nil
}

// Key is the object key for a city and type.
func Key(city string, typ model.SearchType) string {
	return fmt.Sprintf("populate/%s/%s.json", Slug(city), typ)
}

// Slug lowercases city and joins its letter and digit runs with hyphens.
func Slug(city string) string {
	var b strings.Builder
	dash := false
	for _, r := range geo.NormalizeCity(city) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
