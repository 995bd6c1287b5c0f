// Package archive uploads generated partition images to S3 compatible storage.
package archive

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/pkg/log"
	"cloupeer.io/nvsprov/pkg/options"
)

// ImageObjectName is the object name of an archived image below its run prefix.
const ImageObjectName = "certs.bin"

type MinIOArchiver struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	timeout    time.Duration
}

var _ core.ImageArchiver = (*MinIOArchiver)(nil)

// NewMinIOArchiver creates an archiver for any S3 compatible endpoint.
func NewMinIOArchiver(opts *options.S3Options) (*MinIOArchiver, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOArchiver{
		client:     client,
		bucketName: opts.BucketName,
		region:     opts.Region,
		prefix:     opts.Prefix,
		timeout:    opts.Timeout,
	}, nil
}

// Archive uploads the image of one run and returns its object key.
func (a *MinIOArchiver) Archive(ctx context.Context, rec *core.Record, imagePath string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := ObjectKey(a.prefix, rec)
	info, err := a.client.FPutObject(ctx, a.bucketName, key, imagePath, minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: Metadata(rec),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Info("Partition image archived", "bucket", a.bucketName, "key", key, "size", info.Size)
	return key, nil
}

func (a *MinIOArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	log.Info("Bucket does not exist, creating...", "bucket", a.bucketName)
	if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey returns {prefix}/{device folder}/{run id}/certs.bin.
func ObjectKey(prefix string, rec *core.Record) string {
	folder := strings.ToLower(strings.ReplaceAll(rec.DeviceID, ":", ""))
	return path.Join(prefix, folder, rec.RunID, ImageObjectName)
}

// Metadata is stored with the object so an image can be traced to its run.
func Metadata(rec *core.Record) map[string]string {
	md := map[string]string{
		"run-id":    rec.RunID,
		"device-id": rec.DeviceID,
		"sha256":    rec.ImageSHA256,
	}
	if rec.HardwareVersion != "" {
		md["hardware-version"] = rec.HardwareVersion
	}
	return md
}
