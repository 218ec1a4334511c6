package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSArchive mirrors result artifacts to a Cloud Storage bucket so runs
// from different machines land in one place.
type GCSArchive struct {
	client        *storage.Client
	bucket        string
	prefix        string
	localCacheDir string
}

func NewGCSArchive(ctx context.Context, bucket, prefix, localCacheDir string) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSArchive{
		client:        client,
		bucket:        bucket,
		prefix:        prefix,
		localCacheDir: localCacheDir,
	}, nil
}

func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Upload copies a local results file into the bucket under the archive
// prefix and returns the gs:// location.
func (a *GCSArchive) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open results file: %w", err)
	}
	defer func() { _ = f.Close() }()

	objectName := path.Join(a.prefix, filepath.Base(localPath))
	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload results file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload results file: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// List returns the names of archived result objects under the prefix.
func (a *GCSArchive) List(ctx context.Context) ([]string, error) {
	bkt := a.client.Bucket(a.bucket)
	query := &storage.Query{Prefix: a.prefix}

	var names []string
	it := bkt.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if strings.ToLower(filepath.Ext(attrs.Name)) == ".json" {
			names = append(names, attrs.Name)
		}
	}

	return names, nil
}

// Download fetches an archived object into the local cache directory and
// returns the local path. Already cached files are not fetched again.
func (a *GCSArchive) Download(ctx context.Context, objectName string) (string, error) {
	localPath := filepath.Join(a.localCacheDir, filepath.Base(objectName))

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := os.MkdirAll(a.localCacheDir, 0755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	obj := a.client.Bucket(a.bucket).Object(objectName)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	defer func() { _ = r.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("download object: %w", err)
	}

	return localPath, nil
}
