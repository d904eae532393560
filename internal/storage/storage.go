// Package storage reads and writes dashboard source files in Google Cloud
// Storage. Objects are addressed with gs://bucket/path URIs.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Service is the object storage surface used by the loader and the CLI.
type Service interface {
	// Fetch downloads the object at uri and returns its bytes and generation.
	Fetch(ctx context.Context, uri string) ([]byte, int64, error)

	// Generation returns the current generation of the object at uri
	// without downloading it.
	Generation(ctx context.Context, uri string) (int64, error)

	// UploadFile uploads a local file to bucket under objectName.
	UploadFile(ctx context.Context, bucket, objectName, filePath string) error
}

// GCS is the Cloud Storage implementation of Service. It assumes
// Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS service with its own storage client.
func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// NewGCSWithClient wraps an existing storage client.
func NewGCSWithClient(client *storage.Client) *GCS {
	return &GCS{client: client}
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Fetch downloads the object bytes from the given gs:// URI.
func (g *GCS) Fetch(ctx context.Context, uri string) ([]byte, int64, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, 0, err
	}

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("Fetch: open object reader %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("Fetch: read object %s: %w", uri, err)
	}
	return data, r.Attrs.Generation, nil
}

// Generation returns the object's generation number. It changes on every
// overwrite, so it serves as a cache version.
func (g *GCS) Generation(ctx context.Context, uri string) (int64, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return 0, err
	}
	attrs, err := g.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("Generation: object attrs %s: %w", uri, err)
	}
	return attrs.Generation, nil
}

// UploadFile uploads a local file to a bucket under the given object name.
func (g *GCS) UploadFile(ctx context.Context, bucket, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = ContentType(filePath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename returns the last path element of a gs:// URI.
func Filename(uri string) string {
	_, object, err := ParseURI(uri)
	if err != nil {
		return ""
	}
	return path.Base(object)
}

// ContentType guesses the upload content type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
