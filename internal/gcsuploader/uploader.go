package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// ReceiptPrefix is the object prefix under which receipt images are stored.
const ReceiptPrefix = "receipts"

// Archiver stores receipt images in a GCS bucket.
type Archiver struct {
	client *storage.Client
	bucket string
	now    func() time.Time
	newID  func() string
}

// NewArchiver opens a storage client. With no options Application Default
// Credentials are used.
func NewArchiver(ctx context.Context, bucket string, opts ...option.ClientOption) (*Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewArchiver: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: create storage client: %w", err)
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}

// Archive uploads data and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	objectName := ObjectName(userID, filename, a.now(), a.newID())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"user_id": userID, "filename": filename}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: write %s: %w", objectName, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize upload: %w", err)
	}
	return GCSURI(a.bucket, objectName), nil
}

// ObjectName builds receipts/{user}/{YYYY}/{MM}/{id}-{filename}. Path
// separators in the user ID or filename are flattened.
func ObjectName(userID, filename string, at time.Time, id string) string {
	clean := func(s string) string {
		s = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(s))
		if s == "" || s == "." || s == ".." {
			return "unnamed"
		}
		return s
	}
	return path.Join(
		ReceiptPrefix,
		clean(userID),
		at.UTC().Format("2006"),
		at.UTC().Format("01"),
		id+"-"+clean(filename),
	)
}
