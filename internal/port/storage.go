package port

import (
	"context"
	"io"
)

// UploadInput encapsulates the parameters needed to upload an object.
// FileName is the pre-sanitization receipt file name, kept as metadata.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	FileName    string
	Size        int64
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts cloud object storage operations. downloadName, when
// non-empty, sets the file name the presigned link serves the object under.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key, downloadName string, expirySeconds int64) (string, error)
}
