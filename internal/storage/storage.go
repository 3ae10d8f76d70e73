package storage

import (
	"context"
	"io"
)

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service stores post images in remote object storage and returns a URL
// the browser client can embed in a post.
type Service interface {
	UploadImage(ctx context.Context, body io.Reader, opts UploadOptions) (string, error)
}
