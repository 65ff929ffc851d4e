package media

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// ErrUploaderDisabled indicates that uploads are not currently enabled.
var ErrUploaderDisabled = errors.New("media uploader disabled")

// UploadInput wraps the payload required for persisting a file.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// UploadResult captures the canonical object key and its accessible URL.
type UploadResult struct {
	Key string
	URL string
}

// Uploader hides the backing implementation for storing design images.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (UploadResult, error)
}

// UploadImage stores raw image bytes, the shape design saves produce.
func UploadImage(ctx context.Context, u Uploader, filename, contentType string, data []byte) (UploadResult, error) {
	if u == nil {
		return UploadResult{}, ErrUploaderDisabled
	}
	return u.Upload(ctx, UploadInput{
		Filename:    filename,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
}

type disabledUploader struct{}

func (disabledUploader) Upload(_ context.Context, _ UploadInput) (UploadResult, error) {
	return UploadResult{}, ErrUploaderDisabled
}

// Disabled returns an uploader that always signals disabled uploads.
func Disabled() Uploader {
	return disabledUploader{}
}
