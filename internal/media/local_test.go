package media

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalUploadReturnsServableURL(t *testing.T) {
	uploader, err := NewLocalUploader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	res, err := uploader.Upload(context.Background(), UploadInput{
		Filename:    "room.jpg",
		ContentType: "image/jpeg",
		Body:        bytes.NewReader([]byte{0xff, 0xd8, 0xff, 0x00}),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.URL == "" {
		t.Fatal("uploaded file has no URL")
	}
	if !strings.HasPrefix(res.URL, "/media/") {
		t.Fatalf("URL = %q, want /media/ prefix", res.URL)
	}
	if filepath.Base(res.Key) != strings.TrimPrefix(res.URL, "/media/") {
		t.Fatalf("URL %q does not point at stored key %q", res.URL, res.Key)
	}
	if _, err := os.Stat(res.Key); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	req := httptest.NewRequest("GET", res.URL, nil)
	rec := httptest.NewRecorder()
	uploader.FileServer().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("file server status = %d", rec.Code)
	}
	if rec.Body.Len() != 4 {
		t.Fatalf("served %d bytes, want 4", rec.Body.Len())
	}
}
