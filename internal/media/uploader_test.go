package media

import (
	"context"
	"strings"
	"testing"

	"github.com/playtube/backend/internal/config"
)

func TestDetectContentType(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"avatar.png", "image/png"},
		{"clip.mp4", "video/mp4"},
		{"COVER.JPG", "image/jpeg"},
		{"notes", "application/octet-stream"},
		{"archive.unknownext", "application/octet-stream"},
	}

	for _, tc := range cases {
		got := DetectContentType(tc.name)
		// mime.TypeByExtension may append a charset parameter.
		if got != tc.want && !strings.HasPrefix(got, tc.want+";") {
			t.Errorf("DetectContentType(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error when bucket is missing")
	}
}

func TestPublicURL(t *testing.T) {
	withBase := &S3Store{baseURL: "https://cdn.example.com", folder: "playtube"}
	if got := withBase.publicURL("playtube/avatar.png"); got != "https://cdn.example.com/playtube/avatar.png" {
		t.Fatalf("unexpected public URL: %s", got)
	}

	withoutBase := &S3Store{folder: "playtube"}
	if got := withoutBase.publicURL("playtube/avatar.png"); got != "playtube/avatar.png" {
		t.Fatalf("expected bare key without base URL, got %s", got)
	}
}
