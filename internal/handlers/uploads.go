package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// maxUploadBytes bounds multipart requests. Handlers wrap the body in
// http.MaxBytesReader with this cap and hand it to ParseMultipartForm as the
// memory threshold past which parts spill to temp files.
const maxUploadBytes = 256 << 20

// saveUpload copies a multipart file into dir under a collision-free name and
// returns the local path. The caller owns the temp file and removes it once
// the media store upload settles.
func saveUpload(dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(fh.Filename)
	dst := filepath.Join(dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create temp upload: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write temp upload: %w", err)
	}

	return dst, nil
}
