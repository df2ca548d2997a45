// Package upload sends chat images to an object store and returns their
// public URL.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/matheus3301/chatroom/internal/config"
)

// Uploader stores an image under fileName and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (url string, err error)
}

// HTTPError is a non-2xx response from the object store.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upload failed: status %d: %s", e.StatusCode, e.Body)
}

// Unavailable rejects every upload. The daemon uses it when the object
// store is not configured so text chat keeps working.
type Unavailable struct {
	Err error
}

func (u Unavailable) Upload(context.Context, string, []byte) (string, error) {
	return "", u.Err
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName builds "<unix-ms>_<user name with whitespace runs replaced by _>.jpg".
func FileName(now time.Time, userName string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + whitespace.ReplaceAllString(userName, "_") + ".jpg"
}

// Prepare decodes an image, applies EXIF orientation, shrinks it to at most
// maxWidth pixels wide and re-encodes it as JPEG.
func Prepare(data []byte, maxWidth, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	if quality <= 0 || quality > 100 {
		quality = 70
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Open builds the Uploader selected by cfg.Backend.
func Open(ctx context.Context, cfg config.UploadConfig, client *http.Client) (Uploader, error) {
	switch cfg.Backend {
	case "cloudinary", "":
		if cfg.CloudName == "" {
			return nil, fmt.Errorf("upload.cloud_name is required for cloudinary")
		}
		return &Cloudinary{
			Client:       client,
			Endpoint:     cfg.Endpoint,
			CloudName:    cfg.CloudName,
			UploadPreset: cfg.UploadPreset,
			Folder:       cfg.Folder,
		}, nil
	case "s3":
		return NewS3(ctx, cfg, client)
	}
	return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
}
