package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/matheus3301/chatroom/internal/config"
)

// putter is the subset of manager.Uploader S3 depends on.
type putter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 uploads into a publicly readable bucket.
type S3 struct {
	uploader      putter
	bucket        string
	region        string
	folder        string
	publicBaseURL string
}

// NewS3 loads AWS credentials from the default chain.
func NewS3(ctx context.Context, cfg config.UploadConfig, client *http.Client) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("upload.bucket is required for s3")
	}
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.Region)}
	if client != nil {
		opts = append(opts, awscfg.WithHTTPClient(client))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{
		uploader:      manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		folder:        cfg.Folder,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Upload stores the image at <folder>/<fileName>.
func (s *S3) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	key := path.Join(s.folder, fileName)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *S3) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicBaseURL != "" {
		return strings.TrimRight(s.publicBaseURL, "/") + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}
