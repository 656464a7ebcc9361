package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/playtube/backend/internal/config"
)

// UploadResult describes a file hosted on the external media store.
type UploadResult struct {
	URL         string
	Key         string
	Size        int64
	ContentType string
}

// S3Store uploads local files to an S3-compatible bucket under a fixed
// logical folder. Uploads are a single attempt with no retry or backoff; on
// failure the local temp file is removed as cleanup.
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
	folder   string
}

// NewS3Store configures an uploader targeting the provided object store.
func NewS3Store(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("media store: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Store{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		folder:   strings.Trim(cfg.Folder, "/"),
	}, nil
}

// UploadFile pushes the file at localPath to the configured bucket and
// returns the hosted descriptor. When the upload fails the local temp file is
// deleted so the uploads directory does not accumulate orphans.
func (s *S3Store) UploadFile(ctx context.Context, localPath string) (UploadResult, error) {
	if strings.TrimSpace(localPath) == "" {
		return UploadResult{}, fmt.Errorf("media store: empty local path")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open upload %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat upload %s: %w", localPath, err)
	}

	key := path.Join(s.folder, filepath.Base(localPath))
	contentType := DetectContentType(localPath)

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		_ = os.Remove(localPath)
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
	}

	return UploadResult{
		URL:         s.publicURL(key),
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
	}, nil
}

func (s *S3Store) publicURL(key string) string {
	if s.baseURL == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

// DetectContentType resolves a MIME type from the file extension, falling
// back to application/octet-stream for unknown extensions.
func DetectContentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
