// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/panelforge/panelforge-backend/internal/config"
)

// StorageService stores episode page archives and cover art in S3. Without
// AWS credentials it falls back to local disk for development. The key it
// returns is the episode's content reference.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.AccessKeyID == "" {
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{s3Client: s3.New(sess), config: cfg}, nil
}

var allowedPageTypes = []string{".zip", ".cbz", ".pdf", ".png", ".jpg", ".jpeg", ".webp"}

const maxPageArchiveSize = 200 << 20 // 200 MiB

// UploadEpisodePages stores the page archive for an episode under the
// owning project's prefix and returns the content reference to record on
// the episode.
func (s *StorageService) UploadEpisodePages(file multipart.File, header *multipart.FileHeader, projectID int64) (*UploadResult, error) {
	if header.Size > maxPageArchiveSize {
		return nil, fmt.Errorf("file size %d exceeds the %d byte limit", header.Size, int64(maxPageArchiveSize))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowed := false
	for _, t := range allowedPageTypes {
		if ext == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("file type %s is not allowed", ext)
	}

	key := fmt.Sprintf("projects/%d/episodes/%s%s", projectID, uuid.NewString(), ext)

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if s.s3Client != nil {
		return s.uploadToS3(content, key, contentType)
	}
	return s.uploadToLocal(content, key, contentType)
}

func (s *StorageService) uploadToS3(content []byte, key, contentType string) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.AWS.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Reference: key,
		URL:       s.publicURL(key),
		Size:      int64(len(content)),
		MimeType:  contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(content []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join("uploads", key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &UploadResult{
		Reference: key,
		URL:       "/" + path,
		Size:      int64(len(content)),
		MimeType:  contentType,
	}, nil
}

// PresignedPageURL returns a short-lived download URL for a stored content
// reference. Local-mode references are served as static paths.
func (s *StorageService) PresignedPageURL(reference string, expiry time.Duration) (string, error) {
	if s.s3Client == nil {
		return "/" + filepath.Join("uploads", reference), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(reference),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return url, nil
}

func (s *StorageService) publicURL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return strings.TrimRight(s.config.AWS.CloudFrontURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

// DeleteObject removes a stored reference, used when an episode upload is
// replaced before publish.
func (s *StorageService) DeleteObject(reference string) error {
	if s.s3Client == nil {
		return os.Remove(filepath.Join("uploads", reference))
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(reference),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
