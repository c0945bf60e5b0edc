package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadKind selects the folder and the accepted content types of an upload.
type UploadKind string

const (
	UploadDonorPhoto       UploadKind = "donor_photo"
	UploadHospitalDocument UploadKind = "hospital_document"
)

const presignExpiry = 15 * time.Minute

var (
	ErrUnknownUploadKind  = errors.New("unknown upload kind")
	ErrContentTypeDenied  = errors.New("content type is not allowed for this upload")
	ErrFileTooLarge       = errors.New("file is too large")
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

type uploadRule struct {
	folder  string
	types   []string
	maxSize int64
}

var uploadRules = map[UploadKind]uploadRule{
	UploadDonorPhoto: {
		folder:  "donor-photos",
		types:   []string{"image/jpeg", "image/png", "image/webp"},
		maxSize: 5 << 20,
	},
	UploadHospitalDocument: {
		folder:  "hospital-documents",
		types:   []string{"image/jpeg", "image/png", "application/pdf"},
		maxSize: 10 << 20,
	},
}

// Presigner hands out direct-to-bucket upload URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, kind UploadKind, userID uint, filename, contentType string, size int64) (*PresignedURLResponse, error)
}

type PresignedURLResponse struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		// environment, shared config or instance role
		cfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// CheckUpload validates kind, content type and size without touching S3.
func CheckUpload(kind UploadKind, contentType string, size int64) error {
	_, err := checkUpload(kind, contentType, size)
	return err
}

func checkUpload(kind UploadKind, contentType string, size int64) (uploadRule, error) {
	rule, ok := uploadRules[kind]
	if !ok {
		return uploadRule{}, ErrUnknownUploadKind
	}
	allowed := false
	for _, t := range rule.types {
		if strings.EqualFold(contentType, t) {
			allowed = true
			break
		}
	}
	if !allowed {
		return uploadRule{}, fmt.Errorf("%w: %s", ErrContentTypeDenied, contentType)
	}
	if size > rule.maxSize {
		return uploadRule{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, rule.maxSize)
	}
	return rule, nil
}

// ObjectKey is folder/<user id>/<uuid><ext>.
func ObjectKey(folder string, userID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d/%s%s", folder, userID, uuid.New().String(), ext)
}

func (s *S3Storage) PresignUpload(ctx context.Context, kind UploadKind, userID uint, filename, contentType string, size int64) (*PresignedURLResponse, error) {
	rule, err := checkUpload(kind, contentType, size)
	if err != nil {
		return nil, err
	}
	key := ObjectKey(rule.folder, userID, filename)

	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedURLResponse{
		UploadURL: presignedReq.URL,
		FileURL:   s.fileURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(presignExpiry),
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}
