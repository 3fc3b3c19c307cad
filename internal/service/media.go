package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"

	"lumina/internal/config"
	"lumina/internal/logger"
	"lumina/internal/model"
)

// ObjectStore is where processed avatars are written.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
}

// R2Store is an ObjectStore on Cloudflare R2 through the S3 API.
type R2Store struct {
	client *s3.Client
	bucket string
}

// NewR2Store constructs an S3-compatible client for Cloudflare R2.
func NewR2Store(ctx context.Context, cfg *config.Config) (*R2Store, error) {
	if !cfg.MediaConfigured() {
		return nil, model.ErrMediaNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Store{client: client, bucket: cfg.R2BucketName}, nil
}

func (r *R2Store) PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(r.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// MediaService normalizes and stores profile avatars.
type MediaService struct {
	store     ObjectStore
	publicURL string
	rnd       Randomizer
	log       *logger.Logger
}

// NewMediaService returns a service writing to store. A nil store leaves
// uploads disabled; UploadAvatar then returns model.ErrMediaNotConfigured.
func NewMediaService(store ObjectStore, publicURL string, rnd Randomizer, log *logger.Logger) *MediaService {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MediaService{
		store:     store,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		rnd:       rnd,
		log:       log,
	}
}

// Enabled reports whether uploads have somewhere to go.
func (s *MediaService) Enabled() bool {
	return s.store != nil
}

// UploadAvatar enforces size/type, normalizes to a square JPEG and stores it
// under the device's folder.
func (s *MediaService) UploadAvatar(ctx context.Context, deviceID string, file io.Reader, size int64, contentType string) (*model.UploadResult, error) {
	if s.store == nil {
		return nil, model.ErrMediaNotConfigured
	}

	data, err := readAndValidateImage(file, size, contentType, model.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s%s", model.AvatarFolder, deviceID, s.rnd.NewID(), model.AvatarExt)
	if err := s.store.PutObject(ctx, key, jpegBytes, model.ContentTypeJPEG, model.AvatarCacheControl); err != nil {
		s.log.Error("[Media] UploadAvatar FAILED", "device_id", deviceID, "error", err)
		return nil, err
	}

	s.log.Info("[Media] UploadAvatar OK", "device_id", deviceID, "key", key, "bytes", len(jpegBytes))
	return &model.UploadResult{URL: fmt.Sprintf("%s/%s", s.publicURL, key), Key: key}, nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
// An empty content type is sniffed from the data.
func readAndValidateImage(file io.Reader, size int64, contentType string, maxSize int64) ([]byte, error) {
	if size > maxSize {
		return nil, model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, model.ErrFileTooLarge
	}

	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}
	return data, nil
}

// resizeToJPEG center-crops to the target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImageType, err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
