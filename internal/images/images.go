// Package images stores uploaded artwork and product photos in an S3
// bucket and hands back a public URL plus an opaque public id.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	MaxUploadBytes = 10 << 20
	keyPrefix      = "uploads/"
)

var (
	ErrTooLarge        = errors.New("image exceeds the 10MB limit")
	ErrNotImage        = errors.New("only JPEG, PNG, GIF and WebP images are allowed")
	ErrEmpty           = errors.New("image is empty")
	ErrInvalidPublicID = errors.New("invalid public id")
	ErrNotConfigured   = errors.New("image storage not configured")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var publicIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|png|gif|webp)$`)

type Uploaded struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Detect sniffs the content type and enforces the size ceiling.
func Detect(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", ErrNotImage
	}
	return contentType, nil
}

func ValidPublicID(publicID string) bool {
	return publicIDPattern.MatchString(publicID)
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client  objectAPI
	bucket  string
	baseURL string
}

// NewS3Store builds a store. baseURL is the public prefix objects are served
// from; when empty the virtual-hosted bucket URL is used.
func NewS3Store(client *s3.Client, bucket, region, baseURL string) *S3Store {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *S3Store) Upload(ctx context.Context, data []byte) (*Uploaded, error) {
	if s.bucket == "" {
		return nil, ErrNotConfigured
	}
	contentType, err := Detect(data)
	if err != nil {
		return nil, err
	}

	publicID := uuid.NewString() + extensions[contentType]
	key := keyPrefix + publicID
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &Uploaded{URL: s.baseURL + "/" + key, PublicID: publicID}, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if s.bucket == "" {
		return ErrNotConfigured
	}
	if !ValidPublicID(publicID) {
		return ErrInvalidPublicID
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(keyPrefix + publicID),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
