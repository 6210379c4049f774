// Package s3store keeps book thumbnails in an S3 bucket, one object per owner and book.
package s3store

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // S3 ETags of single-part uploads are MD5 digests
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
)

const (
	logMsgImageUnchanged = "thumbnail unchanged, upload skipped"
	logMsgImageSaved     = "thumbnail saved"
	logMsgImageDeleted   = "thumbnail deleted"

	logAttrKey = "key"
)

var (
	// ErrNilAPI is returned when no S3 client is given.
	ErrNilAPI = errors.New("s3 client must not be nil")

	// ErrEmptyBucket is returned when no bucket is configured.
	ErrEmptyBucket = errors.New("bucket must not be empty")

	// ErrEmptyOwner is returned when an image is addressed without owner.
	ErrEmptyOwner = errors.New("owner id must not be empty")

	// ErrS3RequestFailed wraps errors of the S3 API.
	ErrS3RequestFailed = errors.New("s3 request failed")
)

// API is the subset of the S3 client the store uses. *s3.Client satisfies it.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewClient builds an S3 client. A non-empty endpoint replaces the regional one and switches
// to path-style addressing, which local stacks need.
func NewClient(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// Store implements postgresengine.ThumbnailStore on S3.
type Store struct {
	api    API
	bucket string
	prefix string
	logger catalog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithKeyPrefix sets the key prefix all thumbnails live under.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) error {
		s.prefix = strings.Trim(prefix, "/")
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger catalog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// New creates a Store for the bucket.
func New(api API, bucket string, options ...Option) (*Store, error) {
	if api == nil {
		return nil, ErrNilAPI
	}

	if bucket == "" {
		return nil, ErrEmptyBucket
	}

	s := &Store{api: api, bucket: bucket}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Key is the object key of the thumbnail of an owner's book.
func (s *Store) Key(ownerID string, bookID uuid.UUID) string {
	key := fmt.Sprintf("user.%s/book.%s", ownerID, bookID)
	if s.prefix == "" {
		return key
	}

	return s.prefix + "/" + key
}

// SaveImage uploads the image unless the stored object already has the same content.
func (s *Store) SaveImage(ctx context.Context, ownerID string, bookID uuid.UUID, data []byte) error {
	if ownerID == "" {
		return ErrEmptyOwner
	}

	key := s.Key(ownerID, bookID)

	existing, err := s.etag(ctx, key)
	if err != nil {
		return err
	}

	digest := md5.Sum(data) //nolint:gosec // content fingerprint, not a security boundary
	if existing == hex.EncodeToString(digest[:]) {
		s.debug(logMsgImageUnchanged, logAttrKey, key)
		return nil
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return errors.Join(ErrS3RequestFailed, err)
	}

	s.debug(logMsgImageSaved, logAttrKey, key)

	return nil
}

// GetImage downloads the image. A missing object yields nil data and no error.
func (s *Store) GetImage(ctx context.Context, ownerID string, bookID uuid.UUID) ([]byte, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(ownerID, bookID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil
		}

		return nil, errors.Join(ErrS3RequestFailed, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Join(ErrS3RequestFailed, err)
	}

	return data, nil
}

// DeleteImage removes the image. Deleting a missing object succeeds.
func (s *Store) DeleteImage(ctx context.Context, ownerID string, bookID uuid.UUID) error {
	if ownerID == "" {
		return ErrEmptyOwner
	}

	key := s.Key(ownerID, bookID)

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Join(ErrS3RequestFailed, err)
	}

	s.debug(logMsgImageDeleted, logAttrKey, key)

	return nil
}

// etag returns the unquoted ETag of the object, or "" when there is none.
func (s *Store) etag(ctx context.Context, key string) (string, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return "", nil
		}

		return "", errors.Join(ErrS3RequestFailed, err)
	}

	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
