package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// PutAPI is the slice of the S3 client the upload manager needs.
type PutAPI = manager.UploadAPIClient

type S3Store struct {
	uploader   *manager.Uploader
	bucket     string
	region     string
	endpoint   string
	prefix     string
	publicRead bool
	thumbWidth int
	maxBytes   int64
	log        *zap.Logger
}

type S3Options struct {
	Region     string
	Bucket     string
	Endpoint   string
	Prefix     string
	PublicRead bool
	ThumbWidth int
	MaxBytes   int64
}

func NewS3Store(ctx context.Context, opts S3Options, log *zap.Logger) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(opts.Region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, opts, log), nil
}

// NewS3StoreWithClient is used with a preconfigured or fake client.
func NewS3StoreWithClient(client PutAPI, opts S3Options, log *zap.Logger) *S3Store {
	return &S3Store{
		uploader:   manager.NewUploader(client),
		bucket:     opts.Bucket,
		region:     opts.Region,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		prefix:     opts.Prefix,
		publicRead: opts.PublicRead,
		thumbWidth: opts.ThumbWidth,
		maxBytes:   opts.MaxBytes,
		log:        log,
	}
}

// Upload stores the original and, for decodable images, a JPEG thumbnail
// next to it. A thumbnail failure does not fail the upload.
func (s *S3Store) Upload(ctx context.Context, in Upload) (Result, error) {
	if err := Validate(in.ContentType, in.Size, s.maxBytes); err != nil {
		return Result{}, err
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, in.Size+1))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if int64(len(data)) != in.Size {
		return Result{}, fmt.Errorf("%w: size mismatch", ErrInvalidFile)
	}

	key := ObjectKey(s.prefix, in.OwnerID, in.Filename, in.ContentType)
	body := newProgressReader(bytes.NewReader(data), in.Size, in.OnProgress)
	if err := s.put(ctx, key, in.ContentType, body); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	res := Result{Key: key, URL: s.publicURL(key)}

	if s.thumbWidth > 0 {
		thumb, err := Thumbnail(data, s.thumbWidth)
		if err != nil {
			s.log.Debug("thumbnail skipped", zap.String("key", key), zap.Error(err))
			return res, nil
		}
		thumbKey := key + "_thumb.jpg"
		if err := s.put(ctx, thumbKey, "image/jpeg", bytes.NewReader(thumb)); err != nil {
			s.log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
			return res, nil
		}
		res.ThumbnailURL = s.publicURL(thumbKey)
	}
	return res, nil
}

func (s *S3Store) put(ctx context.Context, key, contentType string, body io.Reader) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		in.ACL = types.ObjectCannedACLPublicRead
	}
	_, err := s.uploader.Upload(ctx, in)
	return err
}

func (s *S3Store) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

// Thumbnail scales data to width keeping the aspect ratio.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
