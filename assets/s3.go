package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// S3Source serves assets from an S3 or S3-compatible bucket.
// Objects are read from <prefix>/<name>.
type S3Source struct {
	client     *s3.S3
	bucketName string
	prefix     string
	log        *slog.Logger
}

// S3Options configures an S3Source.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string

	// AccessKey and SecretKey are optional; without them requests are
	// unsigned and the bucket must be publicly readable.
	AccessKey string
	SecretKey string

	// PathStyle forces path-style addressing, needed by most S3-compatible servers.
	PathStyle bool
}

// NewS3Source creates a new S3 asset source.
func NewS3Source(opts S3Options, log *slog.Logger) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, errors.New("missing S3 bucket name")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg := aws.Config{
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(opts.PathStyle),
		MaxRetries:       aws.Int(0),
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	} else {
		cfg.Credentials = credentials.AnonymousCredentials
		log.Debug("No S3 credentials provided, bucket assumed to be public")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Source{
		client:     s3.New(sess),
		bucketName: opts.Bucket,
		prefix:     strings.Trim(opts.Prefix, "/"),
		log:        log,
	}, nil
}

// Fetch retrieves the named object. Returns ErrAssetNotFound if it doesn't exist.
func (s *S3Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validAssetName(name); err != nil {
		return nil, err
	}

	start := time.Now()
	key := s.objectKey(name)

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			s.log.Debug("Asset not found in S3",
				slog.String("bucket", s.bucketName),
				slog.String("key", key))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrAssetNotFound, name)
		}

		s.log.Error("Failed to get object from S3",
			slog.String("bucket", s.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	s.log.Debug("Fetched asset from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Name returns a unique identifier for this source.
func (s *S3Source) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

func (s *S3Source) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
