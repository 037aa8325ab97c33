package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
)

// DefaultUploadTimeout bounds a single upload
const DefaultUploadTimeout = 30 * time.Second

// ErrNotConfigured is returned when S3 settings are incomplete
var ErrNotConfigured = errors.New("s3 publishing not configured")

// S3Config holds the connection settings for an S3-compatible bucket
type S3Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string // Empty for AWS itself
	Region    string
	Bucket    string
	Prefix    string // Prepended to every key
	ACL       string // e.g. "public-read"; empty leaves the bucket default
	Timeout   time.Duration
}

// Enabled reports whether enough settings are present to upload
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// S3Publisher uploads encoded renders to a bucket
type S3Publisher struct {
	client s3iface.S3API
	config S3Config
	logger core.Logger
}

// NewS3Publisher creates a session from config
func NewS3Publisher(config S3Config, logger core.Logger) (*S3Publisher, error) {
	if !config.Enabled() {
		return nil, ErrNotConfigured
	}

	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(config.Endpoint != ""),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3PublisherWithClient(s3.New(sess), config, logger), nil
}

// NewS3PublisherWithClient wraps an existing S3 client
func NewS3PublisherWithClient(client s3iface.S3API, config S3Config, logger core.Logger) *S3Publisher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultUploadTimeout
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &S3Publisher{client: client, config: config, logger: logger}
}

// ObjectKey returns the full key used for name
func (p *S3Publisher) ObjectKey(name string) string {
	if p.config.Prefix == "" {
		return name
	}
	return path.Join(p.config.Prefix, name)
}

// Upload stores data under key
func (p *S3Publisher) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	fullKey := p.ObjectKey(key)
	size := int64(len(data))
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.config.Bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if p.config.ACL != "" {
		input.ACL = aws.String(p.config.ACL)
	}

	if _, err := p.client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}

	p.logger.Printf("Uploaded %s to s3://%s (%d bytes)\n", fullKey, p.config.Bucket, size)
	return nil
}
