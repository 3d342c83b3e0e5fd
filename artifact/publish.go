package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pithecene-io/vademecum/iox"
)

// S3Config holds configuration for the optional S3 publication of finished
// artifacts.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// objectPutter abstracts the S3 PutObject call for testing.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads finished artifacts to S3. Publication runs after the
// manifest is written; a publish failure is fatal for the run like any
// other output-write failure.
type Publisher struct {
	config S3Config
	client objectPutter
}

// NewPublisher creates a publisher using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func NewPublisher(ctx context.Context, cfg S3Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Publisher{
		config: cfg,
		client: s3.NewFromConfig(awsConfig, s3Opts...),
	}, nil
}

// PublishFiles uploads the given local files under the configured prefix,
// keyed by base filename. Stops at the first failure.
func (p *Publisher) PublishFiles(ctx context.Context, paths ...string) error {
	for _, local := range paths {
		if local == "" {
			continue
		}
		if err := p.publishFile(ctx, local); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishFile(ctx context.Context, local string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("publish %s: %w", local, err)
	}
	defer iox.DiscardClose(f)

	key := filepath.Base(local)
	if p.config.Prefix != "" {
		key = strings.TrimSuffix(p.config.Prefix, "/") + "/" + key
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &p.config.Bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("publish %s to s3://%s/%s: %w", local, p.config.Bucket, key, err)
	}
	return nil
}
