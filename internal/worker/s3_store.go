// internal/worker/s3_store.go
package worker

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net/http"

	"trapsink/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

// ObjectStore is the remote capability the upload pipeline depends on.
// Exists answers whether an object is already archived under key;
// a 404 is a normal answer (false, nil), any other failure propagates.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// S3Store talks to S3 (or an S3-compatible store such as MinIO).
//
// SDK-level retries are disabled: the pipeline deliberately has no retry
// policy — a failed attempt leaves the staged file in place and the next
// occurrence of the same content redoes the whole sequence — and hidden
// SDK retries would blur that contract.
type S3Store struct {
	cfg    config.Config
	client *s3.Client
}

func NewS3Store(cfg config.Config) *S3Store {
	return &S3Store{
		cfg:    cfg,
		client: newS3Client(cfg),
	}
}

// newS3Client builds the SDK client from config: region, optional static
// credentials, optional custom endpoint (path-style for MinIO and
// friends), optional TLS-verification bypass for lab deployments.
func newS3Client(cfg config.Config) *s3.Client {
	opts := []func(*awsCfgLib.LoadOptions) error{
		awsCfgLib.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsCfgLib.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "",
			)))
	} else {
		log.Info().Msg("no static credentials configured, using ambient AWS credential chain")
	}

	if !cfg.S3VerifyTLS {
		opts = append(opts, awsCfgLib.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}))
		log.Warn().Msg("TLS certificate verification disabled for object store")
	}

	awsCfg, err := awsCfgLib.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// A zero RetryMaxAttempts is treated as unset and leaves the
		// standard retryer active; NopRetryer is the off switch.
		o.Retryer = aws.NopRetryer{}
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
}

// objectKey prepends the configured bucket-wide prefix, if any.
func (s *S3Store) objectKey(key string) string {
	if s.cfg.KeyPrefix == "" {
		return key
	}
	return s.cfg.KeyPrefix + "/" + key
}

// Exists probes the store with HeadObject. Each call carries its own
// timeout so a wedged endpoint can't stall an upload worker forever.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, s.cfg.S3Timeout)
	defer cancel()

	_, err := s.client.HeadObject(ctx2, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Put writes body under key with the given content type.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	ctx2, cancel := context.WithTimeout(ctx, s.cfg.S3Timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	return err
}

// isNotFound reports whether err is S3's way of saying the object does
// not exist. HeadObject surfaces a bare 404 (types.NotFound) rather than
// NoSuchKey, but both are checked along with the generic API error codes.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}

	return false
}
