package worker

import (
	"errors"
	"fmt"
	"testing"

	"trapsink/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(errors.New("dial tcp: timeout")))

	// HeadObject's typed 404.
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&types.NoSuchKey{}))

	// Wrapped errors still classify.
	assert.True(t, isNotFound(fmt.Errorf("head: %w", &types.NotFound{})))

	// Generic API errors by code.
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "404"}))

	// Anything else propagates as a real failure.
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "SlowDown"}))
}

// The pipeline owns its (non-)retry policy: a failed call must surface
// immediately, not after hidden SDK attempts. Setting RetryMaxAttempts
// to zero is ignored by the SDK's resolver, so the client must carry a
// NopRetryer.
func TestNewS3ClientDisablesSDKRetries(t *testing.T) {
	client := newS3Client(config.Config{
		AWSRegion:   "us-east-1",
		Bucket:      "b",
		S3VerifyTLS: true,
	})

	retryer := client.Options().Retryer
	_, ok := retryer.(aws.NopRetryer)
	assert.True(t, ok, "expected aws.NopRetryer, got %T", retryer)
}

func TestObjectKeyPrefix(t *testing.T) {
	bare := &S3Store{cfg: config.Config{}}
	assert.Equal(t, "downloads/aaaa", bare.objectKey("downloads/aaaa"))

	prefixed := &S3Store{cfg: config.Config{KeyPrefix: "cowrie"}}
	assert.Equal(t, "cowrie/downloads/aaaa", prefixed.objectKey("downloads/aaaa"))
}
