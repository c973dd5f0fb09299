package indexcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Store provides S3-backed index caching, for gateways whose
// locations are object-store backed and want the cache co-located.
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	lifecycleDays int
}

// NewS3Store creates a new S3 index cache store. Credentials, region,
// and endpoint are resolved via the standard AWS SDK default
// credential chain.
func NewS3Store(ctx context.Context, bucket, prefix string, forcePathStyle bool, lifecycleDays int) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = forcePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
	}

	return &S3Store{client: client, bucket: bucket, prefix: prefix, lifecycleDays: lifecycleDays}, nil
}

// Init creates the S3 bucket if it doesn't already exist and applies a
// lifecycle policy to expire cached index entries, so a reconfigured
// or moved data file's stale index eventually falls out of cache even
// without explicit invalidation.
func (s *S3Store) Init(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var baoby *types.BucketAlreadyOwnedByYou
		var bae *types.BucketAlreadyExists
		if isError(err, &baoby) || isError(err, &bae) {
			slog.Debug("bucket already exists", "bucket", s.bucket)
		} else {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	if s.lifecycleDays > 0 {
		_, err := s.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
			Bucket: aws.String(s.bucket),
			LifecycleConfiguration: &types.BucketLifecycleConfiguration{
				Rules: []types.LifecycleRule{
					{
						ID:     aws.String("htsget-index-cache-expiry"),
						Status: types.ExpirationStatusEnabled,
						Filter: &types.LifecycleRuleFilter{Prefix: aws.String(s.prefix)},
						Expiration: &types.LifecycleExpiration{
							Days: aws.Int32(int32(s.lifecycleDays)),
						},
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("setting bucket lifecycle policy: %w", err)
		}
	}

	return nil
}

func (s *S3Store) fullKey(key string) string {
	return s.prefix + key
}

func (s *S3Store) metaKey(key string) string {
	return s.fullKey(key) + ".meta.json"
}

// Head checks if an index object exists and returns its metadata.
func (s *S3Store) Head(ctx context.Context, key string) (ObjectMeta, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
	})
	if err != nil {
		return ObjectMeta{}, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("reading meta sidecar: %w", err)
	}
	return UnmarshalMeta(data)
}

// GetWithMeta retrieves a cached index object's bytes and metadata.
func (s *S3Store) GetWithMeta(ctx context.Context, key string) (*GetResult, error) {
	metaOut, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
	})
	if err != nil {
		return nil, err
	}
	defer metaOut.Body.Close()

	data, err := io.ReadAll(metaOut.Body)
	if err != nil {
		return nil, fmt.Errorf("reading meta sidecar: %w", err)
	}

	meta, err := UnmarshalMeta(data)
	if err != nil {
		return nil, fmt.Errorf("parsing meta sidecar: %w", err)
	}

	dataOut, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return nil, err
	}

	return &GetResult{Body: dataOut.Body, Meta: meta}, nil
}

// Put writes an index object and its metadata sidecar to S3, using a
// conditional PUT: index bytes are deterministic for a given data
// file, so a race between two cache-misses writing the same key is
// benign and the loser's conflict is treated as success.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, meta ObjectMeta) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.fullKey(key)),
		Body:        body,
		IfNoneMatch: aws.String("*"),
	}
	if meta.ContentLength > 0 {
		input.ContentLength = aws.Int64(meta.ContentLength)
	}

	_, err := s.client.PutObject(ctx, input,
		s3.WithAPIOptions(func(stack *middleware.Stack) error {
			return v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware(stack)
		}),
		func(o *s3.Options) {
			o.RetryMaxAttempts = 1
		},
	)
	if err != nil {
		if isConditionalPutConflict(err) {
			slog.Debug("index already cached, skipping duplicate upload", "key", key)
			return nil
		}
		return fmt.Errorf("putting index to S3: %w", err)
	}

	metaJSON, err := MarshalMeta(meta)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metaKey(key)),
		Body:        bytes.NewReader(metaJSON),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting meta sidecar to S3: %w", err)
	}

	return nil
}

// isConditionalPutConflict returns true when the S3 PutObject error
// indicates the object already exists.
func isConditionalPutConflict(err error) bool {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == http.StatusPreconditionFailed ||
			re.HTTPStatusCode() == http.StatusConflict
	}
	return false
}

// isError checks if an error matches a target type using string
// matching, since different S3-compatible implementations may return
// errors differently.
func isError[T error](err error, target *T) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	switch any(*target).(type) {
	case *types.BucketAlreadyOwnedByYou:
		return strings.Contains(errMsg, "BucketAlreadyOwnedByYou")
	case *types.BucketAlreadyExists:
		return strings.Contains(errMsg, "BucketAlreadyExists")
	}
	return false
}
