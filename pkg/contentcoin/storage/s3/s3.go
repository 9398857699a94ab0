package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/content-coin/pkg/contentcoin"
	"github.com/tendant/content-coin/pkg/contentcoin/cid"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // Access key ID
	SecretAccessKey string // Secret access key
	Endpoint        string // Endpoint of the S3-compatible pinning service
	UsePathStyle    bool   // Use path-style addressing (default: false)
	Prefix          string // Optional key prefix

	// Gateway is the prefix of gateway URLs, e.g. "https://ipfs.filebase.io/ipfs/"
	Gateway string
}

// Backend is an S3-compatible IPFS pinning store (Filebase and similar).
//
// Objects are keyed by their locally computed content identifier so that
// identical bytes map to one object. When the service reports the pinned
// identifier in the "cid" object metadata that identifier is returned.
type Backend struct {
	client  *s3.Client
	bucket  string
	prefix  string
	gateway string
}

// New creates a new S3-compatible content store
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.AccessKeyID == "" || config.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: s3 access key and secret are required", contentcoin.ErrMissingCredentials)
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.Gateway == "" {
		config.Gateway = "https://ipfs.filebase.io/ipfs/"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return &Backend{
		client:  s3.NewFromConfig(awsCfg, s3Options...),
		bucket:  config.Bucket,
		prefix:  strings.Trim(config.Prefix, "/"),
		gateway: config.Gateway,
	}, nil
}

var _ contentcoin.ContentStore = (*Backend)(nil)

func (b *Backend) key(id string) string {
	if b.prefix == "" {
		return id
	}
	return b.prefix + "/" + id
}

// Put uploads the blob unless an object with the same content already exists.
func (b *Backend) Put(ctx context.Context, blob contentcoin.Blob) (string, error) {
	local, err := cid.Sum(blob.Data)
	if err != nil {
		return "", err
	}
	key := b.key(local)

	if pinned, ok, err := b.pinnedCID(ctx, key); err != nil {
		return "", err
	} else if ok {
		return orDefault(pinned, local), nil
	}

	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob.Data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"filename": blob.Name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	pinned, _, err := b.pinnedCID(ctx, key)
	if err != nil {
		return "", err
	}
	return orDefault(pinned, local), nil
}

// pinnedCID heads the object. ok is false when it does not exist.
func (b *Backend) pinnedCID(ctx context.Context, key string) (string, bool, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("head object %s: %w", key, err)
	}
	for k, v := range result.Metadata {
		if strings.EqualFold(k, "cid") && cid.Valid(v) {
			return v, true, nil
		}
	}
	return "", true, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func (b *Backend) GatewayURL(id string) string {
	return strings.TrimRight(b.gateway, "/") + "/" + id
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
