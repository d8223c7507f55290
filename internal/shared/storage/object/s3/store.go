package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"careerpilot-backend/internal/shared/storage/object"
)

// ErrNoBucket is returned by New when no bucket is configured.
var ErrNoBucket = errors.New("s3 bucket is required")

// Options locate the bucket. Prefix is prepended to every storage key;
// objects are encrypted with KMSKeyID when set and AES256 otherwise.
type Options struct {
	Region   string
	Bucket   string
	Prefix   string
	KMSKeyID string
}

// API is the part of the S3 client the store calls.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps resumes and extracted text in S3 and can presign direct
// browser uploads.
type Store struct {
	api     API
	presign *s3.PresignClient
	bucket  string
	prefix  string
	kmsKey  string
}

func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, ErrNoBucket
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(opts.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFromClient(s3.NewFromConfig(awsCfg), opts), nil
}

// NewFromClient wraps an existing S3 client.
func NewFromClient(client *s3.Client, opts Options) *Store {
	return newStore(client, s3.NewPresignClient(client), opts)
}

func newStore(api API, presign *s3.PresignClient, opts Options) *Store {
	return &Store{
		api:     api,
		presign: presign,
		bucket:  strings.TrimSpace(opts.Bucket),
		prefix:  strings.Trim(strings.TrimSpace(opts.Prefix), "/"),
		kmsKey:  strings.TrimSpace(opts.KMSKeyID),
	}
}

// PresignPut returns a URL the browser can PUT the file to until expires
// lapses. Only the host header is signed, so the client may send any
// Content-Length.
func (s *Store) PresignPut(ctx context.Context, storageKey string, expires time.Duration) (string, error) {
	key := s.objectKey(storageKey)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", s.wrap("presign put", key, err)
	}
	return req.URL, nil
}

func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}
	storageKey, err := object.NewKey(userID, fileName)
	if err != nil {
		return "", 0, "", err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}
	size, err := s.put(ctx, storageKey, mimeType, body)
	if err != nil {
		return "", 0, "", err
	}
	return storageKey, size, mimeType, nil
}

func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.put(ctx, storageKey, contentType, r)
}

func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := s.objectKey(storageKey)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			err = fmt.Errorf("%w: %w", object.ErrNotFound, err)
		}
		return nil, s.wrap("get object", key, err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	key := s.objectKey(storageKey)
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return s.wrap("delete object", key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	key := s.objectKey(storageKey)
	body := &countingReader{r: r}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	s.encrypt(in)
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return 0, s.wrap("put object", key, err)
	}
	return body.n, nil
}

func (s *Store) encrypt(in *s3.PutObjectInput) {
	if s.kmsKey == "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
		return
	}
	in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
	in.SSEKMSKeyId = aws.String(s.kmsKey)
}

// objectKey places a storage key under the configured prefix.
func (s *Store) objectKey(storageKey string) string {
	return joinKey(s.prefix, storageKey)
}

func (s *Store) wrap(op, key string, err error) error {
	return fmt.Errorf("s3 %s bucket=%s key=%s: %w", op, s.bucket, key, err)
}

func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "/" + key
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ object.ObjectStore = (*Store)(nil)
