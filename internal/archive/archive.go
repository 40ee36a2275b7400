// Package archive keeps a copy of every uploaded spreadsheet in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectAPI is the part of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Archive stores uploads under uploads/YYYY/MM/DD/<uuid>-<name>.
type Archive struct {
	client ObjectAPI
	bucket string
	now    func() time.Time
}

// New creates an archive writing to bucket.
func New(client ObjectAPI, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket, now: time.Now}
}

// NewFromConfig builds the S3 client from an SDK config.
func NewFromConfig(cfg aws.Config, bucket string) *Archive {
	return New(s3.NewFromConfig(cfg), bucket)
}

// Bucket returns the archive's bucket.
func (a *Archive) Bucket() string { return a.bucket }

// Key builds the object key for an upload named name.
func (a *Archive) Key(name string) string {
	return fmt.Sprintf("uploads/%s/%s-%s", a.now().UTC().Format("2006/01/02"), uuid.NewString(), cleanName(name))
}

// Put stores data and returns its key.
func (a *Archive) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := a.Key(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": name},
	})
	if err != nil {
		return "", fmt.Errorf("putting %s to S3: %w", key, err)
	}
	return key, nil
}

// Get reads an object from the archive's bucket.
func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	return a.Fetch(ctx, a.bucket, key)
}

// Fetch reads any object the credentials can see.
func (a *Archive) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ParseURI splits s3://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and a key: %q", uri)
	}
	return bucket, key, nil
}

func cleanName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, r == '/', r == '?', r == '#', r == '%':
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		return "upload"
	}
	return base
}
