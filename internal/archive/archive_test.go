package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	err     error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestPutAndGet(t *testing.T) {
	s3c := newFakeS3()
	a := New(s3c, "cockpit-uploads")
	a.now = func() time.Time { return time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	key, err := a.Put(ctx, "C:\\Users\\me\\March sales.xlsx", "", []byte("xlsx-bytes"))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^uploads/2024/03/05/[0-9a-f-]{36}-March_sales\.xlsx$`), key)

	require.Len(t, s3c.puts, 1)
	assert.Equal(t, "application/octet-stream", aws.ToString(s3c.puts[0].ContentType))
	assert.Equal(t, "C:\\Users\\me\\March sales.xlsx", s3c.puts[0].Metadata["original-name"])

	data, err := a.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))

	_, err = a.Get(ctx, "uploads/missing")
	assert.ErrorContains(t, err, "s3://cockpit-uploads/uploads/missing")
}

func TestPutError(t *testing.T) {
	s3c := newFakeS3()
	s3c.err = errors.New("AccessDenied")
	_, err := New(s3c, "b").Put(context.Background(), "a.csv", "text/csv", nil)
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://my-bucket/uploads/2024/a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "uploads/2024/a.xlsx", key)

	for _, bad := range []string{"/tmp/a.xlsx", "s3://bucket", "s3:///key"} {
		_, _, err := ParseURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "report.csv", cleanName("../../report.csv"))
	assert.Equal(t, "a_b.xlsx", cleanName("a b.xlsx"))
	assert.Equal(t, "upload", cleanName(""))
	assert.Equal(t, "q1.csv", cleanName("q?1.csv"))
}
