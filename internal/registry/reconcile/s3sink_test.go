package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3SinkStore(t *testing.T) {
	t.Run("writes report json under prefix", func(t *testing.T) {
		putter := &fakePutter{}
		sink := NewS3SinkWithClient(putter, "reports", "reconcile")

		require.NoError(t, sink.Store(context.Background(), driftedReport()))
		assert.Equal(t, "reports", aws.ToString(putter.input.Bucket))
		assert.Equal(t, "reconcile/2024-05-01T00:00:00Z.json", aws.ToString(putter.input.Key))
		assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
		assert.Contains(t, putter.body, `"total_projects":2`)
	})

	t.Run("wraps client errors with the key", func(t *testing.T) {
		putter := &fakePutter{err: errors.New("access denied")}
		sink := NewS3SinkWithClient(putter, "reports", "")

		err := sink.Store(context.Background(), driftedReport())
		require.ErrorContains(t, err, "2024-05-01T00:00:00Z.json")
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("requires bucket", func(t *testing.T) {
		_, err := NewS3Sink(context.Background(), S3Config{})
		assert.Error(t, err)
	})
}

type captureTransport struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"ETag": {`"etag"`}},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func TestS3SinkAgainstSDKClient(t *testing.T) {
	transport := &captureTransport{}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: transport}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})

	sink := NewS3SinkWithClient(client, "reports", "reconcile")
	require.NoError(t, sink.Store(context.Background(), driftedReport()))

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/reports/reconcile/2024-05-01T00:00:00Z.json", req.URL.Path)
}
