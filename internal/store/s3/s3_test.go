package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokemart/internal/store"
	"github.com/roach88/pokemart/internal/store/storetest"
)

// mockRoundTripper fakes the GET/PUT/DELETE subset of S3 path-style requests.
type mockRoundTripper struct {
	mu       sync.Mutex
	state    map[string][]byte
	failPuts bool
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// path is /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodPut:
		if m.failPuts {
			return respond(http.StatusInternalServerError, "<Error><Code>InternalError</Code></Error>"), nil
		}
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.state[key] = body
		return respond(http.StatusOK, ""), nil
	case http.MethodGet:
		body, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound, "<Error><Code>NoSuchKey</Code></Error>"), nil
		}
		resp := respond(http.StatusOK, string(body))
		resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
		return resp, nil
	case http.MethodDelete:
		delete(m.state, key)
		return respond(http.StatusNoContent, ""), nil
	}
	return respond(http.StatusNotImplemented, ""), nil
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

// decodeChunked unwraps a single-chunk aws-chunked body.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n {
		return nil, false
	}
	if !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newMockStore(t *testing.T, prefix string) (*Store, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)

	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.RetryMaxAttempts = 1
	})
	return NewFromClient(client, "test-bucket", prefix), rt
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.KV {
		s, _ := newMockStore(t, "")
		return s
	})
}

func TestStore_Prefix(t *testing.T) {
	ctx := context.Background()
	s, rt := newMockStore(t, "carts/")

	require.NoError(t, s.Put(ctx, "pokemon_cart", []byte(`[]`)))

	rt.mu.Lock()
	_, ok := rt.state["carts/pokemon_cart"]
	rt.mu.Unlock()
	assert.True(t, ok, "object not stored under prefix")

	got, err := s.Get(ctx, "pokemon_cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestStore_PutFailure(t *testing.T) {
	s, rt := newMockStore(t, "")
	rt.failPuts = true

	err := s.Put(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrNotFound))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorContains(t, err, "bucket required")
}

func TestDecodeChunked(t *testing.T) {
	_, ok := decodeChunked([]byte("not-chunked"))
	assert.False(t, ok)

	b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\n"))
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))

	_, ok = decodeChunked(bytes.Repeat([]byte("x"), 3))
	assert.False(t, ok)
}
