package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

var keyPattern = regexp.MustCompile(`<Key>([^<]*)</Key>`)

// mockRoundTripper fakes the PutObject and DeleteObjects subset of S3.
type mockRoundTripper struct {
	mu          sync.Mutex
	puts        []string
	deletes     [][]string
	failPut     bool
	failKeys    map[string]bool
	contentType string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case req.Method == http.MethodPut:
		if m.failPut {
			return xmlResponse(http.StatusForbidden, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`), nil
		}
		parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
		if len(parts) == 2 {
			m.puts = append(m.puts, parts[1])
		}
		m.contentType = req.Header.Get("Content-Type")
		if req.Body != nil {
			_, _ = io.Copy(io.Discard, req.Body)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case req.Method == http.MethodPost && strings.Contains(req.URL.RawQuery, "delete"):
		body, _ := io.ReadAll(req.Body)
		var keys []string
		for _, match := range keyPattern.FindAllStringSubmatch(string(body), -1) {
			keys = append(keys, match[1])
		}
		m.deletes = append(m.deletes, keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><DeleteResult>`)
		for _, key := range keys {
			if m.failKeys[key] {
				b.WriteString("<Error><Key>" + key + "</Key><Code>AccessDenied</Code><Message>denied</Message></Error>")
			}
		}
		b.WriteString("</DeleteResult>")
		return xmlResponse(http.StatusOK, b.String()), nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func xmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

func newMockStore(t *testing.T, rt *mockRoundTripper, cfg Config) *Store {
	t.Helper()
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	if cfg.Bucket == "" {
		cfg.Bucket = "test-bucket"
	}
	return NewWithClient(client, cfg)
}

func upload(t *testing.T, store *Store, group domain.Group, name string) string {
	t.Helper()
	blob, err := domain.NewBlob([]byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	ref, err := store.Upload(context.Background(), ports.UploadRequest{Group: group, Blob: blob, OriginalName: name})
	require.NoError(t, err)
	return ref
}

func TestStore_UploadBuildsGroupedKey(t *testing.T) {
	rt := &mockRoundTripper{}
	store := newMockStore(t, rt, Config{})

	ref := upload(t, store, domain.GroupSirePhotos, "../My Dog.JPG")
	require.True(t, strings.HasPrefix(ref, "s3://test-bucket/listings/sire-photos/"), ref)
	require.True(t, strings.HasSuffix(ref, "-My_Dog.JPG"), ref)
	require.Len(t, rt.puts, 1)
	require.Equal(t, strings.TrimPrefix(ref, "s3://test-bucket/"), rt.puts[0])
	require.Equal(t, "image/jpeg", rt.contentType)
}

func TestStore_UploadUsesPublicBase(t *testing.T) {
	rt := &mockRoundTripper{}
	store := newMockStore(t, rt, Config{PublicBaseURL: "https://cdn.example.com/", Prefix: "media"})

	ref := upload(t, store, domain.GroupPhotos, "a.png")
	require.True(t, strings.HasPrefix(ref, "https://cdn.example.com/media/photos/"), ref)

	require.NoError(t, store.DeleteMany(context.Background(), []string{ref}))
	require.Equal(t, [][]string{{strings.TrimPrefix(ref, "https://cdn.example.com/")}}, rt.deletes)
}

func TestStore_UploadFailure(t *testing.T) {
	rt := &mockRoundTripper{failPut: true}
	store := newMockStore(t, rt, Config{})
	blob, err := domain.NewBlob([]byte("x"), "image/png")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), ports.UploadRequest{Group: domain.GroupPhotos, Blob: blob, OriginalName: "x.png"})
	require.Error(t, err)
}

func TestStore_DeleteManyChunksBatches(t *testing.T) {
	rt := &mockRoundTripper{}
	store := newMockStore(t, rt, Config{})
	refs := make([]string, 0, MaxDeleteBatch+500)
	for i := 0; i < MaxDeleteBatch+500; i++ {
		refs = append(refs, "s3://test-bucket/listings/photos/"+strings.Repeat("k", 1+i%7)+"-"+string(rune('a'+i%26)))
	}

	require.NoError(t, store.DeleteMany(context.Background(), refs))
	require.Len(t, rt.deletes, 2)
	require.Len(t, rt.deletes[0], MaxDeleteBatch)
	require.Len(t, rt.deletes[1], 500)
}

func TestStore_DeleteManyReportsKeyErrors(t *testing.T) {
	rt := &mockRoundTripper{failKeys: map[string]bool{"listings/photos/b": true}}
	store := newMockStore(t, rt, Config{})

	err := store.DeleteMany(context.Background(), []string{"s3://test-bucket/listings/photos/a", "listings/photos/b"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "listings/photos/b")
}

func TestStore_DeleteManyRejectsForeignReference(t *testing.T) {
	rt := &mockRoundTripper{}
	store := newMockStore(t, rt, Config{})

	err := store.DeleteMany(context.Background(), []string{"https://elsewhere.example/x.jpg"})
	require.Error(t, err)
	require.Empty(t, rt.deletes)
}

func TestStore_DeleteManyEmptyIsNoOp(t *testing.T) {
	rt := &mockRoundTripper{}
	store := newMockStore(t, rt, Config{})
	require.NoError(t, store.DeleteMany(context.Background(), nil))
	require.Empty(t, rt.deletes)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	store, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	require.NoError(t, err)
	require.Equal(t, "listings", store.prefix)
}
