package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/framekit/framekit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKeyBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

const internalErrorBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>InternalError</Code><Message>We encountered an internal error.</Message></Error>`

// fakeS3 serves a path-style bucket over HTTP. failGets makes the next n
// GetObject calls answer 500. Listings are served pageSize keys at a time.
type fakeS3 struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string]string
	failGets int
	pageSize int

	gets   int
	heads  int
	lists  int
	tokens []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+f.bucket), "/")
	w.Header().Set("Content-Type", "application/xml")

	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		f.lists++
		f.list(w, r)
	case r.Method == http.MethodHead:
		f.heads++
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(f.objects[key])))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		f.gets++
		if f.failGets > 0 {
			f.failGets--
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, internalErrorBody)
			return
		}
		body, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, noSuchKeyBody)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// list pages through the keys under prefix in keys() order, using the
// start offset as the continuation token.
func (f *fakeS3) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("continuation-token")
	f.tokens = append(f.tokens, token)

	var keys []string
	for _, k := range f.keys() {
		if strings.HasPrefix(k, q.Get("prefix")) {
			keys = append(keys, k)
		}
	}

	start := 0
	if token != "" {
		_, _ = fmt.Sscanf(token, "page-%d", &start)
	}
	end := start + f.pageSize
	truncated := end < len(keys)
	if !truncated {
		end = len(keys)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys>",
		f.bucket, q.Get("prefix"), end-start)
	fmt.Fprintf(&b, "<IsTruncated>%t</IsTruncated>", truncated)
	if truncated {
		fmt.Fprintf(&b, "<NextContinuationToken>page-%d</NextContinuationToken>", end)
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
	}
	b.WriteString(`</ListBucketResult>`)
	_, _ = io.WriteString(w, b.String())
}

// keys returns the object keys in a fixed, deliberately unsorted order.
func (f *fakeS3) keys() []string {
	order := []string{"seasons/c.csv", "seasons/a.csv", "other/x.csv", "seasons/b.csv"}
	var out []string
	for _, k := range order {
		if _, ok := f.objects[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	fake := &fakeS3{
		bucket: "frames",
		objects: map[string]string{
			"seasons/a.csv": "Player,PPG\nLeBron James,27.1\n",
			"seasons/b.csv": "Player,PPG\nKarl Malone,25.0\n",
			"seasons/c.csv": "Player,PPG\nKobe Bryant,25.0\n",
			"other/x.csv":   "Player,PPG\nJohn Stockton,13.1\n",
		},
		pageSize: 2,
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

// staticAWSEnv keeps the default credential chain away from the host.
func staticAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func newTestS3Storage(t *testing.T, srv *httptest.Server) *S3Storage {
	t.Helper()
	staticAWSEnv(t)
	store, err := NewS3Storage(context.Background(), "frames", S3Config{
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestS3Storage_OpenRetriesServerError(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)
	fake.failGets = 1

	rc, err := store.Open(context.Background(), "seasons/a.csv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Player,PPG\nLeBron James,27.1\n", string(data))
	assert.Equal(t, 2, fake.gets)
}

func TestS3Storage_OpenGivesUpAfterRetries(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)
	store.maxRetries = 1
	fake.failGets = 5

	_, err := store.Open(context.Background(), "seasons/a.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDownloadFailed))
	assert.False(t, errors.Is(err, ErrObjectNotFound))
	assert.Equal(t, 2, fake.gets)
}

func TestS3Storage_OpenMissing(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)

	_, err := store.Open(context.Background(), "seasons/missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
	assert.Contains(t, err.Error(), "seasons/missing.csv")
	assert.Equal(t, 1, fake.gets, "not found is not retried")
}

func TestS3Storage_OpenCanceled(t *testing.T) {
	_, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Open(ctx, "seasons/a.csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestS3Storage_Exists(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "seasons/b.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "seasons/missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, fake.heads)
}

func TestS3Storage_ListObjectsPages(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)

	keys, err := store.ListObjects(context.Background(), "seasons/")
	require.NoError(t, err)
	assert.Equal(t, []string{"seasons/a.csv", "seasons/b.csv", "seasons/c.csv"}, keys)
	assert.Equal(t, 2, fake.lists)
	assert.Equal(t, []string{"", "page-2"}, fake.tokens)
}

func TestS3Storage_ListObjectsEmpty(t *testing.T) {
	_, srv := newFakeS3(t)
	store := newTestS3Storage(t, srv)

	keys, err := store.ListObjects(context.Background(), "nothing/")
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestNew_S3FromConfig(t *testing.T) {
	_, srv := newFakeS3(t)
	staticAWSEnv(t)

	store, err := New(context.Background(), config.StorageConfig{
		Type: "s3",
		S3: config.S3Config{
			Bucket:       "frames",
			Region:       "us-east-1",
			Endpoint:     srv.URL,
			UsePathStyle: true,
		},
	})
	require.NoError(t, err)
	require.IsType(t, &S3Storage{}, store)

	ok, err := store.Exists(context.Background(), "other/x.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}
