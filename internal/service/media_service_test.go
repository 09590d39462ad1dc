package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidnest/accounts/internal/queue"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
	block   bool
	err     error
}

func (m *memObjects) PutObject(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjects) PublicURL(key string) string { return "https://cdn.test/" + key }

type memQueue struct {
	tasks []queue.Task
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, task queue.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func newMediaService(store *memObjects, q TaskQueue) *MediaService {
	svc := NewMediaService(store, q, MediaConfig{MaxBytes: 64, UploadTimeout: 50 * time.Millisecond}, zerolog.New(io.Discard))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func TestUploadStoresUnderDatedKey(t *testing.T) {
	store := newMemObjects()
	svc := newMediaService(store, nil)

	url, err := svc.Upload(context.Background(), MediaAvatar, &UploadFile{Content: bytes.NewReader(pngHead), ContentType: "image/png"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "https://cdn.test/avatars/2024/05/01/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	require.Len(t, store.objects, 1)
	for key, data := range store.objects {
		assert.Equal(t, pngHead, data)
		assert.Equal(t, "image/png", store.types[key])
	}
}

func TestUploadSanitizesSVG(t *testing.T) {
	store := newMemObjects()
	svc := newMediaService(store, nil)
	svc.cfg.MaxBytes = 1024

	doc := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script><rect/></svg>`
	_, err := svc.Upload(context.Background(), MediaCover, &UploadFile{Content: strings.NewReader(doc)})
	require.NoError(t, err)

	for key, data := range store.objects {
		assert.True(t, strings.HasPrefix(key, "covers/"))
		assert.NotContains(t, string(data), "script")
	}
}

func TestUploadRejections(t *testing.T) {
	svc := newMediaService(newMemObjects(), nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, MediaAvatar, nil)
	assert.ErrorIs(t, err, ErrFileMissing)

	_, err = svc.Upload(ctx, MediaAvatar, &UploadFile{Content: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrFileMissing)

	_, err = svc.Upload(ctx, MediaAvatar, &UploadFile{Content: strings.NewReader("%PDF-1.7 not an image")})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.Upload(ctx, MediaAvatar, &UploadFile{Content: bytes.NewReader(pngHead), ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	big := append(append([]byte{}, pngHead...), make([]byte, 100)...)
	_, err = svc.Upload(ctx, MediaAvatar, &UploadFile{Content: bytes.NewReader(big)})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

type unreadable struct{ reads int }

func (r *unreadable) Read([]byte) (int, error) {
	r.reads++
	return 0, errors.New("should not be read")
}

func TestUploadRejectsDeclaredSizeBeforeReading(t *testing.T) {
	store := newMemObjects()
	svc := newMediaService(store, nil)
	body := &unreadable{}

	_, err := svc.Upload(context.Background(), MediaAvatar, &UploadFile{Content: body, Size: 65, ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Zero(t, body.reads)
	assert.Empty(t, store.objects)
}

func TestUploadTimeoutIsUploadFailed(t *testing.T) {
	svc := newMediaService(&memObjects{block: true}, nil)

	_, err := svc.Upload(context.Background(), MediaAvatar, &UploadFile{Content: bytes.NewReader(pngHead)})
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadStoreError(t *testing.T) {
	svc := newMediaService(&memObjects{err: errors.New("access denied")}, nil)

	_, err := svc.Upload(context.Background(), MediaAvatar, &UploadFile{Content: bytes.NewReader(pngHead)})
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestDiscardEnqueuesTask(t *testing.T) {
	q := &memQueue{}
	svc := newMediaService(newMemObjects(), q)

	svc.Discard(context.Background(), "https://cdn.test/avatars/a.png", "replaced")
	svc.Discard(context.Background(), "", "replaced")

	require.Len(t, q.tasks, 1)
	assert.Equal(t, queue.TaskDiscard, q.tasks[0].Type)
	assert.Equal(t, "https://cdn.test/avatars/a.png", q.tasks[0].URL)
	assert.Equal(t, "replaced", q.tasks[0].Reason)
}

func TestDiscardSwallowsQueueErrors(t *testing.T) {
	svc := newMediaService(newMemObjects(), &memQueue{err: errors.New("redis down")})

	assert.NotPanics(t, func() {
		svc.Discard(context.Background(), "https://cdn.test/avatars/a.png", "replaced")
	})
}
