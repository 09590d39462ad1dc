package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vidnest/accounts/internal/ids"
	"vidnest/accounts/internal/media/sniffer"
	"vidnest/accounts/internal/media/svg"
	"vidnest/accounts/internal/queue"
)

type MediaKind string

const (
	MediaAvatar MediaKind = "avatars"
	MediaCover  MediaKind = "covers"
)

// UploadFile is an uploaded file as handed over by the transport. Size is
// the declared length, or 0 when unknown; a file declaring more than the
// upload limit is refused before Content is read.
type UploadFile struct {
	Content     io.Reader
	Size        int64
	ContentType string
}

// ObjectPutter is the write side of the media host.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

type MediaConfig struct {
	MaxBytes      int64
	UploadTimeout time.Duration
}

// MediaService uploads avatars and covers and queues replaced or orphaned
// objects for deletion by the media worker.
type MediaService struct {
	store ObjectPutter
	queue TaskQueue
	cfg   MediaConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewMediaService(store ObjectPutter, queue TaskQueue, cfg MediaConfig, log zerolog.Logger) *MediaService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 20 * time.Second
	}
	return &MediaService{
		store: store,
		queue: queue,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// Upload stores file under kind and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, kind MediaKind, file *UploadFile) (string, error) {
	if file == nil || file.Content == nil {
		return "", ErrFileMissing
	}
	if file.Size > s.cfg.MaxBytes {
		return "", ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file.Content, s.cfg.MaxBytes+1))
	if err != nil {
		return "", wrap(ErrUploadFailed, fmt.Errorf("read file: %w", err))
	}
	if len(data) == 0 {
		return "", ErrFileMissing
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return "", ErrFileTooLarge
	}

	result, err := sniffer.DetectHead(data)
	if err != nil {
		return "", wrap(ErrUnsupportedMedia, err)
	}

	declared := strings.ToLower(file.ContentType)
	if strings.HasPrefix(declared, "image/") && declared != result.MIME {
		return "", wrap(ErrUnsupportedMedia, fmt.Errorf("content type mismatch: declared %s, actual %s", declared, result.MIME))
	}

	if result.Type == sniffer.TypeSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return "", wrap(ErrUnsupportedMedia, err)
		}
		data = clean
	}

	objectKey := s.buildObjectKey(kind, result.Ext())

	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	if err := s.store.PutObject(uploadCtx, objectKey, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		if errors.Is(uploadCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("upload timed out after %s: %w", s.cfg.UploadTimeout, err)
		}
		return "", wrap(ErrUploadFailed, err)
	}

	s.log.Debug().Str("key", objectKey).Int("bytes", len(data)).Msg("media uploaded")
	return s.store.PublicURL(objectKey), nil
}

// Discard queues url for deletion. It never fails the caller; a lost
// discard is picked up by the periodic sweep.
func (s *MediaService) Discard(ctx context.Context, url string, reason string) {
	if url == "" || s.queue == nil {
		return
	}
	err := s.queue.Enqueue(context.WithoutCancel(ctx), queue.Task{
		Type:   queue.TaskDiscard,
		URL:    url,
		Reason: reason,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("url", url).Str("reason", reason).Msg("enqueue discard failed")
	}
}

func (s *MediaService) buildObjectKey(kind MediaKind, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join(string(kind), datePrefix, fmt.Sprintf("%s.%s", ids.New(), ext))
}
