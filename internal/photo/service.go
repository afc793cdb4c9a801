package photo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artfolio/gallery/internal/events"
	"github.com/artfolio/gallery/internal/media"
	"github.com/artfolio/gallery/internal/metrics"
	"github.com/artfolio/gallery/internal/storage"
)

const cleanupTimeout = 30 * time.Second

// MediaStore is the subset of media.Store the service needs.
type MediaStore interface {
	Upload(ctx context.Context, folder string, data []byte, transform *media.Transform) (*media.Asset, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(rawURL, folder string) (string, error)
}

// ListCache caches the display list between writes. Entries are scoped to a
// generation: Get reports the generation current before the store is read,
// and Set files the list under that generation. Invalidate starts a new
// generation, so a list read before a write can never be served after it.
type ListCache interface {
	Get(ctx context.Context) (views []View, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, views []View) error
	Invalidate(ctx context.Context) error
}

// EventPublisher receives photo lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event)
}

// File is one uploaded file part.
type File struct {
	Name string
	Data []byte
}

// Options tune the upload workflow.
type Options struct {
	ThumbnailSize int
	// MaxConcurrent caps per-request fan-out; zero means unlimited.
	MaxConcurrent int
}

// Service contains the upload, list and delete workflow.
type Service struct {
	repo   Repository
	media  MediaStore
	cache  ListCache
	events EventPublisher
	opts   Options
	log    *zap.Logger
}

// NewService creates a Service. cache and publisher may be nil.
func NewService(repo Repository, store MediaStore, cache ListCache, publisher EventPublisher, opts Options, log *zap.Logger) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, media: store, cache: cache, events: publisher, opts: opts, log: log}
}

// Upload stores every file concurrently and returns the created records in
// input order. It waits for all files before returning; the first error wins.
func (s *Service) Upload(ctx context.Context, files []File) ([]Photo, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	photos := make([]Photo, len(files))
	var g errgroup.Group
	if s.opts.MaxConcurrent > 0 {
		g.SetLimit(s.opts.MaxConcurrent)
	}
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			p, err := s.uploadOne(ctx, f)
			if err != nil {
				return fmt.Errorf("upload %q: %w", f.Name, err)
			}
			photos[i] = *p
			return nil
		})
	}
	err := g.Wait()

	// Records persisted before a sibling failed still exist.
	if invErr := s.cache.Invalidate(ctx); invErr != nil {
		s.log.Warn("invalidate photo cache", zap.Error(invErr))
	}
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func (s *Service) uploadOne(ctx context.Context, f File) (*Photo, error) {
	original, err := s.media.Upload(ctx, media.OriginalsFolder, f.Data, nil)
	if err != nil {
		metrics.MediaStoreErrorsTotal.WithLabelValues("upload").Inc()
		return nil, fmt.Errorf("upload original: %w", err)
	}

	thumb, err := s.media.Upload(ctx, media.ThumbnailsFolder, f.Data, &media.Transform{
		Width:  s.opts.ThumbnailSize,
		Height: s.opts.ThumbnailSize,
		Crop:   media.CropFill,
	})
	if err != nil {
		metrics.MediaStoreErrorsTotal.WithLabelValues("upload").Inc()
		s.cleanup(ctx, original.Key)
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	p := &Photo{
		OriginalURL:  original.URL,
		ThumbnailURL: thumb.URL,
		OriginalKey:  original.Key,
		ThumbnailKey: thumb.Key,
		Width:        original.Width,
		Height:       original.Height,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.cleanup(ctx, original.Key, thumb.Key)
		return nil, fmt.Errorf("save photo: %w", err)
	}

	metrics.PhotosUploadedTotal.Inc()
	s.events.Publish(ctx, events.Event{
		Type:         events.TypePhotoUploaded,
		PhotoID:      p.ID,
		OriginalURL:  p.OriginalURL,
		ThumbnailURL: p.ThumbnailURL,
		Width:        p.Width,
		Height:       p.Height,
		RequestID:    chimw.GetReqID(ctx),
	})
	return p, nil
}

// cleanup removes blobs of a file whose upload did not complete. It detaches
// from ctx cancellation so an aborted request still releases what it stored.
func (s *Service) cleanup(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.media.Delete(ctx, key); err != nil {
			metrics.MediaStoreErrorsTotal.WithLabelValues("cleanup").Inc()
			s.log.Warn("orphaned blob after failed upload", zap.String("key", key), zap.Error(err))
		}
	}
}

// List returns every photo's display view, newest first. The result is never nil.
func (s *Service) List(ctx context.Context) ([]View, error) {
	views, gen, ok, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		s.log.Warn("read photo cache", zap.Error(cacheErr))
	} else if ok {
		if views == nil {
			views = []View{}
		}
		return views, nil
	}

	photos, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	views = make([]View, 0, len(photos))
	for i := range photos {
		views = append(views, photos[i].View())
	}

	// Without a known generation the list could land under a stale one.
	if cacheErr != nil {
		return views, nil
	}
	if err := s.cache.Set(ctx, gen, views); err != nil {
		s.log.Warn("write photo cache", zap.Error(err))
	}
	return views, nil
}

// Delete removes both blobs concurrently and then the record. Blob failures
// are logged and do not stop the record removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	keys := s.blobKeys(p)
	var wg sync.WaitGroup
	for _, key := range keys {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.media.Delete(ctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				s.log.Debug("blob already gone", zap.String("photo_id", id), zap.String("key", key))
				return
			}
			if err != nil {
				metrics.MediaStoreErrorsTotal.WithLabelValues("delete").Inc()
				s.log.Warn("delete blob", zap.String("photo_id", id), zap.String("key", key), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete photo record: %w", err)
	}

	metrics.PhotosDeletedTotal.Inc()
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("invalidate photo cache", zap.Error(err))
	}
	s.events.Publish(ctx, events.Event{
		Type:      events.TypePhotoDeleted,
		PhotoID:   id,
		RequestID: chimw.GetReqID(ctx),
	})
	return nil
}

// blobKeys returns the stored keys, deriving them from the URLs for records
// written before keys were persisted.
func (s *Service) blobKeys(p *Photo) []string {
	keys := make([]string, 0, 2)
	add := func(key, rawURL, folder string) {
		if key == "" {
			derived, err := s.media.KeyFromURL(rawURL, folder)
			if err != nil {
				s.log.Warn("derive blob key", zap.String("photo_id", p.ID), zap.String("url", rawURL), zap.Error(err))
				return
			}
			key = derived
		}
		keys = append(keys, key)
	}
	add(p.OriginalKey, p.OriginalURL, media.OriginalsFolder)
	add(p.ThumbnailKey, p.ThumbnailURL, media.ThumbnailsFolder)
	return keys
}

type nopCache struct{}

func (nopCache) Get(context.Context) ([]View, int64, bool, error) { return nil, 0, false, nil }
func (nopCache) Set(context.Context, int64, []View) error         { return nil }
func (nopCache) Invalidate(context.Context) error                 { return nil }
