package media

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ThumbnailService caches generated previews by path.
type ThumbnailService struct {
	generator *ThumbnailGenerator
	metadata  *MetadataExtractor
	cache     *lru.Cache[string, []byte]
	group     singleflight.Group
	logger    zerolog.Logger
}

func NewThumbnailService(
	generator *ThumbnailGenerator,
	metadata *MetadataExtractor,
	cacheCapacity int,
	logger zerolog.Logger,
) (*ThumbnailService, error) {
	cache, err := lru.New[string, []byte](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("thumbnail cache: %w", err)
	}

	return &ThumbnailService{
		generator: generator,
		metadata:  metadata,
		cache:     cache,
		logger:    logger,
	}, nil
}

// Thumbnail returns the cached preview for path or generates it. Concurrent
// requests for one path share a single generation.
func (s *ThumbnailService) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	if data, ok := s.cache.Get(path); ok {
		s.logger.Debug().Str("path", path).Msg("thumbnail from cache")
		return data, nil
	}

	v, err, _ := s.group.Do(path, func() (any, error) {
		var meta *Metadata
		if s.metadata != nil && s.metadata.IsAvailable() {
			if m, err := s.metadata.Extract(ctx, path); err == nil {
				meta = m
			}
		}

		duration := meta.durationOrZero()
		data, err := s.generator.Generate(ctx, path, duration)
		if err != nil {
			return nil, err
		}

		s.cache.Add(path, data)
		s.logger.Info().
			Str("path", path).
			Str("size", humanize.Bytes(uint64(len(data)))).
			Msg("thumbnail generated and cached")
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// Purge drops every cached preview, used when the playlist is replaced.
func (s *ThumbnailService) Purge() {
	s.cache.Purge()
}

func (s *ThumbnailService) CacheLen() int {
	return s.cache.Len()
}
