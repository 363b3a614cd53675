package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/repository"
	"github.com/vaayushanti/bagspec/common/cache"
	"github.com/vaayushanti/bagspec/common/logger"
)

const sizeCachePrefix = "sizes:"

// SizeService manages the catalog of suggested sizes per bag type.
// Lists are cached per bag type and dropped on every write.
type SizeService struct {
	store repository.SizeStore
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger
}

// NewSizeService creates a size service. c may be nil to disable caching.
func NewSizeService(store repository.SizeStore, c cache.Cache, ttl time.Duration, log *logger.Logger) *SizeService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SizeService{
		store: store,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// AddSize stores a new size for a bag type
func (s *SizeService) AddSize(ctx context.Context, sizeName, bagType string) (*models.SizeEntry, error) {
	sizeName = strings.TrimSpace(sizeName)
	bt := models.BagType(strings.ToLower(strings.TrimSpace(bagType)))
	if sizeName == "" || bt == "" {
		return nil, &models.ValidationError{Field: "size_name", Message: "Size name and bag type required"}
	}
	if !bt.Valid() {
		return nil, &models.ValidationError{Field: "bag_type", Message: fmt.Sprintf("Unknown bag type %q", bagType)}
	}

	entry := &models.SizeEntry{
		SizeName:  sizeName,
		BagType:   bt,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateSize(ctx, entry); err != nil {
		if errors.Is(err, models.ErrDuplicateSize) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	s.invalidate(ctx)
	s.log.Info("size added", "size_id", entry.ID, "size_name", entry.SizeName, "bag_type", entry.BagType)

	return entry, nil
}

// ListSizes returns the sizes for a bag type, newest first
func (s *SizeService) ListSizes(ctx context.Context, bagType string) ([]*models.SizeEntry, error) {
	bt := models.BagType(strings.ToLower(strings.TrimSpace(bagType)))
	if !bt.Valid() {
		return nil, &models.ValidationError{Field: "bag_type", Message: fmt.Sprintf("Unknown bag type %q", bagType)}
	}

	key := sizeCachePrefix + string(bt)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var sizes []*models.SizeEntry
			if err := json.Unmarshal(data, &sizes); err == nil {
				return sizes, nil
			}
		} else if err != nil {
			s.log.Warn("size cache read failed", "key", key, "error", err)
		}
	}

	sizes, err := s.store.ListSizes(ctx, bt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(sizes); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Warn("size cache write failed", "key", key, "error", err)
			}
		}
	}

	return sizes, nil
}

// DeleteSize removes a catalog entry. Stored responses are not touched.
func (s *SizeService) DeleteSize(ctx context.Context, id int64) error {
	if err := s.store.DeleteSize(ctx, id); err != nil {
		if errors.Is(err, models.ErrSizeNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	s.invalidate(ctx)
	s.log.Info("size deleted", "size_id", id)

	return nil
}

func (s *SizeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, sizeCachePrefix); err != nil {
		s.log.Warn("size cache invalidation failed", "error", err)
	}
}
