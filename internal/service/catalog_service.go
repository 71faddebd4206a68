package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/studyvault/studyvault-api/internal/listing"
	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/search"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
)

const snapshotKey = "catalog:snapshot"

type catalogDocumentRepository interface {
	Search(ctx context.Context, filter models.DocumentFilter, query search.Query) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
}

// CatalogService serves the public catalog: free-text search against the
// database and stateful browse over a cached snapshot of the full catalog.
type CatalogService struct {
	repo        catalogDocumentRepository
	redis       *redis.Client
	metrics     *MetricsService
	logger      *zap.Logger
	snapshotTTL time.Duration
}

// NewCatalogService constructs a catalog service. Redis and metrics are
// optional; without Redis every browse fetches the full set from the
// database.
func NewCatalogService(repo catalogDocumentRepository, rdb *redis.Client, metrics *MetricsService, logger *zap.Logger, snapshotTTL time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Minute
	}
	return &CatalogService{repo: repo, redis: rdb, metrics: metrics, logger: logger, snapshotTTL: snapshotTTL}
}

// Search normalizes the free-text query and runs it against the database
// together with the exact filters. Results are ordered newest first.
func (s *CatalogService) Search(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query := search.Normalize(filter.Query)
	docs, err := s.repo.Search(ctx, filter, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search catalog")
	}
	if s.metrics != nil {
		s.metrics.IncSearch()
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Browse filters, sorts, and paginates the snapshot according to the
// client's selection.
func (s *CatalogService) Browse(ctx context.Context, st listing.State) (listing.Page, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return listing.Page{}, err
	}
	return listing.Apply(all, st), nil
}

// Options returns the cascading dropdown choices for the current selection.
func (s *CatalogService) Options(ctx context.Context, code, number string) (listing.Options, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return listing.Options{}, err
	}
	return listing.OptionsFor(all, code, number), nil
}

// InvalidateSnapshot drops the cached catalog snapshot. Called after every
// catalog mutation.
func (s *CatalogService) InvalidateSnapshot(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, snapshotKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate catalog snapshot", zap.Error(err))
	}
}

// snapshot returns the full catalog, preferring the Redis copy. A cache
// failure falls through to the database.
func (s *CatalogService) snapshot(ctx context.Context) ([]models.Document, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, snapshotKey).Bytes()
		if err == nil {
			var docs []models.Document
			if jsonErr := json.Unmarshal(raw, &docs); jsonErr == nil {
				if s.metrics != nil {
					s.metrics.RecordSnapshotLookup(true)
				}
				return docs, nil
			}
			s.logger.Warn("corrupt catalog snapshot, refetching")
		} else if err != redis.Nil {
			s.logger.Warn("catalog snapshot lookup failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordSnapshotLookup(false)
		}
	}

	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	if docs == nil {
		docs = []models.Document{}
	}

	if s.redis != nil {
		if raw, err := json.Marshal(docs); err == nil {
			if err := s.redis.Set(ctx, snapshotKey, raw, s.snapshotTTL).Err(); err != nil {
				s.logger.Warn("failed to store catalog snapshot", zap.Error(err))
			}
		}
	}
	return docs, nil
}
