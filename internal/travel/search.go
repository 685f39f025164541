package travel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/travel-safety-api/internal/logger"
)

// RecordStore is the persistence contract for aggregated records. A lookup
// miss is (nil, nil); Upsert is idempotent by UniqueKey with last-writer-wins
// semantics; DeleteOthers removes records for the same place from other
// cache buckets, matching city and country case-insensitively.
type RecordStore interface {
	FindByKey(ctx context.Context, uniqueKey string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	DeleteOthers(ctx context.Context, city, country, keepKey string) (int64, error)
}

// RecordAggregator produces the record payload on a cache miss.
type RecordAggregator interface {
	Aggregate(ctx context.Context, q Query) (*Record, error)
}

// SearchService owns record persistence: it computes the bucket key, serves
// cache hits, and on a miss runs the aggregator and writes the result back.
type SearchService struct {
	records    RecordStore
	aggregator RecordAggregator
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewSearchService(records RecordStore, aggregator RecordAggregator) *SearchService {
	return &SearchService{
		records:    records,
		aggregator: aggregator,
		now:        time.Now,
		log:        logger.GetLogger("search"),
	}
}

// Search resolves one location query. Key equality alone decides a cache
// hit: the key encodes the freshness bucket, so no further TTL check runs on
// the lookup path. Two concurrent misses for the same key both fetch live;
// the idempotent upsert makes that a wasted call, not an error.
func (s *SearchService) Search(ctx context.Context, q Query) (*SearchResult, error) {
	key := BucketKey(q.Country, q.City, s.now())

	cached, err := s.records.FindByKey(ctx, key)
	if err != nil {
		return nil, &PersistenceError{Op: "lookup", Err: err}
	}
	if cached != nil {
		s.log.Infow("cache hit", "uniqueKey", key)
		return &SearchResult{Data: cached, Source: SourceCache}, nil
	}

	s.log.Infow("cache miss, fetching live", "uniqueKey", key)
	rec, err := s.aggregator.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}

	rec.UniqueKey = key
	rec.UserID = q.UserID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	if err := s.records.Upsert(ctx, rec); err != nil {
		return nil, &PersistenceError{Op: "upsert", Err: err}
	}

	// Remove superseded records from earlier buckets for the same place.
	// Best-effort: stale duplicates self-expire within the hour anyway.
	if deleted, err := s.records.DeleteOthers(ctx, q.City, q.Country, key); err != nil {
		s.log.Warnw("cleanup failed", "uniqueKey", key, "error", err)
	} else if deleted > 0 {
		s.log.Infow("cleaned up superseded records", "uniqueKey", key, "deleted", deleted)
	}

	return &SearchResult{Data: rec, Source: SourceLive}, nil
}
