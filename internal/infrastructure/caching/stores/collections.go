// Package stores provides concrete cache store implementations
package stores

import (
	"sort"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/monitoring"
)

// CollectionStore caches CMS collections in memory. Entries live until the
// TTL elapses since the last write, then the whole store is dropped and
// reloaded on demand. Values are cloned on the way in and out.
type CollectionStore struct {
	cache   *types.CollectionCache
	ttl     time.Duration
	now     func() time.Time
	monitor *monitoring.CachePerformanceMonitor
}

func NewCollectionStore(ttl time.Duration) *CollectionStore {
	return &CollectionStore{
		cache: &types.CollectionCache{
			Collections: make(map[string]*cms.Collection),
			SlugToID:    make(map[string]string),
			LastUpdated: time.Now().UTC(),
		},
		ttl: ttl,
		now: time.Now,
	}
}

// SetMonitor reports lookups and evictions to m. Call before first use.
func (s *CollectionStore) SetMonitor(m *monitoring.CachePerformanceMonitor) {
	s.monitor = m
}

func (s *CollectionStore) expired() bool {
	return s.ttl > 0 && s.now().Sub(s.cache.LastUpdated) > s.ttl
}

// GetCollection retrieves a collection by id
func (s *CollectionStore) GetCollection(id string) (*cms.Collection, bool) {
	s.cache.Mu.RLock()
	defer s.cache.Mu.RUnlock()
	c, ok := s.cache.Collections[id]
	if !ok || s.expired() {
		s.monitor.RecordCacheOperation(monitoring.LayerCollections, false)
		return nil, false
	}
	s.monitor.RecordCacheOperation(monitoring.LayerCollections, true)
	return c.Clone(), true
}

// GetCollectionBySlug retrieves a collection through the slug index
func (s *CollectionStore) GetCollectionBySlug(slug string) (*cms.Collection, bool) {
	s.cache.Mu.RLock()
	id, ok := s.cache.SlugToID[slug]
	s.cache.Mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.GetCollection(id)
}

// SetCollection stores a collection and refreshes the slug index
func (s *CollectionStore) SetCollection(collection *cms.Collection) {
	if collection == nil {
		return
	}
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	if prev, ok := s.cache.Collections[collection.ID]; ok && prev.Slug != collection.Slug {
		delete(s.cache.SlugToID, prev.Slug)
	}
	s.cache.Collections[collection.ID] = collection.Clone()
	if collection.Slug != "" {
		s.cache.SlugToID[collection.Slug] = collection.ID
	}
	s.cache.LastUpdated = s.now().UTC()
}

func (s *CollectionStore) GetAllCollectionIDs() ([]string, bool) {
	s.cache.Mu.RLock()
	defer s.cache.Mu.RUnlock()
	if s.cache.AllIDs == nil || s.expired() {
		s.monitor.RecordCacheOperation(monitoring.LayerCollectionIDs, false)
		return nil, false
	}
	s.monitor.RecordCacheOperation(monitoring.LayerCollectionIDs, true)
	return append([]string(nil), s.cache.AllIDs...), true
}

func (s *CollectionStore) SetAllCollectionIDs(ids []string) {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	s.cache.AllIDs = append(make([]string, 0, len(ids)), ids...)
	s.cache.LastUpdated = s.now().UTC()
}

// AddCollectionID extends a loaded id list; an unloaded list stays unloaded
func (s *CollectionStore) AddCollectionID(id string) {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	if s.cache.AllIDs == nil {
		return
	}
	for _, existing := range s.cache.AllIDs {
		if existing == id {
			return
		}
	}
	s.cache.AllIDs = append(s.cache.AllIDs, id)
	sort.Strings(s.cache.AllIDs)
}

func (s *CollectionStore) RemoveCollectionID(id string) {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	for i, existing := range s.cache.AllIDs {
		if existing == id {
			s.cache.AllIDs = append(s.cache.AllIDs[:i], s.cache.AllIDs[i+1:]...)
			return
		}
	}
}

func (s *CollectionStore) InvalidateCollection(id string) {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	if c, ok := s.cache.Collections[id]; ok {
		delete(s.cache.SlugToID, c.Slug)
		delete(s.cache.Collections, id)
		s.monitor.RecordEviction(monitoring.LayerCollections, monitoring.EvictionManual, 1)
	}
}

func (s *CollectionStore) InvalidateAll() {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	s.monitor.RecordEviction(monitoring.LayerCollections, monitoring.EvictionManual, len(s.cache.Collections))
	s.reset()
}

// reset clears the store. Caller holds the lock.
func (s *CollectionStore) reset() {
	s.cache.Collections = make(map[string]*cms.Collection)
	s.cache.SlugToID = make(map[string]string)
	s.cache.AllIDs = nil
	s.cache.LastUpdated = s.now().UTC()
}

// Snapshot returns clones of every cached collection ordered by id
func (s *CollectionStore) Snapshot() []*cms.Collection {
	s.cache.Mu.RLock()
	defer s.cache.Mu.RUnlock()
	if s.expired() {
		return nil
	}
	out := make([]*cms.Collection, 0, len(s.cache.Collections))
	for _, c := range s.cache.Collections {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PurgeExpired drops the store once its TTL has elapsed and reports how
// many collections were evicted
func (s *CollectionStore) PurgeExpired() int {
	s.cache.Mu.Lock()
	defer s.cache.Mu.Unlock()
	if !s.expired() {
		return 0
	}
	n := len(s.cache.Collections)
	s.monitor.RecordEviction(monitoring.LayerCollections, monitoring.EvictionTTL, n)
	s.reset()
	return n
}

func (s *CollectionStore) Stats() types.CacheStats {
	s.cache.Mu.RLock()
	defer s.cache.Mu.RUnlock()
	return types.CacheStats{
		Collections: len(s.cache.Collections),
		ListLoaded:  s.cache.AllIDs != nil,
		LastUpdated: s.cache.LastUpdated,
		Expired:     s.expired(),
	}
}
