// Package interfaces defines cache operation contracts.
package interfaces

import (
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/types"
)

// CollectionCache defines operations for CMS collection caching
type CollectionCache interface {
	GetCollection(id string) (*cms.Collection, bool)
	SetCollection(collection *cms.Collection)
	GetCollectionBySlug(slug string) (*cms.Collection, bool)
	GetAllCollectionIDs() ([]string, bool)
	SetAllCollectionIDs(ids []string)
	AddCollectionID(id string)
	RemoveCollectionID(id string)
	InvalidateCollection(id string)
	InvalidateAll()
	Snapshot() []*cms.Collection
}

// Purgeable caches drop entries older than their TTL
type Purgeable interface {
	PurgeExpired() int
	Stats() types.CacheStats
}
