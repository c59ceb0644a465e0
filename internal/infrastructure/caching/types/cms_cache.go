// Package types defines cache data structures for CMS collections.
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
)

// CollectionCache holds every loaded CMS collection
type CollectionCache struct {
	Collections map[string]*cms.Collection // id -> collection
	SlugToID    map[string]string          // slug -> id

	// AllIDs is nil until the full list has been loaded once
	AllIDs []string

	// Cache metadata
	LastUpdated time.Time
	Mu          sync.RWMutex // Exported for access
}

// CacheStats is a point-in-time view used by reports and the status endpoint
type CacheStats struct {
	Collections int       `json:"collections"`
	ListLoaded  bool      `json:"listLoaded"`
	LastUpdated time.Time `json:"lastUpdated"`
	Expired     bool      `json:"expired"`
}
