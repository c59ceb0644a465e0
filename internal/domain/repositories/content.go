// Package repositories defines the repository interfaces for documents,
// CMS collections and element templates. These abstract the persistence
// details so the editor core stays decoupled from the database.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
)

var ErrNotFound = errors.New("not found")

// DocumentRepository is the persistence collaborator of the editor
type DocumentRepository interface {
	FindByID(ctx context.Context, id string) (*canvas.Document, error)
	FindAll(ctx context.Context) ([]*canvas.DocumentSummary, error)
	FindPublished(ctx context.Context, id string) (*canvas.Document, error)
	SaveDraft(ctx context.Context, doc *canvas.Document) error
	// Publish promotes the stored draft and returns the publication time
	Publish(ctx context.Context, id string) (time.Time, error)
	Delete(ctx context.Context, id string) error
}

// CollectionRepository stores CMS collections with their fields and items
type CollectionRepository interface {
	FindByID(ctx context.Context, id string) (*cms.Collection, error)
	FindAll(ctx context.Context) ([]*cms.Collection, error)
	Store(ctx context.Context, collection *cms.Collection) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository supplies element templates used to seed new elements
type TemplateRepository interface {
	Get(id string) (*canvas.ElementTemplate, bool)
	List() []*canvas.ElementTemplate
}
