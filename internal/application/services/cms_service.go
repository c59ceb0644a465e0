package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

var ErrInvalidCollection = errors.New("invalid collection")

// CMSService reads and writes CMS collections through the cache-first
// repository and tells listeners when content changed
type CMSService struct {
	repo   repositories.CollectionRepository
	logger *logging.ChanneledLogger

	mu        sync.Mutex
	listeners []func()
}

func NewCMSService(repo repositories.CollectionRepository, logger *logging.ChanneledLogger) *CMSService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &CMSService{repo: repo, logger: logger}
}

// OnChange registers fn to run after every successful write
func (s *CMSService) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *CMSService) changed() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Collections returns every collection for binding resolution. Read
// failures degrade to no data so bindings fall back.
func (s *CMSService) Collections() []*cms.Collection {
	all, err := s.repo.FindAll(context.Background())
	if err != nil {
		s.logger.CMS().Warn("Collections unavailable for binding", "error", err.Error())
		return nil
	}
	return all
}

func (s *CMSService) List(ctx context.Context) ([]*cms.Collection, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return all, nil
}

// Get finds a collection by id, falling back to slug
func (s *CMSService) Get(ctx context.Context, ref string) (*cms.Collection, error) {
	if ref == "" {
		return nil, fmt.Errorf("collection ID cannot be empty")
	}
	c, err := s.repo.FindByID(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Slug == ref {
			return c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// Upsert validates and stores a collection. Item collection ids are
// normalised to the owning collection.
func (s *CMSService) Upsert(ctx context.Context, c *cms.Collection) error {
	if c == nil {
		return fmt.Errorf("%w: collection cannot be nil", ErrInvalidCollection)
	}
	if problems := c.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCollection, strings.Join(problems, "; "))
	}
	if c.Slug == "" {
		c.Slug = c.ID
	}
	for i := range c.Items {
		c.Items[i].CollectionID = c.ID
	}
	if err := s.repo.Store(ctx, c); err != nil {
		return fmt.Errorf("failed to store collection %s: %w", c.ID, err)
	}
	s.logger.CMS().Info("Collection stored", "id", c.ID, "fields", len(c.Fields), "items", len(c.Items))
	s.changed()
	return nil
}

func (s *CMSService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.CMS().Info("Collection deleted", "id", id)
	s.changed()
	return nil
}
