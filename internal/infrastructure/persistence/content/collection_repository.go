package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/cms"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/persistence/database"
)

// CollectionRepository reads CMS collections cache-first
type CollectionRepository struct {
	db     *database.DB
	cache  interfaces.CollectionCache
	logger *logging.ChanneledLogger
}

var _ repositories.CollectionRepository = (*CollectionRepository)(nil)

func NewCollectionRepository(db *database.DB, cache interfaces.CollectionCache, logger *logging.ChanneledLogger) *CollectionRepository {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &CollectionRepository{db: db, cache: cache, logger: logger}
}

func (r *CollectionRepository) FindByID(ctx context.Context, id string) (*cms.Collection, error) {
	if c, found := r.cache.GetCollection(id); found {
		return c, nil
	}
	found, err := r.loadMultipleFromDB(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, repositories.ErrNotFound
	}
	r.cache.SetCollection(found[0])
	return found[0], nil
}

// FindAll retrieves all collections, employing a cache-first strategy.
func (r *CollectionRepository) FindAll(ctx context.Context) ([]*cms.Collection, error) {
	ids, found := r.cache.GetAllCollectionIDs()
	if !found {
		var err error
		if ids, err = r.loadAllIDsFromDB(ctx); err != nil {
			return nil, err
		}
		r.cache.SetAllCollectionIDs(ids)
	}
	return r.FindByIDs(ctx, ids)
}

// FindByIDs returns collections in the order of ids, skipping unknown ones
func (r *CollectionRepository) FindByIDs(ctx context.Context, ids []string) ([]*cms.Collection, error) {
	byID := make(map[string]*cms.Collection, len(ids))
	var missingIDs []string
	for _, id := range ids {
		if c, found := r.cache.GetCollection(id); found {
			byID[id] = c
		} else {
			missingIDs = append(missingIDs, id)
		}
	}

	if len(missingIDs) > 0 {
		loaded, err := r.loadMultipleFromDB(ctx, missingIDs)
		if err != nil {
			return nil, err
		}
		for _, c := range loaded {
			r.cache.SetCollection(c)
			byID[c.ID] = c
		}
	}

	out := make([]*cms.Collection, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Store inserts or replaces a collection
func (r *CollectionRepository) Store(ctx context.Context, collection *cms.Collection) error {
	if collection == nil || collection.ID == "" {
		return errors.New("collection id is required")
	}
	body, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection.ID, err)
	}

	query := r.db.Rebind(`INSERT INTO cms_collections (id, name, slug, body_json, updated_at) VALUES (?, ?, ?, ?, ?)` +
		r.db.UpsertClause("name", "slug", "body_json", "updated_at"))

	start := time.Now()
	r.logger.Persistence().Debug("Executing collection store", "id", collection.ID)

	_, err = r.db.ExecContext(ctx, query, collection.ID, collection.Name, collection.Slug, string(body),
		database.FormatTime(time.Now()))
	if err != nil {
		r.logger.Persistence().Error("Collection store failed", "error", err.Error(), "id", collection.ID)
		return fmt.Errorf("failed to store collection %s: %w", collection.ID, err)
	}

	r.logger.Persistence().Info("Collection stored", "id", collection.ID, "items", len(collection.Items), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	r.cache.SetCollection(collection)
	r.cache.AddCollectionID(collection.ID)
	return nil
}

func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM cms_collections WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Persistence().Error("Collection delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete collection %s: %w", id, err)
	}
	r.cache.InvalidateCollection(id)
	r.cache.RemoveCollectionID(id)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *CollectionRepository) loadAllIDsFromDB(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM cms_collections ORDER BY id`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Persistence().Error("Failed to query collection IDs", "error", err.Error())
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection ID: %w", err)
		}
		ids = append(ids, id)
	}

	r.logger.Persistence().Debug("Loaded collection IDs from database", "count", len(ids), "duration", time.Since(start))
	return ids, rows.Err()
}

func (r *CollectionRepository) loadMultipleFromDB(ctx context.Context, ids []string) ([]*cms.Collection, error) {
	if len(ids) == 0 {
		return []*cms.Collection{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := r.db.Rebind(`SELECT id, body_json FROM cms_collections WHERE id IN (` + strings.Join(placeholders, ",") + `)`)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Persistence().Error("Failed to query collections", "error", err.Error(), "count", len(ids))
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var out []*cms.Collection
	for rows.Next() {
		var (
			id   string
			body sql.NullString
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		var c cms.Collection
		if err := json.Unmarshal([]byte(body.String), &c); err != nil {
			r.logger.Persistence().Error("Failed to parse collection body", "error", err.Error(), "id", id)
			return nil, fmt.Errorf("failed to parse collection %s: %w", id, err)
		}
		c.ID = id
		out = append(out, &c)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return out, rows.Err()
}
