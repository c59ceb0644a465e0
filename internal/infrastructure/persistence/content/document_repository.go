// Package content provides the SQL repositories for documents and CMS
// collections.
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/persistence/database"
)

// DocumentRepository stores documents as JSON blobs. The draft and the last
// published copy live side by side in one row.
type DocumentRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
	now    func() time.Time
}

var _ repositories.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *database.DB, logger *logging.ChanneledLogger) *DocumentRepository {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &DocumentRepository{db: db, logger: logger, now: time.Now}
}

func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*canvas.Document, error) {
	return r.load(ctx, id, "draft_json")
}

// FindPublished returns the last published copy of a document
func (r *DocumentRepository) FindPublished(ctx context.Context, id string) (*canvas.Document, error) {
	return r.load(ctx, id, "published_json")
}

func (r *DocumentRepository) load(ctx context.Context, id, column string) (*canvas.Document, error) {
	query := r.db.Rebind(`SELECT name, status, ` + column + `, updated_at, published_at FROM documents WHERE id = ?`)

	start := time.Now()
	r.logger.Persistence().Debug("Loading document from database", "id", id, "column", column)

	var (
		name, status, updatedAt string
		body, publishedAt       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&name, &status, &body, &updatedAt, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		r.logger.Persistence().Error("Failed to scan document", "error", err.Error(), "id", id)
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if !body.Valid || body.String == "" {
		return nil, repositories.ErrNotFound
	}

	var doc canvas.Document
	if err := json.Unmarshal([]byte(body.String), &doc); err != nil {
		r.logger.Persistence().Error("Failed to parse document body", "error", err.Error(), "id", id)
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	doc.ID = id
	doc.Name = name
	doc.Status = canvas.DocumentStatus(status)
	if doc.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at of %s: %w", id, err)
	}
	if doc.PublishedAt, err = database.TimePtr(publishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse published_at of %s: %w", id, err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return &doc, nil
}

// FindAll lists every document, most recently updated first
func (r *DocumentRepository) FindAll(ctx context.Context) ([]*canvas.DocumentSummary, error) {
	query := `SELECT id, name, status, updated_at, published_at FROM documents ORDER BY updated_at DESC, id`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Persistence().Error("Failed to query documents", "error", err.Error())
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	out := []*canvas.DocumentSummary{}
	for rows.Next() {
		var (
			s           canvas.DocumentSummary
			status      string
			updatedAt   string
			publishedAt sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &status, &updatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document summary: %w", err)
		}
		s.Status = canvas.DocumentStatus(status)
		if s.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at of %s: %w", s.ID, err)
		}
		if s.PublishedAt, err = database.TimePtr(publishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse published_at of %s: %w", s.ID, err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Persistence().Debug("Loaded document list", "count", len(out), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return out, nil
}

// SaveDraft inserts or replaces the draft body. The published copy is
// never touched.
func (r *DocumentRepository) SaveDraft(ctx context.Context, doc *canvas.Document) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document id is required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}
	status := doc.Status
	if status == "" {
		status = canvas.StatusDraft
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	query := r.db.Rebind(`INSERT INTO documents (id, name, status, draft_json, updated_at, published_at) VALUES (?, ?, ?, ?, ?, ?)` +
		r.db.UpsertClause("name", "status", "draft_json", "updated_at"))

	start := time.Now()
	r.logger.Persistence().Debug("Executing document draft save", "id", doc.ID)

	_, err = r.db.ExecContext(ctx, query, doc.ID, doc.Name, string(status), string(body),
		database.FormatTime(updatedAt), database.NullTime(doc.PublishedAt))
	if err != nil {
		r.logger.Persistence().Error("Document draft save failed", "error", err.Error(), "id", doc.ID)
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	r.logger.Persistence().Info("Document draft saved", "id", doc.ID, "bytes", len(body), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// Publish copies the draft into the published slot
func (r *DocumentRepository) Publish(ctx context.Context, id string) (time.Time, error) {
	publishedAt := r.now().UTC()
	query := r.db.Rebind(`UPDATE documents SET published_json = draft_json, status = ?, published_at = ? WHERE id = ?`)

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, string(canvas.StatusPublished), database.FormatTime(publishedAt), id)
	if err != nil {
		r.logger.Persistence().Error("Document publish failed", "error", err.Error(), "id", id)
		return time.Time{}, fmt.Errorf("failed to publish document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return time.Time{}, repositories.ErrNotFound
	}

	r.logger.Persistence().Info("Document published", "id", id, "duration", time.Since(start))
	return publishedAt, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM documents WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Persistence().Error("Document delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repositories.ErrNotFound
	}
	r.logger.Persistence().Info("Document deleted", "id", id)
	return nil
}
